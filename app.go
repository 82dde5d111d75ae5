package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"pdfnarrator/internal/bootstrap"
	"pdfnarrator/internal/config"
	"pdfnarrator/internal/document"
	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/logging"
	"pdfnarrator/internal/ports"
	"pdfnarrator/internal/usecase"
	"pdfnarrator/internal/webspeech"
)

const (
	eventTranscript = "transcript:update"
	eventMic        = "mic:update"
	eventMicState   = "mic:state"
	eventSpeed      = "speed:update"
	eventNotice     = "notice"
)

// voiceLanguages are offered in the language selector.
var voiceLanguages = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.MustParse("en-IN"),
	language.EuropeanSpanish,
	language.MustParse("fr-FR"),
	language.MustParse("de-DE"),
	language.MustParse("it-IT"),
	language.BrazilianPortuguese,
	language.MustParse("hi-IN"),
	language.MustParse("ja-JP"),
	language.MustParse("zh-CN"),
}

// LanguageOption is one entry of the language selector.
type LanguageOption struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

// RuntimeInfo is the non-sensitive configuration the page renders from.
type RuntimeInfo struct {
	Policy               domain.SpeechPolicy `json:"policy"`
	Voice                string              `json:"voice,omitempty"`
	Languages            []LanguageOption    `json:"languages"`
	Language             string              `json:"language"`
	Speed                float64             `json:"speed"`
	SpeedLabel           string              `json:"speedLabel"`
	MinSpeed             float64             `json:"minSpeed"`
	MaxSpeed             float64             `json:"maxSpeed"`
	RecognitionSupported bool                `json:"recognitionSupported"`
	Transcript           string              `json:"transcript"`
	MicTranscript        string              `json:"micTranscript"`
	Error                string              `json:"error,omitempty"`
}

// App is the Wails application root.
type App struct {
	ctx context.Context

	events webspeech.Runtime
	dialog func(title string, message string)

	playback      *usecase.PlaybackController
	transcription *usecase.TranscriptionController
	bridge        *webspeech.Synthesizer
	cfg           config.Config
	logger        *log.Logger
	bootErr       error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if a.events == nil {
		a.events = wailsRuntime{ctx: ctx}
	}
	if a.dialog == nil {
		a.dialog = func(title string, message string) {
			_, _ = runtime.MessageDialog(ctx, runtime.MessageDialogOptions{
				Type:    runtime.InfoDialog,
				Title:   title,
				Message: message,
			})
		}
	}

	cfg, logger, err := bootstrap.Load()
	if err != nil {
		a.fail(err)
		return
	}
	a.init(cfg, logger)
}

// init wires services once configuration is known.
func (a *App) init(cfg config.Config, logger *log.Logger) {
	var engine ports.UtteranceEngine
	if cfg.Speech.Policy == domain.SpeechPolicyOnDevice {
		a.bridge = webspeech.NewSynthesizer(a.events, logging.Component(logger, "webspeech"))
		engine = a.bridge
	}

	services, err := bootstrap.Build(cfg, a, engine, logger)
	if err != nil {
		a.fail(err)
		return
	}

	a.cfg = services.Config
	a.logger = services.Logger
	a.playback = services.Playback
	a.transcription = services.Transcription
}

// fail records a startup error. The page reads it from GetRuntimeInfo; no
// dialog is shown before the window is up.
func (a *App) fail(err error) {
	a.bootErr = err
	a.emit(eventNotice, map[string]string{
		"code":    string(domain.NoticeStartup),
		"message": err.Error(),
	})
}

func (a *App) shutdown(_ context.Context) {
	if a.transcription != nil {
		_ = a.transcription.Stop()
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
}

// OpenDocument asks for a PDF with the native file dialog and loads it.
func (a *App) OpenDocument() (domain.Document, error) {
	if err := a.requireReady(); err != nil {
		return domain.Document{}, err
	}

	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title:   "Open PDF",
		Filters: []runtime.FileFilter{{DisplayName: "PDF documents (*.pdf)", Pattern: "*.pdf"}},
	})
	if err != nil {
		return domain.Document{}, err
	}
	if path == "" {
		return domain.Document{}, nil
	}
	a.logger.Debug("document picked", "path", path)
	return a.loadPath(path)
}

func (a *App) loadPath(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return a.playback.LoadDocument(a.ctx, domain.Upload{
		Name:      filepath.Base(path),
		MediaType: document.MediaTypeForPath(path),
		Data:      data,
	})
}

// LoadDocument loads a file picked in the page. mediaType is the type the
// browser declared for it.
func (a *App) LoadDocument(name string, mediaType string, data []byte) (domain.Document, error) {
	if err := a.requireReady(); err != nil {
		return domain.Document{}, err
	}
	return a.playback.LoadDocument(a.ctx, domain.Upload{Name: name, MediaType: mediaType, Data: data})
}

// Play speaks the loaded document with the selected mood and narration style.
func (a *App) Play(mood string, narration string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	err := a.playback.Play(a.ctx, mood, narration)
	if errors.Is(err, usecase.ErrNoDocument) {
		return nil
	}
	return err
}

func (a *App) Pause() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.playback.Pause()
}

func (a *App) Stop() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.playback.Stop()
}

// SetSpeed sets the speech rate and returns its label.
func (a *App) SetSpeed(speed float64) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.playback.SetSpeed(speed), nil
}

func (a *App) SetLanguage(tag string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.playback.SetLanguage(tag)
}

// ToggleMic starts or stops live transcription. It does nothing when
// recognition is unsupported.
func (a *App) ToggleMic() (domain.ListeningState, error) {
	if err := a.requireReady(); err != nil {
		return domain.ListeningStateIdle, err
	}
	state, err := a.transcription.Toggle(a.ctx)
	if errors.Is(err, usecase.ErrRecognitionUnsupported) {
		return state, nil
	}
	return state, err
}

// GetStatus returns the current runtime status.
func (a *App) GetStatus() domain.Status {
	if a.playback == nil || a.transcription == nil {
		status := domain.Status{Playback: domain.PlaybackStateIdle, Listening: domain.ListeningStateIdle}
		if a.bootErr != nil {
			status.Message = a.bootErr.Error()
		}
		return status
	}

	status := a.playback.Status()
	status.Listening = a.transcription.Status()
	status.RecognitionSupported = a.transcription.Supported()
	return status
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() RuntimeInfo {
	info := RuntimeInfo{
		Languages: languageOptions(voiceLanguages),
		MinSpeed:  usecase.MinSpeed,
		MaxSpeed:  usecase.MaxSpeed,
		Speed:     usecase.DefaultSpeed,
	}
	info.SpeedLabel = usecase.SpeedLabel(info.Speed)
	if a.bootErr != nil || a.playback == nil {
		if a.bootErr != nil {
			info.Error = a.bootErr.Error()
		}
		return info
	}

	status := a.GetStatus()
	info.Policy = status.Policy
	info.Language = status.Language
	info.Speed = status.Speed
	info.SpeedLabel = usecase.SpeedLabel(status.Speed)
	info.RecognitionSupported = status.RecognitionSupported
	info.Transcript = a.playback.Transcript()
	info.MicTranscript = a.transcription.MicTranscript()
	if status.Policy == domain.SpeechPolicyRemote {
		info.Voice = a.cfg.Murf.VoiceID
	}
	return info
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.playback == nil || a.transcription == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// TranscriptChanged emits the transcript display text.
func (a *App) TranscriptChanged(text string) {
	a.emit(eventTranscript, text)
}

// MicTranscriptChanged emits the mic display text.
func (a *App) MicTranscriptChanged(text string) {
	a.emit(eventMic, text)
}

func (a *App) ListeningChanged(state domain.ListeningState) {
	a.emit(eventMicState, string(state))
}

func (a *App) SpeedChanged(label string) {
	a.emit(eventSpeed, label)
}

// Notice emits a notice and shows it in a blocking dialog.
func (a *App) Notice(code domain.NoticeCode, message string) {
	a.emit(eventNotice, map[string]string{
		"code":    string(code),
		"message": message,
	})
	if a.dialog != nil {
		a.dialog(noticeTitle(code), message)
	}
}

func (a *App) emit(event string, data ...any) {
	if a.events == nil {
		return
	}
	a.events.Emit(event, data...)
}

func noticeTitle(code domain.NoticeCode) string {
	switch code {
	case domain.NoticeInvalidFile:
		return "Invalid file"
	case domain.NoticeNoDocument:
		return "No document"
	case domain.NoticeDocumentLoaded:
		return "Document loaded"
	case domain.NoticeExtractionFailed:
		return "Extraction failed"
	case domain.NoticeUnsupported:
		return "Not supported"
	case domain.NoticeStartup:
		return "Startup failed"
	default:
		return "Notice"
	}
}

func languageOptions(tags []language.Tag) []LanguageOption {
	namer := display.English.Tags()
	return lo.Map(tags, func(tag language.Tag, _ int) LanguageOption {
		name := namer.Name(tag)
		if name == "" {
			name = tag.String()
		}
		return LanguageOption{Tag: tag.String(), Name: name}
	})
}

// wailsRuntime routes events through the Wails runtime.
type wailsRuntime struct {
	ctx context.Context
}

func (r wailsRuntime) Emit(event string, data ...any) {
	runtime.EventsEmit(r.ctx, event, data...)
}

func (r wailsRuntime) On(event string, callback func(data ...any)) func() {
	return runtime.EventsOn(r.ctx, event, callback)
}
