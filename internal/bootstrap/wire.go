package bootstrap

import (
	"errors"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"pdfnarrator/internal/audio"
	"pdfnarrator/internal/config"
	"pdfnarrator/internal/document"
	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/logging"
	"pdfnarrator/internal/ports"
	"pdfnarrator/internal/providers/deepgram"
	"pdfnarrator/internal/providers/murf"
	"pdfnarrator/internal/speech"
	"pdfnarrator/internal/usecase"
)

var ErrNoUtteranceEngine = errors.New("on-device speech needs an utterance engine")

// Services is the assembled runtime graph.
type Services struct {
	Playback      *usecase.PlaybackController
	Transcription *usecase.TranscriptionController
	Config        config.Config
	Logger        *log.Logger
}

// Load reads configuration and builds the process logger.
func Load() (config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(os.Stderr, cfg.LogLevel), nil
}

// Build wires all backend dependencies. engine may be nil when the remote
// speech policy is configured.
func Build(cfg config.Config, eventSink ports.EventSink, engine ports.UtteranceEngine, logger *log.Logger) (Services, error) {
	output, err := NewSpeechOutput(cfg, engine, logger)
	if err != nil {
		return Services{}, err
	}

	playback := usecase.NewPlaybackController(
		document.NewExtractor(logging.Component(logger, "document")),
		output,
		eventSink,
		logging.Component(logger, "playback"),
		usecase.PlaybackConfig{
			MaxDocumentBytes: cfg.Document.MaxBytes,
			Language:         cfg.Speech.Language,
			Speed:            cfg.Speech.Speed,
		},
	)

	logger.Info("services ready", "policy", output.Policy())
	return Services{
		Playback:      playback,
		Transcription: NewTranscription(cfg, eventSink, logger),
		Config:        cfg,
		Logger:        logger,
	}, nil
}

// NewSpeechOutput selects the speech strategy named by the configured policy.
func NewSpeechOutput(cfg config.Config, engine ports.UtteranceEngine, logger *log.Logger) (ports.SpeechOutput, error) {
	if cfg.Speech.Policy == domain.SpeechPolicyRemote {
		return NewRemoteOutput(cfg, logger), nil
	}
	if engine == nil {
		return nil, ErrNoUtteranceEngine
	}
	return speech.NewOnDevice(engine, logging.Component(logger, "speech")), nil
}

// NewRemoteOutput builds the Murf-backed speech output.
func NewRemoteOutput(cfg config.Config, logger *log.Logger) *speech.Remote {
	if cfg.Murf.APIKey == "" {
		logger.Warn("MURF_API_KEY is not set; remote speech will fail")
	}
	client := murf.NewClient(murf.Config{
		APIKey:     cfg.Murf.APIKey,
		APIBaseURL: cfg.Murf.APIBaseURL,
		VoiceID:    cfg.Murf.VoiceID,
		Format:     cfg.Murf.Format,
		Timeout:    cfg.Murf.Timeout,
	}, &http.Client{}, logging.Component(logger, "murf"))

	player := audio.NewPlayer(cfg.Speech.PlayerCommand)
	if !player.Available() {
		logger.Warn("audio player not found; remote speech cannot play", "command", cfg.Speech.PlayerCommand)
	}
	return speech.NewRemote(client, player, logging.Component(logger, "speech"))
}

// NewTranscription builds the mic transcription controller. Recognition is
// reported unsupported unless a Deepgram key and the capture binary exist.
func NewTranscription(cfg config.Config, eventSink ports.EventSink, logger *log.Logger) *usecase.TranscriptionController {
	capture := audio.NewCapture(cfg.Audio.RecorderCommand)
	provider := deepgram.NewProvider(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
	}, logging.Component(logger, "deepgram"))

	supported := provider.Configured() && capture.Available()
	if !supported {
		logger.Warn("speech recognition unavailable",
			"deepgram_key", provider.Configured(),
			"capture_command", cfg.Audio.RecorderCommand,
			"capture_found", capture.Available(),
		)
	}

	return usecase.NewTranscriptionController(
		capture,
		provider,
		eventSink,
		logging.Component(logger, "transcription"),
		usecase.TranscriptionConfig{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				InterimResults: true,
			},
			ChunkSize:   cfg.Session.ChunkSize,
			StopTimeout: cfg.Session.StopTimeout,
			Supported:   supported,
		},
	)
}
