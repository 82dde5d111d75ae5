package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"

	"pdfnarrator/internal/document"
	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/narration"
	"pdfnarrator/internal/ports"
	"pdfnarrator/internal/speech"
)

var ErrNoDocument = errors.New("no document loaded")

const (
	MinSpeed     = 0.5
	MaxSpeed     = 2.0
	DefaultSpeed = 1.0
)

// Notice texts shown by the page in a blocking dialog.
const (
	MessageInvalidFile      = "Please upload a valid PDF file."
	MessageFileTooLarge     = "This PDF is too large to load."
	MessageNoDocument       = "Please upload a PDF first."
	MessageDocumentLoaded   = "PDF loaded successfully!"
	MessageExtractionFailed = "Could not read text from this PDF."
	MessagePauseUnsupported = "Pause not supported with remote playback."
	MessageStopUnsupported  = "Stop not supported with remote playback once started."
)

// PlaybackConfig controls document loading and speech defaults.
type PlaybackConfig struct {
	MaxDocumentBytes int64
	Language         string
	Speed            float64
}

// PlaybackController owns the loaded document and drives the speech output
// into the transcript display.
type PlaybackController struct {
	extractor ports.DocumentExtractor
	output    ports.SpeechOutput
	events    ports.EventSink
	logger    *log.Logger
	cfg       PlaybackConfig

	transcript *displayBuffer

	mu       sync.Mutex
	document *domain.Document
	speed    float64
	language string
}

func NewPlaybackController(
	extractor ports.DocumentExtractor,
	output ports.SpeechOutput,
	events ports.EventSink,
	logger *log.Logger,
	cfg PlaybackConfig,
) *PlaybackController {
	tag, err := language.Parse(cfg.Language)
	if err != nil {
		tag = language.AmericanEnglish
	}
	cfg.Language = tag.String()
	cfg.Speed = clampSpeed(cfg.Speed)

	return &PlaybackController{
		extractor:  extractor,
		output:     output,
		events:     events,
		logger:     logger,
		cfg:        cfg,
		transcript: newDisplayBuffer(events.TranscriptChanged),
		speed:      cfg.Speed,
		language:   cfg.Language,
	}
}

// LoadDocument validates and extracts an upload. On any failure the notice is
// raised and the loaded document is left unchanged.
func (c *PlaybackController) LoadDocument(ctx context.Context, upload domain.Upload) (domain.Document, error) {
	if err := document.ValidateMediaType(upload.MediaType); err != nil {
		c.events.Notice(domain.NoticeInvalidFile, MessageInvalidFile)
		return domain.Document{}, err
	}
	if len(upload.Data) == 0 {
		c.events.Notice(domain.NoticeInvalidFile, MessageInvalidFile)
		return domain.Document{}, fmt.Errorf("%w: empty upload", document.ErrEmptyDocument)
	}
	if err := document.ValidateSize(len(upload.Data), c.cfg.MaxDocumentBytes); err != nil {
		c.events.Notice(domain.NoticeInvalidFile, MessageFileTooLarge)
		return domain.Document{}, err
	}

	text, pages, err := c.extractor.Extract(ctx, upload.Data)
	if err != nil {
		c.logger.Warn("document extraction failed", "name", upload.Name, "err", err)
		c.events.Notice(domain.NoticeExtractionFailed, MessageExtractionFailed)
		return domain.Document{}, err
	}

	doc := domain.Document{Name: upload.Name, Pages: pages, Text: text}
	c.mu.Lock()
	c.document = &doc
	c.mu.Unlock()

	c.logger.Info("document loaded", "name", upload.Name, "pages", pages, "chars", len(text))
	c.events.Notice(domain.NoticeDocumentLoaded, MessageDocumentLoaded)
	return doc, nil
}

// Play speaks the loaded document reshaped by mood and narration style.
func (c *PlaybackController) Play(ctx context.Context, mood string, style string) error {
	c.mu.Lock()
	doc := c.document
	req := domain.SpeechRequest{Language: c.language, Rate: c.speed}
	c.mu.Unlock()

	if doc == nil {
		c.events.Notice(domain.NoticeNoDocument, MessageNoDocument)
		return ErrNoDocument
	}

	req.Text = narration.Transform(doc.Text, narration.ParseMood(mood), narration.ParseStyle(style))
	c.logger.Debug("play requested", "mood", mood, "style", style, "policy", c.output.Policy())
	return c.output.Speak(ctx, req, c.transcript)
}

func (c *PlaybackController) Pause() error {
	err := c.output.Pause()
	if errors.Is(err, speech.ErrUnsupported) {
		c.events.Notice(domain.NoticeUnsupported, MessagePauseUnsupported)
		return nil
	}
	return err
}

func (c *PlaybackController) Stop() error {
	err := c.output.Stop(c.transcript)
	if errors.Is(err, speech.ErrUnsupported) {
		c.events.Notice(domain.NoticeUnsupported, MessageStopUnsupported)
		return nil
	}
	return err
}

// SetSpeed stores the rate used by the next utterance and returns its label.
func (c *PlaybackController) SetSpeed(speed float64) string {
	speed = clampSpeed(speed)

	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()

	label := SpeedLabel(speed)
	c.events.SpeedChanged(label)
	return label
}

// SetLanguage validates a BCP 47 tag and stores its canonical form.
func (c *PlaybackController) SetLanguage(tag string) (string, error) {
	parsed, err := language.Parse(tag)
	if err != nil {
		return c.Language(), fmt.Errorf("invalid language tag %q: %w", tag, err)
	}

	c.mu.Lock()
	c.language = parsed.String()
	c.mu.Unlock()
	return parsed.String(), nil
}

func (c *PlaybackController) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// Document returns the loaded document, if any.
func (c *PlaybackController) Document() (domain.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.document == nil {
		return domain.Document{}, false
	}
	return *c.document, true
}

// Transcript returns the current transcript display text.
func (c *PlaybackController) Transcript() string {
	return c.transcript.Text()
}

func (c *PlaybackController) Policy() domain.SpeechPolicy {
	return c.output.Policy()
}

// Status fills the playback half of the runtime status.
func (c *PlaybackController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{
		Playback:       c.output.State(),
		Policy:         c.output.Policy(),
		DocumentLoaded: c.document != nil,
		Speed:          c.speed,
		Language:       c.language,
	}
}

// SpeedLabel renders a rate the way the speed control mirrors it, e.g. "1.5x".
func SpeedLabel(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64) + "x"
}

func clampSpeed(speed float64) float64 {
	switch {
	case math.IsNaN(speed) || speed == 0:
		return DefaultSpeed
	case speed < MinSpeed:
		return MinSpeed
	case speed > MaxSpeed:
		return MaxSpeed
	default:
		return speed
	}
}
