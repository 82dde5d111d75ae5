package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/ports"
)

var ErrRecognitionUnsupported = errors.New("speech recognition is not supported on this system")

// TranscriptionConfig controls microphone transcription.
type TranscriptionConfig struct {
	Audio       ports.AudioConfig
	Streaming   ports.StreamingConfig
	ChunkSize   int
	StopTimeout time.Duration
	// Supported is the result of capability detection at startup.
	Supported bool
}

// TranscriptionController runs live microphone transcription into the mic
// display. At most one listening session exists at a time.
type TranscriptionController struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	events   ports.EventSink
	logger   *log.Logger
	cfg      TranscriptionConfig

	display *displayBuffer

	mu      sync.Mutex
	current *listeningSession
}

type listeningSession struct {
	cancel   context.CancelFunc
	audio    ports.AudioSession
	stream   ports.StreamingSession
	stopping bool
	results  resultBuffer
	done     chan struct{}
}

func NewTranscriptionController(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	events ports.EventSink,
	logger *log.Logger,
	cfg TranscriptionConfig,
) *TranscriptionController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 4 * time.Second
	}

	c := &TranscriptionController{
		audio:    audio,
		provider: provider,
		events:   events,
		logger:   logger,
		cfg:      cfg,
		display:  newDisplayBuffer(events.MicTranscriptChanged),
	}
	if !cfg.Supported {
		c.display.Set(domain.TextRecognitionMissing)
	}
	return c
}

// Supported reports whether the mic toggle does anything.
func (c *TranscriptionController) Supported() bool {
	return c.cfg.Supported
}

// Start begins listening. It is a no-op while a session is active.
func (c *TranscriptionController) Start(ctx context.Context) error {
	if !c.cfg.Supported {
		return ErrRecognitionUnsupported
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return nil
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	session := &listeningSession{cancel: cancel, done: make(chan struct{})}
	c.current = session
	c.display.Set(domain.TextListening)
	c.events.ListeningChanged(domain.ListeningStateListening)
	c.mu.Unlock()

	c.logger.Info("listening started")
	go c.run(sessionCtx, session)
	return nil
}

// Stop ends the active session and waits for the recognizer to deliver its
// last results. It is a no-op while idle.
func (c *TranscriptionController) Stop() error {
	c.mu.Lock()
	session := c.current
	if session == nil || session.stopping {
		c.mu.Unlock()
		return nil
	}
	session.stopping = true
	audio, stream := session.audio, session.stream
	c.mu.Unlock()

	if audio == nil {
		// Still connecting.
		session.cancel()
		<-session.done
		return nil
	}

	if err := audio.Stop(); err != nil {
		c.logger.Warn("failed to stop audio capture cleanly", "err", err)
	}
	closeAfter(stream, session.done, c.cfg.StopTimeout)
	<-session.done
	return nil
}

// Toggle starts or stops listening depending on the current state.
func (c *TranscriptionController) Toggle(ctx context.Context) (domain.ListeningState, error) {
	var err error
	if c.Status() == domain.ListeningStateListening {
		err = c.Stop()
	} else {
		err = c.Start(ctx)
	}
	return c.Status(), err
}

func (c *TranscriptionController) Status() domain.ListeningState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.ListeningStateIdle
	}
	return domain.ListeningStateListening
}

// Done returns a channel closed when the active session has ended, whether
// stopped or failed. While idle it is already closed.
func (c *TranscriptionController) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.current.done
}

// MicTranscript returns the current mic display text.
func (c *TranscriptionController) MicTranscript() string {
	return c.display.Text()
}

func (c *TranscriptionController) run(ctx context.Context, session *listeningSession) {
	defer close(session.done)

	stream, err := c.provider.StartStreaming(ctx, c.cfg.Streaming)
	if err != nil {
		c.finish(session, asRecognitionError(domain.RecognitionErrorNetwork, err))
		return
	}

	audio, err := c.audio.Start(ctx, c.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		c.finish(session, asRecognitionError(domain.RecognitionErrorAudioCapture, err))
		return
	}

	c.mu.Lock()
	session.audio = audio
	session.stream = stream
	stopping := session.stopping
	c.mu.Unlock()
	if stopping {
		_ = audio.Stop()
	}

	pumpDone := make(chan error, 1)
	go pumpAudioChunks(audio, stream, c.cfg.ChunkSize, pumpDone)

	consumeRecognitionEvents(stream, func(event domain.RecognitionEvent) {
		c.applyEvent(session, event)
	})

	streamErr := stream.Wait()
	_ = audio.Stop()
	pumpErr := <-pumpDone

	if streamErr != nil {
		c.finish(session, streamErr)
		return
	}
	c.finish(session, pumpErr)
}

func (c *TranscriptionController) applyEvent(session *listeningSession, event domain.RecognitionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != session {
		return
	}

	text, ok := session.results.apply(event)
	if !ok {
		c.logger.Debug("dropping stale recognition result", "index", event.ResultIndex)
		return
	}
	c.display.Set(text)
}

// finish reports how the session ended and returns to idle. Errors after a
// requested stop are not shown.
func (c *TranscriptionController) finish(session *listeningSession, err error) {
	session.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == session {
		c.current = nil
	}

	if err != nil && !session.stopping {
		code := recognitionCode(err)
		c.logger.Warn("recognition failed", "code", code, "err", err)
		c.display.Set(fmt.Sprintf("[Error: %s]", code))
	} else {
		if err != nil {
			c.logger.Debug("recognition error after stop", "err", err)
		}
		c.logger.Info("listening stopped")
		c.display.Append(domain.TextStoppedListening)
	}
	c.events.ListeningChanged(domain.ListeningStateIdle)
}
