package speech

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf16"

	"github.com/charmbracelet/log"

	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/ports"
)

// OnDevice speaks through a local utterance engine that reports word
// boundaries, so the display can follow the voice.
type OnDevice struct {
	engine ports.UtteranceEngine
	logger *log.Logger

	mu         sync.Mutex
	generation uint64
}

func NewOnDevice(engine ports.UtteranceEngine, logger *log.Logger) *OnDevice {
	return &OnDevice{engine: engine, logger: logger}
}

func (o *OnDevice) Policy() domain.SpeechPolicy {
	return domain.SpeechPolicyOnDevice
}

// Speak resumes a paused utterance in place. Otherwise it cancels whatever is
// queued and starts a new utterance for req.
func (o *OnDevice) Speak(_ context.Context, req domain.SpeechRequest, display ports.Display) error {
	if o.engine.Speaking() && o.engine.Paused() {
		o.engine.Resume()
		return nil
	}

	generation := o.advance()
	o.engine.Cancel()
	previous := display.Text()
	display.Set(domain.TextSpeakingBegins)

	text := req.Text
	units := utf16.Encode([]rune(text))
	err := o.engine.Speak(ports.Utterance{
		Text:     text,
		Language: req.Language,
		Rate:     req.Rate,
		OnBoundary: func(b domain.BoundaryEvent) {
			if !o.current(generation) {
				return
			}
			display.Set(spokenPrefix(units, b))
		},
		OnEnd: func() {
			if !o.current(generation) {
				return
			}
			display.Append(domain.TextDoneSpeaking)
		},
	})
	if err != nil {
		if o.current(generation) {
			display.Set(previous)
		}
		o.logger.Warn("utterance rejected", "err", err)
		return fmt.Errorf("speak utterance: %w", err)
	}
	return nil
}

func (o *OnDevice) Pause() error {
	if o.engine.Speaking() {
		o.engine.Pause()
	}
	return nil
}

func (o *OnDevice) Stop(display ports.Display) error {
	o.advance()
	o.engine.Cancel()
	display.Set(domain.TextSpeechStopped)
	return nil
}

func (o *OnDevice) State() domain.PlaybackState {
	switch {
	case o.engine.Speaking() && o.engine.Paused():
		return domain.PlaybackStatePaused
	case o.engine.Speaking():
		return domain.PlaybackStateSpeaking
	default:
		return domain.PlaybackStateIdle
	}
}

func (o *OnDevice) advance() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	return o.generation
}

func (o *OnDevice) current(generation uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return generation == o.generation
}

// spokenPrefix returns the text up to the end of the boundary. Offsets are in
// UTF-16 code units, as speech engines in the webview report them.
func spokenPrefix(units []uint16, b domain.BoundaryEvent) string {
	end := b.CharIndex
	if b.CharLength > 0 {
		end += b.CharLength
	}
	if end < 0 {
		end = 0
	}
	if end > len(units) {
		end = len(units)
	}
	return string(utf16.Decode(units[:end]))
}
