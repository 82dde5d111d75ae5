// Package webspeech drives the webview's speech synthesizer from Go. Requests
// go to the page as events; boundary and end notifications come back tagged
// with the utterance id they belong to.
package webspeech

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/ports"
)

const (
	EventSpeak    = "speech:speak"
	EventCancel   = "speech:cancel"
	EventPause    = "speech:pause"
	EventResume   = "speech:resume"
	EventBoundary = "speech:boundary"
	EventEnd      = "speech:end"
)

var ErrClosed = errors.New("speech bridge is closed")

// Runtime is the event bus shared with the page.
type Runtime interface {
	Emit(event string, data ...any)
	On(event string, callback func(data ...any)) func()
}

// SpeakRequest is the payload of EventSpeak.
type SpeakRequest struct {
	ID   int64   `json:"id"`
	Text string  `json:"text"`
	Lang string  `json:"lang,omitempty"`
	Rate float64 `json:"rate"`
}

type notification struct {
	ID         int64 `json:"id"`
	CharIndex  int   `json:"charIndex"`
	CharLength int   `json:"charLength"`
}

// Synthesizer implements ports.UtteranceEngine on top of the page's
// speechSynthesis object.
type Synthesizer struct {
	rt     Runtime
	logger *log.Logger

	mu       sync.Mutex
	nextID   int64
	current  *utterance
	speaking bool
	paused   bool
	closed   bool

	unsubscribe []func()
}

type utterance struct {
	id         int64
	onBoundary func(domain.BoundaryEvent)
	onEnd      func()
}

func NewSynthesizer(rt Runtime, logger *log.Logger) *Synthesizer {
	s := &Synthesizer{rt: rt, logger: logger}
	s.unsubscribe = []func(){
		rt.On(EventBoundary, s.handleBoundary),
		rt.On(EventEnd, s.handleEnd),
	}
	return s
}

func (s *Synthesizer) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *Synthesizer) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Synthesizer) Speak(u ports.Utterance) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.nextID++
	id := s.nextID
	s.current = &utterance{id: id, onBoundary: u.OnBoundary, onEnd: u.OnEnd}
	s.speaking = true
	s.paused = false
	s.mu.Unlock()

	s.logger.Debug("speaking utterance", "id", id, "lang", u.Language, "rate", u.Rate, "chars", len(u.Text))
	s.rt.Emit(EventSpeak, SpeakRequest{ID: id, Text: u.Text, Lang: u.Language, Rate: u.Rate})
	return nil
}

func (s *Synthesizer) Cancel() {
	s.mu.Lock()
	s.current = nil
	s.speaking = false
	s.paused = false
	s.mu.Unlock()

	s.rt.Emit(EventCancel)
}

func (s *Synthesizer) Pause() {
	s.mu.Lock()
	if !s.speaking || s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = true
	s.mu.Unlock()

	s.rt.Emit(EventPause)
}

func (s *Synthesizer) Resume() {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	s.mu.Unlock()

	s.rt.Emit(EventResume)
}

// Close detaches the bridge from the page events.
func (s *Synthesizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.current = nil
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	for _, off := range unsubscribe {
		if off != nil {
			off()
		}
	}
}

func (s *Synthesizer) handleBoundary(data ...any) {
	n, ok := s.decode(EventBoundary, data)
	if !ok {
		return
	}

	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current == nil || current.id != n.ID || current.onBoundary == nil {
		return
	}
	current.onBoundary(domain.BoundaryEvent{CharIndex: n.CharIndex, CharLength: n.CharLength})
}

func (s *Synthesizer) handleEnd(data ...any) {
	n, ok := s.decode(EventEnd, data)
	if !ok {
		return
	}

	s.mu.Lock()
	current := s.current
	if current == nil || current.id != n.ID {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.speaking = false
	s.paused = false
	s.mu.Unlock()

	if current.onEnd != nil {
		current.onEnd()
	}
}

// decode reads the first event argument. The page sends plain objects, which
// arrive as generic JSON values.
func (s *Synthesizer) decode(event string, data []any) (notification, bool) {
	if len(data) == 0 {
		s.logger.Warn("speech event without payload", "event", event)
		return notification{}, false
	}

	raw, err := json.Marshal(data[0])
	if err != nil {
		s.logger.Warn("speech event payload unreadable", "event", event, "err", err)
		return notification{}, false
	}
	var n notification
	if err := json.Unmarshal(raw, &n); err != nil {
		s.logger.Warn("speech event payload unreadable", "event", event, "err", err)
		return notification{}, false
	}
	return n, true
}
