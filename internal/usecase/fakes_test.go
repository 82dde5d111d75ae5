package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/ports"
)

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []ports.AudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

// fakeAudioSession yields its chunks, then blocks like a live microphone
// until stopped.
type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	readErr   error
	stopped   chan struct{}
	stopOnce  sync.Once
	stopCalls int
}

func newFakeAudioSession(chunks ...[]byte) *fakeAudioSession {
	return &fakeAudioSession{chunks: chunks, stopped: make(chan struct{})}
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.index < len(f.chunks) {
		n := copy(p, f.chunks[f.index])
		f.index++
		f.mu.Unlock()
		return n, nil
	}
	readErr := f.readErr
	f.mu.Unlock()

	if readErr != nil {
		return 0, readErr
	}
	<-f.stopped
	return 0, io.EOF
}

func (f *fakeAudioSession) Close() error { return f.Stop() }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopped) })
	return nil
}

type fakeProvider struct {
	mu       sync.Mutex
	sessions []ports.StreamingSession
	err      error
	calls    int
}

func (f *fakeProvider) StartStreaming(_ context.Context, _ ports.StreamingConfig) (ports.StreamingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.sessions) == 0 {
		return nil, errors.New("no stream session configured")
	}
	session := f.sessions[0]
	f.sessions = f.sessions[1:]
	return session, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeStreamingSession ends when the send side closes, like a recognizer
// flushing its last results.
type fakeStreamingSession struct {
	mu         sync.Mutex
	events     chan domain.RecognitionEvent
	sent       [][]byte
	waitErr    error
	closed     bool
	closeSend  int
	closeCalls int
}

func newFakeStreamingSession() *fakeStreamingSession {
	return &fakeStreamingSession{events: make(chan domain.RecognitionEvent, 16)}
}

func (f *fakeStreamingSession) SendAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.sent = append(f.sent, append([]byte(nil), chunk...))
	return nil
}

func (f *fakeStreamingSession) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeSend++
	f.end(nil)
	return nil
}

func (f *fakeStreamingSession) Events() <-chan domain.RecognitionEvent { return f.events }

func (f *fakeStreamingSession) Wait() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitErr
}

func (f *fakeStreamingSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	f.end(nil)
	return nil
}

// fail ends the session from the recognizer side.
func (f *fakeStreamingSession) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.end(err)
}

func (f *fakeStreamingSession) end(err error) {
	if f.closed {
		return
	}
	f.closed = true
	f.waitErr = err
	close(f.events)
}

func (f *fakeStreamingSession) sentChunks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type noticeEvent struct {
	code    domain.NoticeCode
	message string
}

type fakeEventSink struct {
	mu sync.Mutex

	transcripts    []string
	micTranscripts []string
	listening      []domain.ListeningState
	speeds         []string
	notices        []noticeEvent
}

func (f *fakeEventSink) TranscriptChanged(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, text)
}

func (f *fakeEventSink) MicTranscriptChanged(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.micTranscripts = append(f.micTranscripts, text)
}

func (f *fakeEventSink) ListeningChanged(state domain.ListeningState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listening = append(f.listening, state)
}

func (f *fakeEventSink) SpeedChanged(label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speeds = append(f.speeds, label)
}

func (f *fakeEventSink) Notice(code domain.NoticeCode, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, noticeEvent{code: code, message: message})
}

func (f *fakeEventSink) snapshotListening() []domain.ListeningState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ListeningState(nil), f.listening...)
}

func (f *fakeEventSink) snapshotNotices() []noticeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]noticeEvent(nil), f.notices...)
}

func (f *fakeEventSink) micEventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.micTranscripts)
}

func (f *fakeEventSink) lastTranscript() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transcripts) == 0 {
		return ""
	}
	return f.transcripts[len(f.transcripts)-1]
}

type fakeExtractor struct {
	text  string
	pages int
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (string, int, error) {
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.text, f.pages, nil
}

type fakeOutput struct {
	policy   domain.SpeechPolicy
	state    domain.PlaybackState
	pauseErr error
	stopErr  error

	requests   []domain.SpeechRequest
	pauseCalls int
	stopCalls  int
}

func (f *fakeOutput) Policy() domain.SpeechPolicy { return f.policy }

func (f *fakeOutput) Speak(_ context.Context, req domain.SpeechRequest, display ports.Display) error {
	f.requests = append(f.requests, req)
	display.Set(domain.TextSpeakingBegins)
	return nil
}

func (f *fakeOutput) Pause() error {
	f.pauseCalls++
	return f.pauseErr
}

func (f *fakeOutput) Stop(display ports.Display) error {
	f.stopCalls++
	if f.stopErr == nil {
		display.Set(domain.TextSpeechStopped)
	}
	return f.stopErr
}

func (f *fakeOutput) State() domain.PlaybackState { return f.state }

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
