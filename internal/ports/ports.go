package ports

import (
	"context"
	"io"

	"pdfnarrator/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// AudioPlayer plays a remote audio resource and returns once playback ends.
type AudioPlayer interface {
	Play(ctx context.Context, audioURL string) error
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// StreamingSession is an active recognizer session. Events is closed when the
// session ends; Wait then reports why.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.RecognitionEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming recognition sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// DocumentExtractor turns a document payload into plain text.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte) (text string, pages int, err error)
}

// SpeechSynthesizer asks a remote service to render text into an audio resource.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (audioURL string, err error)
}

// Utterance is one on-device speech request.
type Utterance struct {
	Text       string
	Language   string
	Rate       float64
	OnBoundary func(domain.BoundaryEvent)
	OnEnd      func()
}

// UtteranceEngine is an on-device speech synthesizer with a single queue.
type UtteranceEngine interface {
	Speaking() bool
	Paused() bool
	Speak(u Utterance) error
	Cancel()
	Pause()
	Resume()
}

// Display is a text region the user watches.
type Display interface {
	Set(text string)
	Append(text string)
	Text() string
}

// SpeechOutput is the speech strategy selected by configuration.
type SpeechOutput interface {
	Policy() domain.SpeechPolicy
	Speak(ctx context.Context, req domain.SpeechRequest, display Display) error
	Pause() error
	Stop(display Display) error
	State() domain.PlaybackState
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	TranscriptChanged(text string)
	MicTranscriptChanged(text string)
	ListeningChanged(state domain.ListeningState)
	SpeedChanged(label string)
	Notice(code domain.NoticeCode, message string)
}
