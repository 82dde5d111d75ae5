package deepgram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/ports"
)

func TestNewProviderDefaults(t *testing.T) {
	t.Parallel()

	p := NewProvider(Config{}, log.New(io.Discard))
	if p.cfg.APIBaseURL != "https://api.deepgram.com/v1" {
		t.Fatalf("unexpected base url: %q", p.cfg.APIBaseURL)
	}
	if p.cfg.Model != "nova-2" {
		t.Fatalf("unexpected model: %q", p.cfg.Model)
	}
	if p.Configured() {
		t.Fatalf("expected provider without key to be unconfigured")
	}
}

func TestProviderStartStreamingRequiresAPIKey(t *testing.T) {
	t.Parallel()

	p := NewProvider(Config{APIKey: " "}, log.New(io.Discard))
	_, err := p.StartStreaming(context.Background(), ports.StreamingConfig{})
	var recErr *domain.RecognitionError
	if !errors.As(err, &recErr) || recErr.Code != domain.RecognitionErrorNotAllowed {
		t.Fatalf("expected not-allowed error, got %v", err)
	}
}

func TestBuildListenURLDefaults(t *testing.T) {
	t.Parallel()

	url, err := buildListenURL(Config{APIBaseURL: "https://api.deepgram.com/v1", Model: "nova-2"}, ports.StreamingConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"wss://api.deepgram.com/v1/listen", "encoding=linear16", "sample_rate=16000", "channels=1", "model=nova-2"} {
		if !strings.Contains(url, want) {
			t.Fatalf("expected %q in url: %s", want, url)
		}
	}
}

func TestBuildListenURLWithLanguageAndInterim(t *testing.T) {
	t.Parallel()

	url, err := buildListenURL(
		Config{APIBaseURL: "http://localhost:8080/v1/", Model: "m", Language: "en-US", SmartFormat: true},
		ports.StreamingConfig{Encoding: "linear16", SampleRate: 8000, Channels: 2, InterimResults: true},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"ws://localhost:8080/v1/listen?", "language=en-US", "smart_format=true", "interim_results=true", "sample_rate=8000"} {
		if !strings.Contains(url, want) {
			t.Fatalf("expected %q in url: %s", want, url)
		}
	}
}

func TestBuildListenURLInvalidBase(t *testing.T) {
	t.Parallel()

	_, err := buildListenURL(Config{APIBaseURL: ":// bad"}, ports.StreamingConfig{})
	if err == nil {
		t.Fatalf("expected invalid base url error")
	}
}

func TestExtractTranscript(t *testing.T) {
	t.Parallel()

	r1 := deepgramResponse{}
	r1.Channel.Alternatives = append(r1.Channel.Alternatives, struct {
		Transcript string "json:\"transcript\""
	}{Transcript: " channel "})
	if got := extractTranscript(r1); got != "channel" {
		t.Fatalf("unexpected transcript from channel: %q", got)
	}

	if got := extractTranscript(deepgramResponse{}); got != "" {
		t.Fatalf("expected empty transcript, got %q", got)
	}
}

func TestResultIndexerReplacesInterimAndOpensSlotAfterFinal(t *testing.T) {
	t.Parallel()

	var x resultIndexer
	steps := []struct {
		text  string
		final bool
		index int
	}{
		{"hel", false, 0},
		{"hello", false, 0},
		{"hello world", true, 0},
		{"how", false, 1},
		{"how are you", true, 1},
		{"fine", true, 2},
	}
	for _, step := range steps {
		event := x.apply(step.text, step.final)
		if event.ResultIndex != step.index {
			t.Fatalf("%q: expected index %d, got %d", step.text, step.index, event.ResultIndex)
		}
		if len(event.Results) != 1 || event.Results[0].Transcript != step.text || event.Results[0].Final != step.final {
			t.Fatalf("%q: unexpected results %+v", step.text, event.Results)
		}
	}
	if len(x.results) != 3 {
		t.Fatalf("expected 3 result slots, got %d", len(x.results))
	}
}

func TestStreamingSessionEndToEnd(t *testing.T) {
	t.Parallel()

	server := newFakeDeepgram(t, func(conn *websocket.Conn) {
		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`))
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
				continue
			}
			if strings.Contains(string(msg), "CloseStream") {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	})

	p := NewProvider(Config{APIKey: "k", APIBaseURL: server.URL}, log.New(io.Discard))
	session, err := p.StartStreaming(context.Background(), ports.StreamingConfig{InterimResults: true})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := session.SendAudio([]byte("pcm")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	first := receive(t, session.Events())
	second := receive(t, session.Events())
	if first.ResultIndex != 0 || first.Results[0].Final || first.Results[0].Transcript != "hel" {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if second.ResultIndex != 0 || !second.Results[0].Final || second.Results[0].Transcript != "hello" {
		t.Fatalf("unexpected second event: %+v", second)
	}

	if err := session.CloseSend(); err != nil {
		t.Fatalf("close send failed: %v", err)
	}
	if err := session.Wait(); err != nil {
		t.Fatalf("expected orderly close, got %v", err)
	}
	if err := session.SendAudio([]byte("late")); err == nil {
		t.Fatalf("expected send after close to fail")
	}
}

func TestStreamingSessionProviderErrorEndsSession(t *testing.T) {
	t.Parallel()

	server := newFakeDeepgram(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Error","message":"bad audio"}`))
		time.Sleep(50 * time.Millisecond)
	})

	p := NewProvider(Config{APIKey: "k", APIBaseURL: server.URL}, log.New(io.Discard))
	session, err := p.StartStreaming(context.Background(), ports.StreamingConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_ = session.SendAudio([]byte("pcm"))

	for range session.Events() {
	}
	var recErr *domain.RecognitionError
	if err := session.Wait(); !errors.As(err, &recErr) || recErr.Code != domain.RecognitionErrorService {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestProviderRejectedCredentials(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := NewProvider(Config{APIKey: "wrong", APIBaseURL: server.URL}, log.New(io.Discard))
	_, err := p.StartStreaming(context.Background(), ports.StreamingConfig{})
	var recErr *domain.RecognitionError
	if !errors.As(err, &recErr) || recErr.Code != domain.RecognitionErrorNotAllowed {
		t.Fatalf("expected not-allowed error, got %v", err)
	}
}

func TestStreamingSessionCloseSendIsIdempotent(t *testing.T) {
	t.Parallel()

	s := &streamingSession{sendDone: make(chan struct{})}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected second error: %v", err)
	}
	if err := s.SendAudio([]byte("x")); err == nil {
		t.Fatalf("expected closed error")
	}
}

func TestStreamingSessionSetErrIgnoresCloseErrors(t *testing.T) {
	t.Parallel()

	s := &streamingSession{}
	s.setErr(domain.RecognitionErrorNetwork, &websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "closed"})
	if s.waitErr() != nil {
		t.Fatalf("expected close error to be ignored")
	}

	s.setErr(domain.RecognitionErrorNetwork, errors.New("first"))
	s.setErr(domain.RecognitionErrorService, errors.New("second"))
	var recErr *domain.RecognitionError
	if !errors.As(s.waitErr(), &recErr) || recErr.Code != domain.RecognitionErrorNetwork || recErr.Err.Error() != "first" {
		t.Fatalf("expected first error to win, got %v", s.waitErr())
	}
}

func newFakeDeepgram(t *testing.T, serve func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token k" || r.URL.Path != "/listen" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func receive(t *testing.T, events <-chan domain.RecognitionEvent) domain.RecognitionEvent {
	t.Helper()
	select {
	case event, ok := <-events:
		if !ok {
			t.Fatalf("events closed early")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return domain.RecognitionEvent{}
}
