package murf

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{}, nil, log.New(io.Discard))
	if c.cfg.APIBaseURL != "https://api.murf.ai/v1" {
		t.Fatalf("unexpected base url: %q", c.cfg.APIBaseURL)
	}
	if c.cfg.VoiceID != "en-US-natalie" || c.cfg.Format != "MP3" {
		t.Fatalf("unexpected voice/format: %+v", c.cfg)
	}
	if c.http != http.DefaultClient {
		t.Fatalf("expected default http client")
	}
}

func TestSynthesizeRequiresAPIKey(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{}, nil, log.New(io.Discard))
	if _, err := c.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestSynthesizeSendsRequestAndReturnsAudioFile(t *testing.T) {
	t.Parallel()

	var got generateRequest
	var gotKey, gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		gotPath = r.URL.Path
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		_, _ = w.Write([]byte(`{"audioFile":"https://cdn.example/a.mp3","audioLengthInSeconds":1.5}`))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "secret", APIBaseURL: server.URL + "/v1/", VoiceID: "en-US-ken", Format: "WAV"}, server.Client(), log.New(io.Discard))
	audioURL, err := c.Synthesize(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if audioURL != "https://cdn.example/a.mp3" {
		t.Fatalf("unexpected audio url: %q", audioURL)
	}
	if gotKey != "secret" || gotMethod != http.MethodPost || gotPath != "/v1/speech/generate" {
		t.Fatalf("unexpected request: key=%q method=%q path=%q", gotKey, gotMethod, gotPath)
	}
	if got.Text != "Hello there" || got.VoiceID != "en-US-ken" || got.Format != "WAV" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestSynthesizeMissingAudioFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"audioLengthInSeconds":0}`))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "k", APIBaseURL: server.URL}, server.Client(), log.New(io.Discard))
	if _, err := c.Synthesize(context.Background(), "x"); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestSynthesizeErrorPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errorMessage":"invalid api key","errorCode":401}`))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "k", APIBaseURL: server.URL}, server.Client(), log.New(io.Discard))
	_, err := c.Synthesize(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "invalid api key" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestSynthesizeNonJSONError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "k", APIBaseURL: server.URL}, server.Client(), log.New(io.Discard))
	_, err := c.Synthesize(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "upstream down" {
		t.Fatalf("expected raw body message, got %v", err)
	}
}

func TestSynthesizeTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(Config{APIKey: "k", APIBaseURL: url}, nil, log.New(io.Discard))
	_, err := c.Synthesize(context.Background(), "x")
	if err == nil || errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
