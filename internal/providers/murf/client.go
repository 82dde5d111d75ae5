package murf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultAPIBaseURL = "https://api.murf.ai/v1"
	defaultVoiceID    = "en-US-natalie"
	defaultFormat     = "MP3"
	defaultTimeout    = 90 * time.Second
)

// ErrNoAudio means the service answered without an audio reference.
var ErrNoAudio = errors.New("no audio generated")

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("murf error %d", e.StatusCode)
	}
	return fmt.Sprintf("murf error %d: %s", e.StatusCode, e.Message)
}

// Config controls Murf speech generation.
type Config struct {
	APIKey     string
	APIBaseURL string
	VoiceID    string
	Format     string
	Timeout    time.Duration
}

// Client implements ports.SpeechSynthesizer against the Murf REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *log.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *log.Logger) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultVoiceID
	}
	if cfg.Format == "" {
		cfg.Format = defaultFormat
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

type generateRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	Format  string `json:"format"`
}

type generateResponse struct {
	AudioFile            string  `json:"audioFile"`
	AudioLengthInSeconds float64 `json:"audioLengthInSeconds"`
	ErrorMessage         string  `json:"errorMessage"`
	ErrorCode            int     `json:"errorCode"`
}

// Synthesize renders text and returns the URL of the generated audio file.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("MURF_API_KEY is not configured")
	}

	body, err := json.Marshal(generateRequest{Text: text, VoiceID: c.cfg.VoiceID, Format: c.cfg.Format})
	if err != nil {
		return "", fmt.Errorf("failed to encode murf request: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	endpoint := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/speech/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build murf request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("murf request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read murf response: %w", err)
	}

	var decoded generateResponse
	decodeErr := json.Unmarshal(payload, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(decoded.ErrorMessage)
		if decodeErr != nil || message == "" {
			message = strings.TrimSpace(string(payload))
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode murf response: %w", decodeErr)
	}
	if strings.TrimSpace(decoded.AudioFile) == "" {
		return "", ErrNoAudio
	}

	c.logger.Info("speech generated",
		"voice", c.cfg.VoiceID,
		"chars", len([]rune(text)),
		"audio_seconds", decoded.AudioLengthInSeconds,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return decoded.AudioFile, nil
}
