package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/ports"
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Provider implements ports.TranscriptionProvider for Deepgram live streaming.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *log.Logger
}

func NewProvider(cfg Config, logger *log.Logger) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Provider{cfg: cfg, dialer: websocket.DefaultDialer, logger: logger}
}

// Configured reports whether credentials are present.
func (p *Provider) Configured() bool {
	return strings.TrimSpace(p.cfg.APIKey) != ""
}

func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if !p.Configured() {
		return nil, &domain.RecognitionError{Code: domain.RecognitionErrorNotAllowed, Err: errors.New("DEEPGRAM_API_KEY is not configured")}
	}

	wsURL, err := buildListenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, resp, err := p.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		code := domain.RecognitionErrorNetwork
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			code = domain.RecognitionErrorNotAllowed
		}
		return nil, &domain.RecognitionError{Code: code, Err: fmt.Errorf("failed to connect to Deepgram: %w", err)}
	}
	p.logger.Debug("deepgram connected", "model", p.cfg.Model, "language", p.cfg.Language)

	session := newStreamingSession(conn)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-session.done:
		}
	}()
	return session, nil
}

type streamingSession struct {
	conn *websocket.Conn

	events   chan domain.RecognitionEvent
	audio    chan []byte
	sendDone chan struct{}
	readDone chan struct{}
	done     chan struct{}

	results resultIndexer

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
}

func newStreamingSession(conn *websocket.Conn) *streamingSession {
	s := &streamingSession{
		conn:     conn,
		events:   make(chan domain.RecognitionEvent, 64),
		audio:    make(chan []byte, 32),
		sendDone: make(chan struct{}),
		readDone: make(chan struct{}),
		done:     make(chan struct{}),
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()
	return s
}

func (s *streamingSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	select {
	case <-s.sendDone:
		return errors.New("audio stream is already closed")
	default:
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.sendDone:
		return errors.New("audio stream is already closed")
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("session closed")
	}
}

// CloseSend tells Deepgram no more audio follows; the session ends once the
// remaining results are delivered.
func (s *streamingSession) CloseSend() error {
	s.closeSendOnce.Do(func() {
		close(s.sendDone)
	})
	return nil
}

func (s *streamingSession) Events() <-chan domain.RecognitionEvent {
	return s.events
}

func (s *streamingSession) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *streamingSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *streamingSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// setErr records the first failure that is not an orderly close.
func (s *streamingSession) setErr(code string, err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || errors.Is(err, net.ErrClosed) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = &domain.RecognitionError{Code: code, Err: err}
	}
}

func (s *streamingSession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case chunk := <-s.audio:
			if !s.write(chunk) {
				return
			}
		case <-s.sendDone:
			if !s.flushQueued() {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
				s.setErr(domain.RecognitionErrorNetwork, fmt.Errorf("failed to close stream: %w", err))
			}
			return
		case <-s.readDone:
			return
		}
	}
}

// flushQueued sends audio that was queued before CloseSend.
func (s *streamingSession) flushQueued() bool {
	for {
		select {
		case chunk := <-s.audio:
			if !s.write(chunk) {
				return false
			}
		default:
			return true
		}
	}
}

func (s *streamingSession) write(chunk []byte) bool {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		s.setErr(domain.RecognitionErrorNetwork, fmt.Errorf("failed to send audio: %w", err))
		return false
	}
	return true
}

func (s *streamingSession) readLoop() {
	defer s.wg.Done()
	defer close(s.readDone)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(domain.RecognitionErrorNetwork, err)
			return
		}

		var response deepgramResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.setErr(domain.RecognitionErrorService, errors.New(message))
			return
		}

		transcript := extractTranscript(response)
		if transcript == "" {
			continue
		}
		s.events <- s.results.apply(transcript, response.IsFinal || response.SpeechFinal)
	}
}

// resultIndexer turns Deepgram's interim/final stream into indexed result
// slots: interim text replaces the open slot, final text closes it.
type resultIndexer struct {
	results []domain.RecognitionResult
}

func (x *resultIndexer) apply(transcript string, final bool) domain.RecognitionEvent {
	result := domain.RecognitionResult{Transcript: transcript, Final: final}

	index := len(x.results)
	if index > 0 && !x.results[index-1].Final {
		index--
		x.results[index] = result
	} else {
		x.results = append(x.results, result)
	}

	return domain.RecognitionEvent{ResultIndex: index, Results: []domain.RecognitionResult{result}}
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func extractTranscript(response deepgramResponse) string {
	if len(response.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(response.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(response.Results.Channels) > 0 && len(response.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(response.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

func buildListenURL(providerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}

	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	query := listenURL.Query()
	query.Set("model", providerCfg.Model)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", fmt.Sprintf("%d", streamCfg.SampleRate))
	query.Set("channels", fmt.Sprintf("%d", streamCfg.Channels))
	query.Set("interim_results", fmt.Sprintf("%t", streamCfg.InterimResults))
	query.Set("smart_format", fmt.Sprintf("%t", providerCfg.SmartFormat))
	if providerCfg.Language != "" {
		query.Set("language", providerCfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
