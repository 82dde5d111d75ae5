package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"pdfnarrator/internal/domain"
)

// Config stores runtime configuration.
type Config struct {
	Speech   SpeechConfig
	Murf     MurfConfig
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Session  SessionConfig
	Document DocumentConfig
	LogLevel string `env:"PDFNARRATOR_LOG_LEVEL" envDefault:"info"`
}

type SpeechConfig struct {
	Policy        domain.SpeechPolicy `env:"PDFNARRATOR_SPEECH_POLICY" envDefault:"ondevice"`
	PlayerCommand string              `env:"PDFNARRATOR_PLAYER_COMMAND" envDefault:"ffplay"`
	Language      string              `env:"PDFNARRATOR_LANGUAGE" envDefault:"en-US"`
	Speed         float64             `env:"PDFNARRATOR_SPEED" envDefault:"1"`
}

type MurfConfig struct {
	APIKey     string        `env:"MURF_API_KEY"`
	APIBaseURL string        `env:"MURF_API_BASE" envDefault:"https://api.murf.ai/v1"`
	VoiceID    string        `env:"MURF_VOICE_ID" envDefault:"en-US-natalie"`
	Format     string        `env:"MURF_FORMAT" envDefault:"MP3"`
	Timeout    time.Duration `env:"MURF_TIMEOUT" envDefault:"90s"`
}

type DeepgramConfig struct {
	APIKey      string `env:"DEEPGRAM_API_KEY"`
	APIBaseURL  string `env:"DEEPGRAM_API_BASE" envDefault:"https://api.deepgram.com/v1"`
	Model       string `env:"DEEPGRAM_MODEL" envDefault:"nova-2"`
	Language    string `env:"DEEPGRAM_LANGUAGE"`
	SmartFormat bool   `env:"DEEPGRAM_SMART_FORMAT" envDefault:"true"`
}

type AudioConfig struct {
	RecorderCommand string `env:"PDFNARRATOR_FFMPEG_COMMAND" envDefault:"ffmpeg"`
	InputFormat     string `env:"PDFNARRATOR_AUDIO_INPUT_FORMAT" envDefault:"pulse"`
	InputDevice     string `env:"PDFNARRATOR_AUDIO_INPUT_DEVICE" envDefault:"default"`
	SampleRate      int    `env:"PDFNARRATOR_SAMPLE_RATE" envDefault:"16000"`
	Channels        int    `env:"PDFNARRATOR_CHANNELS" envDefault:"1"`
}

type SessionConfig struct {
	ChunkSize   int           `env:"PDFNARRATOR_AUDIO_CHUNK_SIZE" envDefault:"4096"`
	StopTimeout time.Duration `env:"PDFNARRATOR_STOP_TIMEOUT" envDefault:"4s"`
}

type DocumentConfig struct {
	MaxBytes int64 `env:"PDFNARRATOR_MAX_DOCUMENT_BYTES" envDefault:"52428800"`
}

// Load reads an optional .env file, then the environment. Values out of range
// fall back to their defaults.
func Load() (Config, error) {
	if err := loadDotEnv(strings.TrimSpace(os.Getenv("PDFNARRATOR_ENV_FILE"))); err != nil {
		return Config{}, err
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	normalize(&cfg)
	return cfg, nil
}

// loadDotEnv never overrides variables already set in the environment.
func loadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.Murf.APIKey = strings.TrimSpace(cfg.Murf.APIKey)
	cfg.Deepgram.APIKey = strings.TrimSpace(cfg.Deepgram.APIKey)

	switch domain.SpeechPolicy(strings.ToLower(strings.TrimSpace(string(cfg.Speech.Policy)))) {
	case domain.SpeechPolicyRemote:
		cfg.Speech.Policy = domain.SpeechPolicyRemote
	default:
		cfg.Speech.Policy = domain.SpeechPolicyOnDevice
	}

	if strings.TrimSpace(cfg.Speech.Language) == "" {
		cfg.Speech.Language = "en-US"
	}
	if math.IsNaN(cfg.Speech.Speed) || cfg.Speech.Speed < 0.5 || cfg.Speech.Speed > 2 {
		cfg.Speech.Speed = 1
	}
	if cfg.Murf.Timeout <= 0 {
		cfg.Murf.Timeout = 90 * time.Second
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.StopTimeout <= 0 {
		cfg.Session.StopTimeout = 4 * time.Second
	}
	if cfg.Document.MaxBytes <= 0 {
		cfg.Document.MaxBytes = 50 << 20
	}
}
