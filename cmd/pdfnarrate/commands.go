package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pdfnarrator/internal/bootstrap"
	"pdfnarrator/internal/config"
	"pdfnarrator/internal/document"
	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/logging"
	"pdfnarrator/internal/narration"
	"pdfnarrator/internal/ports"
	"pdfnarrator/internal/usecase"
)

// remoteOutput is speech output that can be waited on before exit.
type remoteOutput interface {
	ports.SpeechOutput
	Wait()
}

type transcriber interface {
	Supported() bool
	Start(ctx context.Context) error
	Stop() error
	Done() <-chan struct{}
}

type deps struct {
	load             func() (config.Config, *log.Logger, error)
	newExtractor     func(logger *log.Logger) ports.DocumentExtractor
	newOutput        func(cfg config.Config, logger *log.Logger) remoteOutput
	newTranscription func(cfg config.Config, sink ports.EventSink, logger *log.Logger) transcriber
	signals          func(ctx context.Context) (context.Context, context.CancelFunc)
}

func defaultDeps() deps {
	return deps{
		load: bootstrap.Load,
		newExtractor: func(logger *log.Logger) ports.DocumentExtractor {
			return document.NewExtractor(logging.Component(logger, "document"))
		},
		newOutput: func(cfg config.Config, logger *log.Logger) remoteOutput {
			return bootstrap.NewRemoteOutput(cfg, logger)
		},
		newTranscription: func(cfg config.Config, sink ports.EventSink, logger *log.Logger) transcriber {
			return bootstrap.NewTranscription(cfg, sink, logger)
		},
		signals: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		},
	}
}

type cli struct {
	deps   deps
	cfg    config.Config
	logger *log.Logger

	mood      string
	narration string
}

func newRootCmd(d deps) *cobra.Command {
	c := &cli{deps: d}

	root := &cobra.Command{
		Use:           "pdfnarrate",
		Short:         "Read PDFs aloud and transcribe the microphone",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, logger, err := c.deps.load()
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logger
			return nil
		},
	}

	extractCmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the text of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := c.extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	transformCmd := &cobra.Command{
		Use:   "transform FILE",
		Short: "Print a PDF's text as it would be narrated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := c.narrated(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	speakCmd := &cobra.Command{
		Use:   "speak FILE",
		Short: "Narrate a PDF through the remote speech service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.speak(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Transcribe the microphone until interrupted or the recognizer ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.listen(cmd.Context(), cmd.OutOrStdout())
		},
	}

	for _, cmd := range []*cobra.Command{transformCmd, speakCmd} {
		cmd.Flags().StringVar(&c.mood, "mood", "", "tone prefix: calm, jolly or serious")
		cmd.Flags().StringVar(&c.narration, "narration", "", "narration style: short, bullet or descriptive")
	}

	root.AddCommand(extractCmd, transformCmd, speakCmd, listenCmd)
	return root
}

func (c *cli) extract(ctx context.Context, path string) (string, error) {
	ctx = contextOrBackground(ctx)
	if err := document.ValidateMediaType(document.MediaTypeForPath(path)); err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := document.ValidateSize(len(data), c.cfg.Document.MaxBytes); err != nil {
		return "", err
	}

	text, pages, err := c.deps.newExtractor(c.logger).Extract(ctx, data)
	if err != nil {
		return "", err
	}
	c.logger.Debug("document extracted", "file", filepath.Base(path), "pages", pages, "chars", len(text))
	return text, nil
}

func (c *cli) narrated(ctx context.Context, path string) (string, error) {
	text, err := c.extract(ctx, path)
	if err != nil {
		return "", err
	}
	return narration.Transform(text, narration.ParseMood(c.mood), narration.ParseStyle(c.narration)), nil
}

func (c *cli) speak(ctx context.Context, out io.Writer, path string) error {
	text, err := c.narrated(ctx, path)
	if err != nil {
		return err
	}

	ctx, stop := c.deps.signals(contextOrBackground(ctx))
	defer stop()

	output := c.deps.newOutput(c.cfg, c.logger)
	req := domain.SpeechRequest{Text: text, Language: c.cfg.Speech.Language, Rate: c.cfg.Speech.Speed}
	if err := output.Speak(ctx, req, newConsoleDisplay(out)); err != nil {
		return err
	}
	output.Wait()
	return nil
}

var errRecognitionUnavailable = errors.New("speech recognition unavailable: set DEEPGRAM_API_KEY and install ffmpeg")

func (c *cli) listen(ctx context.Context, out io.Writer) error {
	ctx, stop := c.deps.signals(contextOrBackground(ctx))
	defer stop()

	sink := &consoleSink{out: out}
	transcription := c.deps.newTranscription(c.cfg, sink, c.logger)
	if !transcription.Supported() {
		return errRecognitionUnavailable
	}
	if err := transcription.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return transcription.Stop()
	case <-transcription.Done():
		return nil
	}
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// consoleDisplay prints every display write on its own line.
type consoleDisplay struct {
	mu   sync.Mutex
	out  io.Writer
	text string
}

func newConsoleDisplay(out io.Writer) *consoleDisplay {
	return &consoleDisplay{out: out}
}

func (d *consoleDisplay) Set(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	fmt.Fprintln(d.out, text)
}

func (d *consoleDisplay) Append(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text += text
	fmt.Fprintln(d.out, text)
}

func (d *consoleDisplay) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// consoleSink prints each distinct mic transcript and any notice.
type consoleSink struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func (s *consoleSink) TranscriptChanged(string) {}

func (s *consoleSink) MicTranscriptChanged(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == s.last {
		return
	}
	s.last = text
	fmt.Fprintln(s.out, text)
}

func (s *consoleSink) ListeningChanged(domain.ListeningState) {}

func (s *consoleSink) SpeedChanged(string) {}

func (s *consoleSink) Notice(code domain.NoticeCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s: %s\n", code, message)
}

var _ ports.EventSink = (*consoleSink)(nil)
var _ ports.Display = (*consoleDisplay)(nil)
var _ transcriber = (*usecase.TranscriptionController)(nil)
