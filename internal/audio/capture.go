package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"pdfnarrator/internal/ports"
)

const (
	captureStartupWindow = 250 * time.Millisecond
	captureStopTimeout   = 1200 * time.Millisecond
)

// Capture streams microphone PCM (s16le) from an ffmpeg subprocess.
type Capture struct {
	command string
}

func NewCapture(command string) *Capture {
	if command == "" {
		command = "ffmpeg"
	}
	return &Capture{command: command}
}

// Available reports whether the capture binary can be found.
func (c *Capture) Available() bool {
	return Available(c.command)
}

func (c *Capture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cmd := exec.CommandContext(ctx, c.command, captureArgs(cfg)...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open capture stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.command, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	// A capture that dies immediately (bad device, bad format) is reported here
	// rather than as an empty stream later.
	select {
	case err := <-exited:
		if err == nil {
			err = errors.New("no audio produced")
		}
		return nil, withStderr(fmt.Errorf("capture exited before it started: %w", err), stderr)
	case <-time.After(captureStartupWindow):
	}

	return &captureSession{stdout: stdout, stderr: stderr, process: cmd.Process, exited: exited}, nil
}

func captureArgs(cfg ports.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

type captureSession struct {
	stdout  io.ReadCloser
	stderr  *lockedBuffer
	process *os.Process
	exited  <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *captureSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *captureSession) Close() error {
	return s.Stop()
}

// Stop interrupts the subprocess, escalating to kill after a grace period.
func (s *captureSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		var waitErr error
		select {
		case err, ok := <-s.exited:
			if ok {
				waitErr = err
			}
		case <-time.After(captureStopTimeout):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.exited; ok {
				waitErr = err
			}
		}
		s.stopErr = ignoreExitStatus(waitErr)

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = err
		}
		s.stopErr = withStderr(s.stopErr, s.stderr)
	})
	return s.stopErr
}
