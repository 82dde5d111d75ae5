package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/ports"
)

// pumpAudioChunks forwards microphone audio to the recognizer until capture
// ends, then closes the send side so the recognizer can flush its results.
func pumpAudioChunks(
	audio ports.AudioSession,
	stream ports.StreamingSession,
	chunkSize int,
	done chan<- error,
) {
	var err error
	defer func() {
		_ = stream.CloseSend()
		done <- err
	}()

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, readErr := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				err = asRecognitionError(domain.RecognitionErrorNetwork, fmt.Errorf("failed to stream audio: %w", sendErr))
				return
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && !errors.Is(readErr, os.ErrClosed) {
				err = asRecognitionError(domain.RecognitionErrorAudioCapture, fmt.Errorf("audio capture error: %w", readErr))
			}
			return
		}
	}
}

// closeAfter force-closes the stream if it has not finished within timeout.
func closeAfter(stream ports.StreamingSession, finished <-chan struct{}, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-finished:
	case <-timer.C:
		_ = stream.Close()
	}
}

func asRecognitionError(code string, err error) error {
	if err == nil {
		return nil
	}
	var recErr *domain.RecognitionError
	if errors.As(err, &recErr) {
		return recErr
	}
	return &domain.RecognitionError{Code: code, Err: err}
}

func recognitionCode(err error) string {
	if errors.Is(err, context.Canceled) {
		return domain.RecognitionErrorAborted
	}
	var recErr *domain.RecognitionError
	if errors.As(err, &recErr) && recErr.Code != "" {
		return recErr.Code
	}
	return domain.RecognitionErrorNetwork
}
