package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/ports"
	"pdfnarrator/internal/providers/murf"
)

// ErrUnsupported is returned by operations the active speech output cannot perform.
var ErrUnsupported = errors.New("operation not supported by this speech output")

// Remote synthesizes speech through a remote voice service and plays the
// returned audio resource. A newer request cancels the playback of an older
// one; synthesis requests already sent run to completion.
type Remote struct {
	synthesizer ports.SpeechSynthesizer
	player      ports.AudioPlayer
	logger      *log.Logger

	mu         sync.Mutex
	generation uint64
	cancelPlay context.CancelFunc
	active     int

	wg sync.WaitGroup
}

func NewRemote(synthesizer ports.SpeechSynthesizer, player ports.AudioPlayer, logger *log.Logger) *Remote {
	return &Remote{synthesizer: synthesizer, player: player, logger: logger}
}

func (r *Remote) Policy() domain.SpeechPolicy {
	return domain.SpeechPolicyRemote
}

// Speak starts synthesis in the background and returns immediately. A newer
// Speak stops the playback of an older one and takes over the display.
func (r *Remote) Speak(ctx context.Context, req domain.SpeechRequest, display ports.Display) error {
	playCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.generation++
	generation := r.generation
	if r.cancelPlay != nil {
		r.cancelPlay()
	}
	r.cancelPlay = cancel
	r.active++
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release()
		defer cancel()
		r.run(ctx, playCtx, generation, req.Text, display)
	}()
	return nil
}

func (r *Remote) run(ctx, playCtx context.Context, generation uint64, text string, display ports.Display) {
	audioURL, err := r.synthesizer.Synthesize(ctx, text)
	if !r.current(generation) {
		r.logger.Debug("dropping superseded speech", "generation", generation)
		return
	}
	if err != nil {
		r.logger.Warn("speech synthesis failed", "err", err)
		if errors.Is(err, murf.ErrNoAudio) {
			r.write(generation, func() { display.Set(domain.TextNoAudioGenerated) })
			return
		}
		r.write(generation, func() { display.Set(domain.TextSynthesisFailed) })
		return
	}

	r.write(generation, func() { display.Set(domain.TextSpeakingRemote) })
	if err := r.player.Play(playCtx, audioURL); err != nil {
		if playCtx.Err() != nil {
			r.logger.Debug("playback superseded", "generation", generation)
			return
		}
		r.logger.Warn("audio playback failed", "err", err)
		r.write(generation, func() { display.Set(domain.TextPlaybackFailed) })
		return
	}
	r.write(generation, func() { display.Append(domain.TextDoneSpeaking) })
}

// write applies fn only while generation is still the latest request.
func (r *Remote) write(generation uint64, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if generation != r.generation {
		return
	}
	fn()
}

func (r *Remote) current(generation uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return generation == r.generation
}

func (r *Remote) release() {
	r.mu.Lock()
	r.active--
	r.mu.Unlock()
}

func (r *Remote) Pause() error {
	return ErrUnsupported
}

func (r *Remote) Stop(ports.Display) error {
	return ErrUnsupported
}

func (r *Remote) State() domain.PlaybackState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active > 0 {
		return domain.PlaybackStateSpeaking
	}
	return domain.PlaybackStateIdle
}

// Wait blocks until every started request has finished.
func (r *Remote) Wait() {
	r.wg.Wait()
}
