package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Player plays an audio URL with ffplay and returns once playback ends.
type Player struct {
	command string
}

func NewPlayer(command string) *Player {
	if command == "" {
		command = "ffplay"
	}
	return &Player{command: command}
}

// Available reports whether the player binary can be found.
func (p *Player) Available() bool {
	return Available(p.command)
}

func (p *Player) Play(ctx context.Context, audioURL string) error {
	if strings.TrimSpace(audioURL) == "" {
		return errors.New("audio url is empty")
	}

	cmd := exec.CommandContext(ctx, p.command,
		"-nodisp",
		"-autoexit",
		"-hide_banner",
		"-loglevel", "error",
		audioURL,
	)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return withStderr(fmt.Errorf("playback failed: %w", err), stderr)
	}
	return nil
}
