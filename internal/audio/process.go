package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Available reports whether command resolves to an executable.
func Available(command string) bool {
	if strings.TrimSpace(command) == "" {
		return false
	}
	_, err := exec.LookPath(command)
	return err == nil
}

// ignoreExitStatus drops the error a subprocess returns when it is signalled
// or exits non-zero on shutdown.
func ignoreExitStatus(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func withStderr(err error, stderr *lockedBuffer) error {
	if err == nil || stderr == nil {
		return err
	}
	if detail := stderr.Trimmed(); detail != "" {
		return fmt.Errorf("%w: %s", err, detail)
	}
	return err
}

// lockedBuffer collects subprocess stderr while the process may still write to it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Trimmed() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}
