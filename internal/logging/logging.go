package logging

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// New builds the process logger. Unknown levels fall back to info.
func New(w io.Writer, level string) *log.Logger {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           parsed,
		Prefix:          "pdfnarrator",
	})
}

// Component derives a logger tagged with the component name.
func Component(logger *log.Logger, name string) *log.Logger {
	return logger.With("component", name)
}
