package document

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

const MediaTypePDF = "application/pdf"

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrTooLarge             = errors.New("document exceeds size limit")
)

// ValidateMediaType accepts only a declared PDF media type. Parameters such as
// charset are ignored.
func ValidateMediaType(declared string) error {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return fmt.Errorf("%w: none declared", ErrUnsupportedMediaType)
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil || mediaType != MediaTypePDF {
		return fmt.Errorf("%w: %q", ErrUnsupportedMediaType, declared)
	}
	return nil
}

// ValidateSize rejects payloads above limit. A non-positive limit disables the check.
func ValidateSize(size int, limit int64) error {
	if limit > 0 && int64(size) > limit {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, size, limit)
	}
	return nil
}

// MediaTypeForPath declares a media type for a local file from its extension.
func MediaTypeForPath(path string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
}
