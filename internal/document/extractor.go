package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

var ErrEmptyDocument = errors.New("document is empty")

// ExtractError reports a document that could not be read. Page is zero when the
// failure happened before any page was visited.
type ExtractError struct {
	Page int
	Err  error
}

func (e *ExtractError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("failed to read page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("failed to read document: %v", e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

type pageSource interface {
	NumPage() int
	PageFragments(num int) ([]string, error)
}

type openFunc func(data []byte) (pageSource, error)

// Extractor produces the plain text of a PDF, page by page.
type Extractor struct {
	open   openFunc
	logger *log.Logger
}

func NewExtractor(logger *log.Logger) *Extractor {
	return &Extractor{open: openPDF, logger: logger}
}

// Extract returns the text of every page in order, fragments and pages joined
// by single spaces and the whole trimmed. Either the full text is returned or
// an error; there is no partial result.
func (e *Extractor) Extract(ctx context.Context, data []byte) (text string, pages int, err error) {
	if len(data) == 0 {
		return "", 0, ErrEmptyDocument
	}

	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = &ExtractError{Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	source, err := e.open(data)
	if err != nil {
		return "", 0, &ExtractError{Err: err}
	}

	count := source.NumPage()
	if count <= 0 {
		return "", 0, &ExtractError{Err: errors.New("document has no pages")}
	}

	pageTexts := make([]string, 0, count)
	for num := 1; num <= count; num++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		fragments, err := source.PageFragments(num)
		if err != nil {
			return "", 0, &ExtractError{Page: num, Err: err}
		}
		pageTexts = append(pageTexts, strings.Join(fragments, " "))
		e.logger.Debug("page extracted", "page", num, "of", count, "fragments", len(fragments))
	}

	return strings.TrimSpace(strings.Join(pageTexts, " ")), count, nil
}
