package document

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/samber/lo"
)

type pdfSource struct {
	reader *pdf.Reader
}

func openPDF(data []byte) (pageSource, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return pdfSource{reader: reader}, nil
}

func (s pdfSource) NumPage() int {
	return s.reader.NumPage()
}

// PageFragments returns one fragment per text row, glyph runs concatenated.
func (s pdfSource) PageFragments(num int) ([]string, error) {
	page := s.reader.Page(num)
	if page.V.IsNull() {
		return nil, nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}

	return lo.FilterMap(rows, func(row *pdf.Row, _ int) (string, bool) {
		var builder strings.Builder
		for _, run := range row.Content {
			builder.WriteString(run.S)
		}
		fragment := strings.TrimSpace(builder.String())
		return fragment, fragment != ""
	}), nil
}
