// pkg/extractor/pdf.go
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

// fragment is a run of text on one line of a page
type fragment struct {
	X, W, Size float64
	S          string
}

type textLine []fragment

// PDFExtractor downloads a document and reads the table laid out on its pages
type PDFExtractor struct {
	client *http.Client
	logger *zap.Logger
}

// NewPDFExtractor creates an extractor whose downloads give up after timeout
func NewPDFExtractor(timeout time.Duration, logger *zap.Logger) *PDFExtractor {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &PDFExtractor{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("pdf-extractor"),
	}
}

// Retrieve downloads the document at url and returns the table of all pages
// concatenated
func (p *PDFExtractor) Retrieve(ctx context.Context, url string) (model.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Table{}, newExtractionError(url, KindUnknown, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		kind, ok := classifyTransportError(err)
		if !ok {
			kind = KindUnknown
		}
		return model.Table{}, newExtractionError(url, kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Table{}, newExtractionError(url, kindForStatus(resp.StatusCode),
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Table{}, newExtractionError(url, KindTransient, err)
	}

	t, err := ParsePDFTable(data)
	if err != nil {
		return model.Table{}, newExtractionError(url, KindDecode, err)
	}

	p.logger.Info("Extracted PDF table",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Int("rows", t.NumRows()),
		zap.Strings("columns", t.Columns()))
	return t, nil
}

// ParsePDFTable reads a table from a PDF document held in memory
func ParsePDFTable(data []byte) (model.Table, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return model.Table{}, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages [][]textLine
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return model.Table{}, fmt.Errorf("failed to read page %d: %w", i, err)
		}

		lines := make([]textLine, 0, len(rows))
		for _, row := range rows {
			line := make(textLine, 0, len(row.Content))
			for _, text := range row.Content {
				line = append(line, fragment{X: text.X, W: text.W, Size: text.FontSize, S: text.S})
			}
			lines = append(lines, mergeFragments(line))
		}
		pages = append(pages, lines)
	}

	return layoutTable(pages), nil
}

// mergeFragments joins glyph runs separated by less than a character width
func mergeFragments(line textLine) textLine {
	var out textLine
	for _, f := range line {
		if n := len(out); n > 0 {
			last := &out[n-1]
			gap := f.X - (last.X + last.W)
			if gap <= last.Size {
				last.S += f.S
				last.W = f.X + f.W - last.X
				continue
			}
		}
		out = append(out, f)
	}

	merged := out[:0]
	for _, f := range out {
		f.S = strings.TrimSpace(f.S)
		if f.S != "" {
			merged = append(merged, f)
		}
	}
	return merged
}

// layoutTable uses the first line with at least two fragments as the header and
// buckets every later fragment into the header column it starts under.
// Header lines repeated on later pages are skipped.
func layoutTable(pages [][]textLine) model.Table {
	var header []string
	var starts []float64
	var rows [][]interface{}

	for _, lines := range pages {
		for _, line := range lines {
			if len(line) == 0 {
				continue
			}
			if header == nil {
				if len(line) < 2 {
					continue
				}
				header, starts = headerOf(line)
				continue
			}
			if sameHeader(header, line) {
				_, starts = headerOf(line)
				continue
			}

			cells := make([][]string, len(header))
			for _, f := range line {
				k := columnFor(starts, f)
				cells[k] = append(cells[k], f.S)
			}

			row := make([]interface{}, len(header))
			empty := true
			for k, parts := range cells {
				if len(parts) > 0 {
					row[k] = strings.Join(parts, " ")
					empty = false
				}
			}
			if !empty {
				rows = append(rows, row)
			}
		}
	}

	return model.NewTable(header, rows)
}

func headerOf(line textLine) ([]string, []float64) {
	names := make([]string, len(line))
	starts := make([]float64, len(line))
	for i, f := range line {
		names[i] = f.S
		starts[i] = f.X
	}
	return names, starts
}

func sameHeader(header []string, line textLine) bool {
	if len(header) != len(line) {
		return false
	}
	for i, f := range line {
		if f.S != header[i] {
			return false
		}
	}
	return true
}

// columnFor picks the last column starting at or before the fragment,
// allowing half a character of slack
func columnFor(starts []float64, f fragment) int {
	slack := f.Size / 2
	k := 0
	for i, start := range starts {
		if start <= f.X+slack {
			k = i
		}
	}
	return k
}
