// pkg/extractor/formats.go
package extractor

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

// Format is the encoding of an object storage file
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name. An empty name is allowed and means
// "infer from the object key".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// FormatFromKey infers the format from an object key suffix, defaulting to CSV
func FormatFromKey(key string) Format {
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return FormatJSON
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatCSV
	}
}

// Decode reads a whole table in the given format
func Decode(r io.Reader, format Format) (model.Table, error) {
	switch format {
	case FormatCSV, "":
		return decodeCSV(r)
	case FormatJSON:
		return decodeJSON(r)
	case FormatHTML:
		return decodeHTML(r)
	default:
		return model.Table{}, fmt.Errorf("unsupported format %q", format)
	}
}

// decodeCSV treats the first record as the header. Empty fields are null.
func decodeCSV(r io.Reader) (model.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return model.NewTable(nil, nil), nil
	}
	if err != nil {
		return model.Table{}, fmt.Errorf("failed to read csv header: %w", err)
	}
	// pandas writes the index column with an empty name
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	var rows [][]interface{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Table{}, fmt.Errorf("failed to read csv record %d: %w", len(rows)+1, err)
		}
		row := make([]interface{}, len(record))
		for i, field := range record {
			if field != "" {
				row[i] = field
			}
		}
		rows = append(rows, row)
	}
	return model.NewTable(header, rows), nil
}

// decodeJSON accepts an array of records or a column-oriented object
// ({"col": {"0": v, "1": v}} or {"col": [v, v]})
func decodeJSON(r io.Reader) (model.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Table{}, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return model.Table{}, errors.New("empty json document")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '[':
		var records []map[string]interface{}
		if err := dec.Decode(&records); err != nil {
			return model.Table{}, fmt.Errorf("failed to decode json records: %w", err)
		}
		for _, rec := range records {
			for k, v := range rec {
				rec[k] = normalizeJSON(v)
			}
		}
		return model.NewTableFromRecords(records), nil
	case '{':
		var columns map[string]json.RawMessage
		if err := dec.Decode(&columns); err != nil {
			return model.Table{}, fmt.Errorf("failed to decode json columns: %w", err)
		}
		return decodeColumnar(columns)
	default:
		return model.Table{}, errors.New("json document must be an array or an object")
	}
}

func decodeColumnar(raw map[string]json.RawMessage) (model.Table, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	cells := make(map[string]map[string]interface{}, len(names))
	indexSet := make(map[string]bool)
	for _, name := range names {
		values, err := decodeColumnValues(raw[name])
		if err != nil {
			return model.Table{}, fmt.Errorf("column %s: %w", name, err)
		}
		cells[name] = values
		for idx := range values {
			indexSet[idx] = true
		}
	}

	index := make([]string, 0, len(indexSet))
	for idx := range indexSet {
		index = append(index, idx)
	}
	sort.Slice(index, func(i, j int) bool { return indexLess(index[i], index[j]) })

	rows := make([][]interface{}, len(index))
	for i, idx := range index {
		row := make([]interface{}, len(names))
		for j, name := range names {
			row[j] = cells[name][idx]
		}
		rows[i] = row
	}
	return model.NewTable(names, rows), nil
}

func decodeColumnValues(raw json.RawMessage) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []interface{}
		if err := dec.Decode(&list); err != nil {
			return nil, err
		}
		out := make(map[string]interface{}, len(list))
		for i, v := range list {
			out[strconv.Itoa(i)] = normalizeJSON(v)
		}
		return out, nil
	}

	var byIndex map[string]interface{}
	if err := dec.Decode(&byIndex); err != nil {
		return nil, err
	}
	for k, v := range byIndex {
		byIndex[k] = normalizeJSON(v)
	}
	return byIndex, nil
}

// indexLess orders numeric row labels numerically and everything else after them
func indexLess(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

// normalizeJSON turns json.Number into int64 or float64, recursively
func normalizeJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]interface{}:
		for k, inner := range val {
			val[k] = normalizeJSON(inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = normalizeJSON(inner)
		}
		return val
	default:
		return v
	}
}

// decodeHTML reads the first <table> of the document; its first row is the header
func decodeHTML(r io.Reader) (model.Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return model.Table{}, fmt.Errorf("failed to parse html: %w", err)
	}

	table := findElement(doc, "table")
	if table == nil {
		return model.Table{}, errors.New("no table found in html document")
	}

	var header []string
	var rows [][]interface{}
	for _, tr := range findAll(table, "tr") {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, extractText(c))
			}
		}
		if len(cells) == 0 {
			continue
		}
		if header == nil {
			header = cells
			continue
		}
		row := make([]interface{}, len(cells))
		for i, cell := range cells {
			if cell != "" {
				row[i] = cell
			}
		}
		rows = append(rows, row)
	}

	for i, h := range header {
		if h == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	return model.NewTable(header, rows), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findAll collects matching descendants without descending into nested tables
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data == tag {
				out = append(out, c)
				continue
			}
			if c.Data == "table" {
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func extractText(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
