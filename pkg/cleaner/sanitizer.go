// pkg/cleaner/sanitizer.go
package cleaner

import (
	"strings"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

// MinColumnFill is the non-null fraction a column needs to survive sanitizing
const MinColumnFill = 0.9

// indexColumns are incidental index columns left behind by earlier exports
var indexColumns = map[string]bool{
	"index":      true,
	"level_0":    true,
	"unnamed: 0": true,
}

// Sanitize removes duplicate rows, all-null rows, columns that are less than
// 90% filled and incidental index columns, in that order. The fill threshold
// is computed against the row count left after row removal.
// Rounds repeat until nothing changes, so Sanitize(Sanitize(t)) == Sanitize(t).
func Sanitize(t model.Table) (model.Table, model.Report) {
	var report model.Report
	for {
		next, round := sanitizeOnce(t)
		if len(round.Operations) == 0 {
			return next, report
		}
		report.Merge(round)
		t = next
	}
}

func sanitizeOnce(t model.Table) (model.Table, model.Report) {
	var report model.Report

	before := t.NumRows()
	t = dropDuplicates(t)
	report.Add(model.OpRowDropped, "", "duplicate_row", before-t.NumRows())

	before = t.NumRows()
	t = dropNullRows(t)
	report.Add(model.OpRowDropped, "", "all_null_row", before-t.NumRows())

	var sparse []string
	rows := float64(t.NumRows())
	for _, col := range t.Columns() {
		filled := float64(t.NumRows() - t.NullCount(col))
		if filled < MinColumnFill*rows {
			sparse = append(sparse, col)
			report.Add(model.OpColumnDropped, col, "sparse_column", 1)
		}
	}
	t = t.DropColumns(sparse...)

	var incidental []string
	for _, col := range t.Columns() {
		if isIndexColumn(col) {
			incidental = append(incidental, col)
			report.Add(model.OpColumnDropped, col, "index_column", 1)
		}
	}
	t = t.DropColumns(incidental...)

	return t, report
}

// dropDuplicates keeps the first occurrence of every distinct row
func dropDuplicates(t model.Table) model.Table {
	seen := make(map[string]bool, t.NumRows())
	return t.FilterRows(func(i int) bool {
		key := t.RowKey(i)
		if seen[key] {
			return false
		}
		seen[key] = true
		return true
	})
}

func dropNullRows(t model.Table) model.Table {
	return t.FilterRows(func(i int) bool { return !t.IsNullRow(i) })
}

func isIndexColumn(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return indexColumns[lower] || strings.HasPrefix(lower, "unnamed")
}
