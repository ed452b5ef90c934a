// pkg/model/table.go
package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Table is an immutable, column-ordered set of rows.
// Every transform returns a new Table; the receiver is never modified.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

// NewTable builds a Table from column names and rows.
// Inputs are copied and scalar values normalized (see NormalizeValue).
// Short rows are padded with nulls, long rows are truncated.
func NewTable(columns []string, rows [][]interface{}) Table {
	cols := append([]string(nil), columns...)
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		row := make([]interface{}, len(cols))
		for j := range cols {
			if j < len(r) {
				row[j] = NormalizeValue(r[j])
			}
		}
		out[i] = row
	}
	return newTable(cols, out)
}

// NewTableFromRecords builds a Table from map records. Columns keep the order
// of first appearance across records unless explicit columns are given.
func NewTableFromRecords(records []map[string]interface{}, columns ...string) Table {
	if len(columns) == 0 {
		seen := make(map[string]bool)
		for _, rec := range records {
			for _, key := range sortedKeys(rec) {
				if !seen[key] {
					seen[key] = true
					columns = append(columns, key)
				}
			}
		}
	}

	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = rec[col]
		}
		rows[i] = row
	}
	return NewTable(columns, rows)
}

// newTable wraps already-normalized data without copying
func newTable(columns []string, rows [][]interface{}) Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return Table{columns: columns, index: index, rows: rows}
}

// Columns returns a copy of the column names
func (t Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// NumRows returns the number of rows
func (t Table) NumRows() int {
	return len(t.rows)
}

// NumColumns returns the number of columns
func (t Table) NumColumns() int {
	return len(t.columns)
}

// HasColumn reports whether the table has a column with the given name
func (t Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column's values
func (t Table) Column(name string) ([]interface{}, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	values := make([]interface{}, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[j]
	}
	return values, true
}

// Value returns the value at row i of the named column
func (t Table) Value(i int, name string) interface{} {
	j, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i][j]
}

// Row returns a copy of row i
func (t Table) Row(i int) []interface{} {
	return append([]interface{}(nil), t.rows[i]...)
}

// Rows returns a deep copy of all rows
func (t Table) Rows() [][]interface{} {
	out := make([][]interface{}, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// NullCount returns the number of null values in the named column
func (t Table) NullCount(name string) int {
	j, ok := t.index[name]
	if !ok {
		return 0
	}
	count := 0
	for _, row := range t.rows {
		if row[j] == nil {
			count++
		}
	}
	return count
}

// WithColumn returns a table where the named column holds values.
// A missing column is appended. values must have NumRows entries.
func (t Table) WithColumn(name string, values []interface{}) (Table, error) {
	if len(values) != len(t.rows) {
		return Table{}, fmt.Errorf("column %s has %d values, table has %d rows", name, len(values), len(t.rows))
	}

	columns := t.columns
	j, ok := t.index[name]
	if !ok {
		columns = append(t.Columns(), name)
		j = len(columns) - 1
	}

	rows := make([][]interface{}, len(t.rows))
	for i, row := range t.rows {
		next := make([]interface{}, len(columns))
		copy(next, row)
		next[j] = NormalizeValue(values[i])
		rows[i] = next
	}
	return newTable(columns, rows), nil
}

// MapColumn returns a table with fn applied to every value of the named column.
// A missing column leaves the table unchanged.
func (t Table) MapColumn(name string, fn func(interface{}) interface{}) Table {
	j, ok := t.index[name]
	if !ok {
		return t
	}
	rows := make([][]interface{}, len(t.rows))
	for i, row := range t.rows {
		next := append([]interface{}(nil), row...)
		next[j] = NormalizeValue(fn(row[j]))
		rows[i] = next
	}
	return newTable(t.columns, rows)
}

// MapRows returns a table where the named column is computed from each full row.
// A missing column leaves the table unchanged.
func (t Table) MapRows(name string, fn func(row map[string]interface{}) interface{}) Table {
	j, ok := t.index[name]
	if !ok {
		return t
	}
	rows := make([][]interface{}, len(t.rows))
	for i, row := range t.rows {
		rec := make(map[string]interface{}, len(t.columns))
		for k, c := range t.columns {
			rec[c] = row[k]
		}
		next := append([]interface{}(nil), row...)
		next[j] = NormalizeValue(fn(rec))
		rows[i] = next
	}
	return newTable(t.columns, rows)
}

// DropColumns returns a table without the named columns. Unknown names are ignored.
func (t Table) DropColumns(names ...string) Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return t.Select(keep...)
}

// Select returns a table with only the given columns, in the given order.
// Unknown names are ignored.
func (t Table) Select(names ...string) Table {
	columns := make([]string, 0, len(names))
	positions := make([]int, 0, len(names))
	for _, n := range names {
		if j, ok := t.index[n]; ok {
			columns = append(columns, n)
			positions = append(positions, j)
		}
	}
	rows := make([][]interface{}, len(t.rows))
	for i, row := range t.rows {
		next := make([]interface{}, len(positions))
		for k, j := range positions {
			next[k] = row[j]
		}
		rows[i] = next
	}
	return newTable(columns, rows)
}

// FilterRows returns a table with the rows for which keep returns true
func (t Table) FilterRows(keep func(i int) bool) Table {
	rows := make([][]interface{}, 0, len(t.rows))
	for i, row := range t.rows {
		if keep(i) {
			rows = append(rows, append([]interface{}(nil), row...))
		}
	}
	return newTable(t.Columns(), rows)
}

// IsNullRow reports whether every value of row i is null
func (t Table) IsNullRow(i int) bool {
	for _, v := range t.rows[i] {
		if v != nil {
			return false
		}
	}
	return true
}

// RowKey returns a canonical, type-tagged encoding of row i.
// Rows with equal values produce equal keys.
func (t Table) RowKey(i int) string {
	var sb strings.Builder
	for j, v := range t.rows[i] {
		if j > 0 {
			sb.WriteByte('\x1f')
		}
		sb.WriteString(valueKey(v))
	}
	return sb.String()
}

// Equal reports whether two tables have the same columns and values
func (t Table) Equal(other Table) bool {
	if len(t.columns) != len(other.columns) || len(t.rows) != len(other.rows) {
		return false
	}
	for i, c := range t.columns {
		if other.columns[i] != c {
			return false
		}
	}
	for i := range t.rows {
		if t.RowKey(i) != other.RowKey(i) {
			return false
		}
	}
	return true
}

// NormalizeValue maps driver and decoder scalars onto the kinds a Table holds:
// nil, string, int64, float64, bool and time.Time.
func NormalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return float64(val)
		}
		return int64(val)
	case float32:
		return NormalizeValue(float64(val))
	case float64:
		if math.IsNaN(val) {
			return nil
		}
		return val
	case *string:
		if val == nil {
			return nil
		}
		return *val
	default:
		return v
	}
}

func valueKey(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "n:"
	case string:
		return "s:" + val
	case int64:
		return "i:" + strconv.FormatInt(val, 10)
	case float64:
		return "f:" + strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(val)
	case time.Time:
		return "t:" + val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("o:%v", val)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
