package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_NormalizesAndCopies(t *testing.T) {
	name := "Guy"
	rows := [][]interface{}{
		{int32(1), []byte("a"), float32(1.5), &name},
		{uint8(2), "b", math.NaN()},
	}
	tbl := NewTable([]string{"id", "code", "score", "name"}, rows)

	assert.Equal(t, int64(1), tbl.Value(0, "id"))
	assert.Equal(t, "a", tbl.Value(0, "code"))
	assert.Equal(t, 1.5, tbl.Value(0, "score"))
	assert.Equal(t, "Guy", tbl.Value(0, "name"))
	assert.Nil(t, tbl.Value(1, "score"), "NaN becomes null")
	assert.Nil(t, tbl.Value(1, "name"), "short rows are padded")

	rows[0][0] = int64(99)
	assert.Equal(t, int64(1), tbl.Value(0, "id"))

	out := tbl.Rows()
	out[0][0] = int64(42)
	assert.Equal(t, int64(1), tbl.Value(0, "id"))

	assert.Nil(t, tbl.Value(5, "id"))
	assert.Nil(t, tbl.Value(0, "missing"))
}

func TestNewTableFromRecords(t *testing.T) {
	records := []map[string]interface{}{
		{"b": 1, "a": "x"},
		{"c": true, "a": "y"},
	}

	tbl := NewTableFromRecords(records)
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns())
	assert.Equal(t, int64(1), tbl.Value(0, "b"))
	assert.Nil(t, tbl.Value(1, "b"))
	assert.Equal(t, true, tbl.Value(1, "c"))

	explicit := NewTableFromRecords(records, "c", "a")
	assert.Equal(t, []string{"c", "a"}, explicit.Columns())
}

func TestTable_TransformsLeaveReceiverUnchanged(t *testing.T) {
	tbl := NewTable([]string{"id", "name"}, [][]interface{}{
		{int64(1), "a"},
		{int64(2), nil},
		{int64(3), "c"},
	})
	before := tbl.Rows()

	upper := tbl.MapColumn("name", func(v interface{}) interface{} {
		if s, ok := v.(string); ok {
			return s + s
		}
		return v
	})
	assert.Equal(t, "aa", upper.Value(0, "name"))

	withCol, err := tbl.WithColumn("flag", []interface{}{true, false, true})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "flag"}, withCol.Columns())

	_, err = tbl.WithColumn("flag", []interface{}{true})
	assert.Error(t, err)

	derived := tbl.MapRows("name", func(row map[string]interface{}) interface{} {
		return row["id"]
	})
	assert.Equal(t, int64(2), derived.Value(1, "name"))

	dropped := tbl.DropColumns("name", "unknown")
	assert.Equal(t, []string{"id"}, dropped.Columns())

	filtered := tbl.FilterRows(func(i int) bool { return tbl.Value(i, "name") != nil })
	assert.Equal(t, 2, filtered.NumRows())

	selected := tbl.Select("name", "id")
	assert.Equal(t, []string{"name", "id"}, selected.Columns())

	assert.Equal(t, before, tbl.Rows())
	assert.Equal(t, []string{"id", "name"}, tbl.Columns())
}

func TestTable_NullsAndKeys(t *testing.T) {
	ts := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	tbl := NewTable([]string{"a", "b"}, [][]interface{}{
		{int64(1), ts},
		{nil, nil},
		{"1", ts},
		{int64(1), ts},
	})

	assert.Equal(t, 1, tbl.NullCount("a"))
	assert.Equal(t, 0, tbl.NullCount("missing"))
	assert.True(t, tbl.IsNullRow(1))
	assert.False(t, tbl.IsNullRow(0))

	assert.Equal(t, tbl.RowKey(0), tbl.RowKey(3))
	assert.NotEqual(t, tbl.RowKey(0), tbl.RowKey(2), "int and string keys differ")

	col, ok := tbl.Column("a")
	require.True(t, ok)
	assert.Len(t, col, 4)
	_, ok = tbl.Column("missing")
	assert.False(t, ok)
}

func TestTable_Equal(t *testing.T) {
	a := NewTable([]string{"x"}, [][]interface{}{{int64(1)}, {"b"}})
	b := NewTable([]string{"x"}, [][]interface{}{{1}, {[]byte("b")}})
	c := NewTable([]string{"y"}, [][]interface{}{{int64(1)}, {"b"}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(a.FilterRows(func(i int) bool { return i == 0 })))
}

func TestReport(t *testing.T) {
	var r Report
	r.Add(OpRowDropped, "", "duplicate_row", 2)
	r.Add(OpRowDropped, "", "all_null_row", 0)
	r.Add(OpColumnDropped, "index", "index_column", 0)
	r.Add(OpValueNulled, "country_code", "not_in_set", 3)

	require.Len(t, r.Operations, 3)
	assert.Equal(t, 2, r.Total(OpRowDropped))
	assert.Equal(t, 1, r.Total(OpColumnDropped))

	var other Report
	other.Add(OpValueNulled, "phone_number", "bad_string", 1)
	r.Merge(other)
	assert.Equal(t, 4, r.Total(OpValueNulled))

	stamped := r.Stamp("run-1", "stores", "dim_store_details")
	for _, op := range stamped.Operations {
		assert.Equal(t, "run-1", op.RunID)
		assert.Equal(t, "stores", op.Entity)
		assert.Equal(t, "dim_store_details", op.TableName)
	}
	assert.Empty(t, r.Operations[0].RunID, "stamp copies")
}

func TestTableMetadata_ColumnNames(t *testing.T) {
	md := TableMetadata{Columns: []Column{{Name: "id", PgType: "BIGINT"}, {Name: "name", PgType: "TEXT"}}}
	assert.Equal(t, []string{"id", "name"}, md.ColumnNames())
}
