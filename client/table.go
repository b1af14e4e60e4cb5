package client

import (
	"fmt"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

// Table is the tabular result of a query: unique column names, each holding
// the same number of values. A nil *Table behaves as an empty table.
type Table struct {
	columns []string
	data    map[string][]any
	rows    int
}

// NewTable builds a table from row-major values. Every row must have one
// value per column.
func NewTable(columns []string, rows [][]any) (*Table, error) {
	t, err := emptyTable(columns)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, gdserrors.NewValidationError("client.NewTable",
				fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(columns)))
		}
		for j, col := range columns {
			t.data[col] = append(t.data[col], row[j])
		}
	}
	t.rows = len(rows)
	return t, nil
}

// NewTableFromColumns builds a table from column-major values.
func NewTableFromColumns(columns []string, data map[string][]any) (*Table, error) {
	t, err := emptyTable(columns)
	if err != nil {
		return nil, err
	}
	if len(data) != len(columns) {
		return nil, gdserrors.NewValidationError("client.NewTableFromColumns",
			fmt.Sprintf("got %d columns of data for %d column names", len(data), len(columns)))
	}
	for i, col := range columns {
		values, ok := data[col]
		if !ok {
			return nil, gdserrors.NewValidationError("client.NewTableFromColumns",
				fmt.Sprintf("missing data for column %q", col))
		}
		if i == 0 {
			t.rows = len(values)
		} else if len(values) != t.rows {
			return nil, gdserrors.NewValidationError("client.NewTableFromColumns",
				fmt.Sprintf("column %q has %d values, expected %d", col, len(values), t.rows))
		}
		t.data[col] = append([]any(nil), values...)
	}
	return t, nil
}

func emptyTable(columns []string) (*Table, error) {
	t := &Table{
		columns: append([]string(nil), columns...),
		data:    make(map[string][]any, len(columns)),
	}
	for _, col := range columns {
		if _, dup := t.data[col]; dup {
			return nil, gdserrors.NewValidationError("client.NewTable",
				fmt.Sprintf("duplicate column %q", col))
		}
		t.data[col] = nil
	}
	return t, nil
}

// Columns returns the column names in result order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.data[name]
	return ok
}

// Column returns a copy of the values of one column.
func (t *Table) Column(name string) ([]any, bool) {
	if t == nil {
		return nil, false
	}
	values, ok := t.data[name]
	if !ok {
		return nil, false
	}
	return append([]any(nil), values...), true
}

// Row returns row i as a map keyed by column name. It panics if i is out of
// range, like a slice index.
func (t *Table) Row(i int) Row {
	if i < 0 || i >= t.Len() {
		panic(fmt.Sprintf("client: row index %d out of range [0, %d)", i, t.Len()))
	}
	row := make(Row, len(t.columns))
	for _, col := range t.columns {
		row[col] = t.data[col][i]
	}
	return row
}

// Rows returns every row in order.
func (t *Table) Rows() []Row {
	out := make([]Row, t.Len())
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// Row is one result record keyed by column name.
type Row map[string]any

// Get returns the raw value of key.
func (r Row) Get(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// GetString returns key as a string.
func (r Row) GetString(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// GetInt64 returns key as an int64. Any Go integer type is accepted.
func (r Row) GetInt64(key string) (int64, bool) {
	return toInt64(r[key])
}

// GetFloat64 returns key as a float64. Integers are converted.
func (r Row) GetFloat64(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	if i, ok := toInt64(r[key]); ok {
		return float64(i), true
	}
	return 0, false
}

// GetBool returns key as a bool.
func (r Row) GetBool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// GetMap returns key as a nested map.
func (r Row) GetMap(key string) (map[string]any, bool) {
	m, ok := r[key].(map[string]any)
	return m, ok
}

// GetSlice returns key as a list. Typed string and integer slices are copied
// into []any.
func (r Row) GetSlice(key string) ([]any, bool) {
	return toSlice(r[key])
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []int64:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []float64:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	}
	return nil, false
}

func toStrings(v any) ([]string, bool) {
	if s, ok := v.(string); ok {
		return []string{s}, true
	}
	items, ok := toSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
