package chart

import (
	"fmt"
	"strconv"
)

// ColumnType is the inferred storage type of a column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeFloat
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	default:
		return "text"
	}
}

// Numeric reports whether the column holds int64 or float64 cells.
func (t ColumnType) Numeric() bool { return t == TypeInteger || t == TypeFloat }

// Row maps a column name to a scalar cell: int64, float64 or string.
type Row map[string]any

// Dataset is an ordered sequence of rows sharing one column set.
// Transformations in this package never mutate their input; they return a new Dataset.
type Dataset struct {
	Columns []string
	Rows    []Row

	types map[string]ColumnType
}

// NewDataset builds a dataset over the given columns. Column order is kept as given.
func NewDataset(columns []string, rows []Row) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Columns: cols, Rows: rows, types: map[string]ColumnType{}}
}

// FromRecords builds a dataset of text cells from a header and string records.
// Short records are padded with empty strings; extra fields are ignored.
func FromRecords(header []string, records [][]string) *Dataset {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(header))
		for i, name := range header {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			row[name] = v
		}
		rows = append(rows, row)
	}
	return NewDataset(header, rows)
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Has reports whether name is part of the schema.
func (d *Dataset) Has(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Type returns the recorded type of a column. Columns never normalized report TypeText.
func (d *Dataset) Type(name string) ColumnType {
	if d.types == nil {
		return TypeText
	}
	return d.types[name]
}

// Values returns the cells of one column in row order.
func (d *Dataset) Values(name string) []any {
	out := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[name]
	}
	return out
}

// Validate checks the shared column set invariant.
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if seen[c] {
			return newError(KindSchema, c, "duplicate column name")
		}
		seen[c] = true
	}
	for i, r := range d.Rows {
		for _, c := range d.Columns {
			if _, ok := r[c]; !ok {
				return newError(KindSchema, c, "row %d is missing a value", i)
			}
		}
	}
	return nil
}

// Clone returns a deep copy: rows are new maps and the type table is copied.
func (d *Dataset) Clone() *Dataset {
	return d.withRows(cloneRows(d.Rows))
}

// withRows shares nothing mutable with d except the given rows.
func (d *Dataset) withRows(rows []Row) *Dataset {
	out := NewDataset(d.Columns, rows)
	for k, v := range d.types {
		out.types[k] = v
	}
	return out
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// FormatCell renders a scalar the way it appears in previews and grouping keys.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
