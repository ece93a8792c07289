package tabledb

import (
	"fmt"
	"slices"

	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// Constraint is a column constraint. The string form is the on-disk name.
type Constraint string

// Supported constraints.
const (
	PrimaryKey    Constraint = "primaryKey"
	AutoIncrement Constraint = "autoIncrement"
	NotNull       Constraint = "notNull"
	Unique        Constraint = "unique"
)

// Valid reports whether c is a known constraint.
func (c Constraint) Valid() bool {
	switch c {
	case PrimaryKey, AutoIncrement, NotNull, Unique:
		return true
	default:
		return false
	}
}

// Link points at a column of a table by name. Links are weak references: they
// are resolved against the database every time they are used.
type Link struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

func (l Link) String() string {
	return l.Table + "." + l.Column
}

// Column is a column definition.
//
// ForeignKey must target a primaryKey column. LinkedWith is the reverse index
// maintained by the engine: for every column whose ForeignKey targets this
// column it holds a Link back to that column. Callers never set it.
type Column struct {
	Name        string         `json:"name"`
	DataType    value.DataType `json:"dataType"`
	Constraints []Constraint   `json:"constraints,omitempty"`
	ForeignKey  *Link          `json:"foreignKey,omitempty"`
	LinkedWith  []Link         `json:"linkedWith,omitempty"`
	Default     any            `json:"default,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Has reports whether the column declares constraint c.
func (c *Column) Has(constraint Constraint) bool {
	return slices.Contains(c.Constraints, constraint)
}

// Clone returns a deep copy of c.
func (c *Column) Clone() Column {
	out := *c
	out.Constraints = slices.Clone(c.Constraints)
	out.LinkedWith = slices.Clone(c.LinkedWith)
	out.Default = value.Clone(c.Default)

	if c.ForeignKey != nil {
		fk := *c.ForeignKey
		out.ForeignKey = &fk
	}

	if c.Data != nil {
		out.Data, _ = value.Clone(c.Data).(map[string]any)
	}

	return out
}

// unlink removes every reverse link equal to l and reports whether one was found.
func (c *Column) unlink(l Link) bool {
	n := len(c.LinkedWith)
	c.LinkedWith = slices.DeleteFunc(c.LinkedWith, func(x Link) bool { return x == l })

	if len(c.LinkedWith) == 0 {
		c.LinkedWith = nil
	}

	return len(c.LinkedWith) != n
}

// RawTable is the at-rest shape of a table: column definitions plus positional
// rows, one raw value per column in column order.
type RawTable struct {
	Cols []Column `json:"cols"`
	Rows [][]any  `json:"rows"`
	Data any      `json:"data,omitempty"`
}

// Clone returns a value copy of t: new column definitions, new row slices,
// deep-copied JSON values.
func (t *RawTable) Clone() *RawTable {
	if t == nil {
		return nil
	}

	out := &RawTable{
		Cols: make([]Column, len(t.Cols)),
		Rows: make([][]any, len(t.Rows)),
		Data: value.Clone(t.Data),
	}

	for i := range t.Cols {
		out.Cols[i] = t.Cols[i].Clone()
	}

	for i, row := range t.Rows {
		cp := make([]any, len(row))
		for j, v := range row {
			cp[j] = value.Clone(v)
		}

		out.Rows[i] = cp
	}

	return out
}

// colIndex returns the position of the named column or -1.
func (t *RawTable) colIndex(name string) int {
	return slices.IndexFunc(t.Cols, func(c Column) bool { return c.Name == name })
}

// formatRow converts a positional row into a formatted row.
func (t *RawTable) formatRow(i int) Row {
	row := make(Row, len(t.Cols))
	for ci := range t.Cols {
		if ci < len(t.Rows[i]) {
			row[t.Cols[ci].Name] = t.Rows[i][ci]
		} else {
			row[t.Cols[ci].Name] = nil
		}
	}

	return row
}

// normalize converts every stored value into its column's canonical raw form
// and pads or trims rows to the column count. Used after loading from a store,
// where numbers may have been decoded as float64.
func (t *RawTable) normalize() error {
	for ri, row := range t.Rows {
		if len(row) != len(t.Cols) {
			fixed := make([]any, len(t.Cols))
			copy(fixed, row)
			row = fixed
			t.Rows[ri] = row
		}

		for ci := range t.Cols {
			v, err := value.Normalize(t.Cols[ci].DataType, row[ci])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", ri, t.Cols[ci].Name, err)
			}

			row[ci] = v
		}
	}

	if t.Rows == nil {
		t.Rows = [][]any{}
	}

	if t.Cols == nil {
		t.Cols = []Column{}
	}

	return nil
}

// RawDB is the at-rest shape of a whole database.
type RawDB struct {
	Tables map[string]*RawTable `json:"tables"`
	Data   any                  `json:"data,omitempty"`
}

// NewRawDB returns an empty database.
func NewRawDB() *RawDB {
	return &RawDB{Tables: map[string]*RawTable{}}
}

// Clone returns a deep copy of db.
func (db *RawDB) Clone() *RawDB {
	if db == nil {
		return nil
	}

	out := &RawDB{
		Tables: make(map[string]*RawTable, len(db.Tables)),
		Data:   value.Clone(db.Data),
	}

	for name, t := range db.Tables {
		out.Tables[name] = t.Clone()
	}

	return out
}
