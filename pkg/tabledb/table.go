package tabledb

import (
	"slices"

	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// Table is a handle on a named table of a [DB]. Handles are cheap and hold no
// state of their own: every call resolves the table by name.
type Table struct {
	db   *DB
	name string
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Exists reports whether the table exists.
func (t *Table) Exists() bool {
	return t.db.read(t.name, func(*RawTable) error { return nil }) == nil
}

// Create creates the table with no columns.
func (t *Table) Create() error {
	_, err := t.db.mutate("create-table", t.name, func(tx *tx) (int, error) {
		if tx.touch(t.name) != nil {
			return 0, newError(ErrAlreadyExists, withEntity("table"), withTable(t.name))
		}

		tx.raw.Tables[t.name] = &RawTable{Cols: []Column{}, Rows: [][]any{}}

		return 0, nil
	})

	return err
}

// Drop drops every column of the table and then the table itself.
//
// Columns are dropped through the same checks as [Table.DropColumns], so a
// table whose columns are still referenced by other tables cannot be dropped.
// Foreign key columns go first, which lets a table referencing itself be
// dropped.
func (t *Table) Drop() error {
	_, err := t.db.mutate("drop-table", t.name, func(tx *tx) (int, error) {
		raw := tx.touch(t.name)
		if raw == nil {
			return 0, tableNotExists(t.name)
		}

		var withFK, rest []string

		for _, c := range raw.Cols {
			if c.ForeignKey != nil {
				withFK = append(withFK, c.Name)
			} else {
				rest = append(rest, c.Name)
			}
		}

		for _, name := range slices.Concat(withFK, rest) {
			if err := dropColumn(tx, t.name, name); err != nil {
				return 0, err
			}
		}

		rows := len(raw.Rows)
		delete(tx.raw.Tables, t.name)

		return rows, nil
	})

	return err
}

// Get returns a view over the table's current rows.
func (t *Table) Get() (*View, error) {
	var v *View

	err := t.db.read(t.name, func(raw *RawTable) error {
		v = NewView(raw.Cols, raw.Rows)
		v.table = t.name

		return nil
	})

	return v, err
}

// Columns returns a copy of the table's column definitions.
func (t *Table) Columns() ([]Column, error) {
	var cols []Column

	err := t.db.read(t.name, func(raw *RawTable) error {
		cols = cloneColumns(raw.Cols)

		return nil
	})

	return cols, err
}

// RowCount returns the number of rows, or 0 if the table does not exist.
func (t *Table) RowCount() int {
	n := 0

	_ = t.db.read(t.name, func(raw *RawTable) error {
		n = len(raw.Rows)

		return nil
	})

	return n
}

// ColumnCount returns the number of columns, or 0 if the table does not exist.
func (t *Table) ColumnCount() int {
	n := 0

	_ = t.db.read(t.name, func(raw *RawTable) error {
		n = len(raw.Cols)

		return nil
	})

	return n
}

// Data returns the table's auxiliary data.
func (t *Table) Data() (any, error) {
	var data any

	err := t.db.read(t.name, func(raw *RawTable) error {
		data = value.Clone(raw.Data)

		return nil
	})

	return data, err
}

// SetData replaces the table's auxiliary data and persists it.
func (t *Table) SetData(data any) error {
	_, err := t.db.mutate("set-table-data", t.name, func(tx *tx) (int, error) {
		raw := tx.touch(t.name)
		if raw == nil {
			return 0, tableNotExists(t.name)
		}

		raw.Data = value.Clone(data)

		return 0, nil
	})

	return err
}

// live returns the touched table or fails with [ErrNotExists].
func (t *Table) live(tx *tx) (*RawTable, error) {
	raw := tx.touch(t.name)
	if raw == nil {
		return nil, tableNotExists(t.name)
	}

	return raw, nil
}
