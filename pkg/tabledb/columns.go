package tabledb

import (
	"errors"
	"fmt"
	"slices"

	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// AddColumns appends column definitions to the table.
//
// The whole batch is validated before anything changes: every column needs a
// name unique within the table, a known data type and known constraints. A
// ForeignKey must point at an existing primaryKey column; the target column
// gets a reverse link in its LinkedWith. LinkedWith set by the caller is
// ignored.
//
// Existing rows are backfilled with the column's Default, or with 1..n for
// autoIncrement columns. Columns that could not hold a valid value for the
// existing rows (notNull or primaryKey without a default, unique or
// primaryKey with a shared default) are rejected.
func (t *Table) AddColumns(cols ...Column) error {
	_, err := t.db.mutate("add-columns", t.name, func(tx *tx) (int, error) {
		raw, err := t.live(tx)
		if err != nil {
			return 0, err
		}

		defs := make([]Column, len(cols))
		for i := range cols {
			defs[i] = cols[i].Clone()
			defs[i].LinkedWith = nil
		}

		for i := range defs {
			if err := validateNewColumn(tx, t.name, raw, defs[:i], &defs[i]); err != nil {
				return 0, err
			}
		}

		for i := range defs {
			col := &defs[i]

			raw.Cols = append(raw.Cols, *col)

			for ri := range raw.Rows {
				fill := col.Default
				if col.Has(AutoIncrement) {
					fill = int64(ri + 1)
				}

				v, _ := value.Normalize(col.DataType, fill)
				raw.Rows[ri] = append(raw.Rows[ri], v)
			}
		}

		for _, col := range defs {
			if col.ForeignKey == nil {
				continue
			}

			target := tx.touch(col.ForeignKey.Table)
			ti := target.colIndex(col.ForeignKey.Column)
			target.Cols[ti].LinkedWith = append(target.Cols[ti].LinkedWith, Link{Table: t.name, Column: col.Name})
		}

		return len(defs), nil
	})

	return err
}

// validateNewColumn checks one column of an AddColumns batch. pending are the
// batch's columns before col.
func validateNewColumn(tx *tx, table string, raw *RawTable, pending []Column, col *Column) error {
	invalid := func(format string, args ...any) error {
		return newError(ErrInvalidColumnDefinition, withTable(table), withColumn(col.Name),
			withCause(fmt.Errorf(format, args...)))
	}

	if col.Name == "" {
		return invalid("missing name")
	}

	if col.DataType == "" {
		return invalid("missing data type")
	}

	dt, err := value.ParseDataType(string(col.DataType))
	if err != nil {
		return newError(ErrInvalidColumnDefinition, withTable(table), withColumn(col.Name), withCause(err))
	}

	col.DataType = dt

	for _, c := range col.Constraints {
		if !c.Valid() {
			return invalid("unknown constraint %q", c)
		}
	}

	if raw.colIndex(col.Name) >= 0 || slices.ContainsFunc(pending, func(p Column) bool { return p.Name == col.Name }) {
		return invalid("a column with this name already exists")
	}

	if col.Default != nil {
		v, err := value.Normalize(dt, col.Default)
		if err != nil {
			return newError(ErrInvalidColumnDefinition, withTable(table), withColumn(col.Name),
				withValue(col.Default), withCause(err))
		}

		col.Default = v
	}

	if fk := col.ForeignKey; fk != nil {
		if err := validateForeignKey(tx, table, raw, pending, col); err != nil {
			return err
		}
	}

	rows := len(raw.Rows)
	auto := col.Has(AutoIncrement)

	if rows > 0 && !auto && col.Default == nil && (col.Has(NotNull) || col.Has(PrimaryKey)) {
		return invalid("existing rows need a default value")
	}

	if rows > 1 && !auto && col.Default != nil && (col.Has(Unique) || col.Has(PrimaryKey)) {
		return invalid("a constant default would duplicate values across existing rows")
	}

	if rows > 0 && col.ForeignKey != nil && col.Default != nil && !auto {
		if err := checkForeignValue(tx.raw, table, *col, col.Default); err != nil {
			return err
		}
	}

	return nil
}

func validateForeignKey(tx *tx, table string, raw *RawTable, pending []Column, col *Column) error {
	fk := *col.ForeignKey

	invalid := func(cause error) error {
		return newError(ErrInvalidColumnDefinition, withTable(table), withColumn(col.Name),
			withLink(fk), withCause(cause))
	}

	var target *Column

	if fk.Table == table {
		if i := raw.colIndex(fk.Column); i >= 0 {
			target = &raw.Cols[i]
		} else if i := slices.IndexFunc(pending, func(p Column) bool { return p.Name == fk.Column }); i >= 0 {
			target = &pending[i]
		}
	} else {
		other := tx.raw.Tables[fk.Table]
		if other == nil {
			return invalid(tableNotExists(fk.Table))
		}

		if i := other.colIndex(fk.Column); i >= 0 {
			target = &other.Cols[i]
		}
	}

	if target == nil {
		return invalid(newError(ErrColumnNotFound, withTable(fk.Table), withColumn(fk.Column)))
	}

	if !target.Has(PrimaryKey) {
		return invalid(errors.New("foreign key must reference a primaryKey column"))
	}

	return nil
}

// DropColumns removes columns by name, in order, together with their slot in
// every row.
//
// A column still referenced by another column's foreign key cannot be
// dropped ([ErrReferencedByOthers]). Dropping a foreign key column removes its
// reverse link from the referenced column.
func (t *Table) DropColumns(names ...string) error {
	_, err := t.db.mutate("drop-columns", t.name, func(tx *tx) (int, error) {
		if _, err := t.live(tx); err != nil {
			return 0, err
		}

		for _, name := range names {
			if err := dropColumn(tx, t.name, name); err != nil {
				return 0, err
			}
		}

		return len(names), nil
	})

	return err
}

func dropColumn(tx *tx, table, name string) error {
	raw := tx.touch(table)

	ci := raw.colIndex(name)
	if ci < 0 {
		return newError(ErrColumnNotFound, withTable(table), withColumn(name))
	}

	col := &raw.Cols[ci]

	if live := liveLinks(tx.raw, Link{Table: table, Column: name}, col.LinkedWith); len(live) > 0 {
		return newError(ErrReferencedByOthers, withTable(table), withColumn(name), withLinks(live))
	}

	if fk := col.ForeignKey; fk != nil {
		if target := tx.touch(fk.Table); target != nil {
			if ti := target.colIndex(fk.Column); ti >= 0 {
				target.Cols[ti].unlink(Link{Table: table, Column: name})
			}
		}
	}

	raw.Cols = slices.Delete(raw.Cols, ci, ci+1)

	for ri, row := range raw.Rows {
		if ci < len(row) {
			raw.Rows[ri] = slices.Delete(row, ci, ci+1)
		}
	}

	return nil
}

// liveLinks resolves reverse links of self against the database and returns
// those whose column still exists and still points back at self.
func liveLinks(raw *RawDB, self Link, links []Link) []Link {
	var out []Link

	for _, l := range links {
		t := raw.Tables[l.Table]
		if t == nil {
			continue
		}

		i := t.colIndex(l.Column)
		if i < 0 || t.Cols[i].ForeignKey == nil || *t.Cols[i].ForeignKey != self {
			continue
		}

		out = append(out, l)
	}

	return out
}
