package tabledb

import (
	"errors"
	"maps"

	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// Insert appends rows in order. Values missing from a row (or nil) take the
// column's Default. Keys that are not columns are ignored.
//
// Every row is checked against the column constraints before it is stored,
// and later rows of the batch see earlier ones. If any row fails, none of the
// batch is kept.
func (t *Table) Insert(rows ...Row) error {
	_, err := t.db.mutate("insert", t.name, func(tx *tx) (int, error) {
		raw, err := t.live(tx)
		if err != nil {
			return 0, err
		}

		for _, row := range rows {
			if err := writeRow(tx.raw, t.name, raw, row, len(raw.Rows), false); err != nil {
				return 0, err
			}
		}

		return len(rows), nil
	})

	return err
}

// InsertAt overwrites the rows at positions pos, pos+1, ... with rows. Every
// target position must already exist ([ErrRowNotFound] otherwise).
func (t *Table) InsertAt(pos int, rows ...Row) error {
	_, err := t.db.mutate("insert-at", t.name, func(tx *tx) (int, error) {
		raw, err := t.live(tx)
		if err != nil {
			return 0, err
		}

		for k, row := range rows {
			at := pos + k
			if at < 0 || at >= len(raw.Rows) {
				return 0, newError(ErrRowNotFound, withTable(t.name), withPosition(at))
			}

			if err := writeRow(tx.raw, t.name, raw, row, at, true); err != nil {
				return 0, err
			}
		}

		return len(rows), nil
	})

	return err
}

// Update merges patch over every row matching pred and re-validates the
// result in place, as if the row were overwritten with InsertAt. It returns
// the number of rows updated.
func (t *Table) Update(patch Row, pred Predicate) (int, error) {
	return t.db.mutate("update", t.name, func(tx *tx) (int, error) {
		raw, err := t.live(tx)
		if err != nil {
			return 0, err
		}

		updated := 0

		for i := range raw.Rows {
			current := raw.formatRow(i)
			if !pred(current, i) {
				continue
			}

			maps.Copy(current, patch)

			if err := writeRow(tx.raw, t.name, raw, current, i, true); err != nil {
				return 0, err
			}

			updated++
		}

		return updated, nil
	})
}

// writeRow validates input against every column of raw and stores it at pos,
// replacing the row there when overwrite is set and appending otherwise.
// Nothing is stored unless every column passes.
func writeRow(db *RawDB, table string, raw *RawTable, input Row, pos int, overwrite bool) error {
	built := make([]any, len(raw.Cols))

	for ci := range raw.Cols {
		col := raw.Cols[ci]

		v, err := columnValue(db, table, raw, col, ci, input[col.Name], pos, overwrite)
		if err != nil {
			var tErr *Error
			if errors.As(err, &tErr) {
				tErr.Position = pos
				tErr.Row = input
			}

			return err
		}

		built[ci] = v
	}

	if overwrite {
		raw.Rows[pos] = built
	} else {
		raw.Rows = append(raw.Rows, built)
	}

	return nil
}

// columnValue runs the per-column pipeline: default, conversion, auto
// increment, notNull, unique, primaryKey, foreignKey. It returns the raw value
// to store.
func columnValue(db *RawDB, table string, raw *RawTable, col Column, ci int, in any, pos int, overwrite bool) (any, error) {
	if in == nil {
		in = col.Default
	}

	typed, err := value.Construct(col.DataType, in)
	if err != nil {
		return nil, newError(ErrTypeConversion, withTable(table), withColumn(col.Name), withValue(in), withCause(err))
	}

	v := value.Clone(typed.Raw())

	if col.Has(AutoIncrement) {
		v, err = autoIncrementValue(raw, table, col, ci, typed, pos, overwrite)
		if err != nil {
			return nil, err
		}
	}

	if v == nil && (col.Has(NotNull) || col.Has(PrimaryKey)) {
		return nil, newError(ErrNotNull, withTable(table), withColumn(col.Name))
	}

	if v != nil && col.Has(Unique) {
		if j := findDuplicate(raw, ci, v, pos, overwrite); j >= 0 {
			return nil, newError(ErrUniqueViolation, withTable(table), withColumn(col.Name),
				withValue(v), withRows(raw.formatRow(j)))
		}
	}

	if col.Has(PrimaryKey) && !col.Has(AutoIncrement) {
		if j := findDuplicate(raw, ci, v, pos, overwrite); j >= 0 {
			return nil, newError(ErrPrimaryKeyViolation, withTable(table), withColumn(col.Name),
				withValue(v), withRows(raw.formatRow(j)))
		}
	}

	if v != nil && col.ForeignKey != nil {
		if err := checkForeignValue(db, table, col, v); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// autoIncrementValue fills or checks an autoIncrement value. The bounds are
// the column's values in the rows just before and just after pos: an empty
// value becomes previous+1, an explicit one must lie strictly between them.
// There is no upper bound when appending.
func autoIncrementValue(raw *RawTable, table string, col Column, ci int, typed value.Value, pos int, overwrite bool) (any, error) {
	var prev int64

	if pos > 0 && pos-1 < len(raw.Rows) {
		prev = value.MustConstruct(value.Int, cell(raw, pos-1, ci)).Int()
	}

	var (
		next    int64
		hasNext bool
	)

	if overwrite && pos+1 < len(raw.Rows) {
		if n := cell(raw, pos+1, ci); n != nil {
			next = value.MustConstruct(value.Int, n).Int()
			hasNext = true
		}
	}

	if typed.IsNull() {
		return prev + 1, nil
	}

	n := value.MustConstruct(value.Int, typed.Raw()).Int()

	if n <= prev || (hasNext && n >= next) {
		var upper any
		if hasNext {
			upper = next
		}

		return nil, newError(ErrAutoIncrementOutOfRange, withTable(table), withColumn(col.Name),
			withValue(typed.Raw()), withBounds(prev, upper))
	}

	return n, nil
}

// findDuplicate returns the index of a row other than the one being
// overwritten whose value in column ci equals v, or -1.
func findDuplicate(raw *RawTable, ci int, v any, pos int, overwrite bool) int {
	for j := range raw.Rows {
		if overwrite && j == pos {
			continue
		}

		if value.Equal(cell(raw, j, ci), v) {
			return j
		}
	}

	return -1
}

// checkForeignValue fails with [ErrForeignKeyViolation] unless some row of
// the referenced table holds v in the referenced column.
func checkForeignValue(db *RawDB, table string, col Column, v any) error {
	fk := *col.ForeignKey

	violation := func(cause error) error {
		return newError(ErrForeignKeyViolation, withTable(table), withColumn(col.Name),
			withValue(v), withLink(fk), withCause(cause))
	}

	target := db.Tables[fk.Table]
	if target == nil {
		return violation(tableNotExists(fk.Table))
	}

	ti := target.colIndex(fk.Column)
	if ti < 0 {
		return violation(newError(ErrColumnNotFound, withTable(fk.Table), withColumn(fk.Column)))
	}

	for j := range target.Rows {
		if value.Equal(cell(target, j, ti), v) {
			return nil
		}
	}

	return violation(nil)
}

func cell(raw *RawTable, row, col int) any {
	if col < len(raw.Rows[row]) {
		return raw.Rows[row][col]
	}

	return nil
}
