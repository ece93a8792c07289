package tabledb

import (
	"slices"

	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// DeleteWhere removes every row matching pred and returns how many were
// removed.
//
// pred sees each row with its position in the table as it was before the
// call, so At(3) removes the fourth row even after earlier rows were removed.
// A row still referenced through a foreign key fails the whole call with
// [ErrReferentialIntegrity] and nothing is removed.
func (t *Table) DeleteWhere(pred Predicate) (int, error) {
	return t.db.mutate("delete", t.name, func(tx *tx) (int, error) {
		raw, err := t.live(tx)
		if err != nil {
			return 0, err
		}

		deleted := 0

		for i := 0; i < len(raw.Rows); {
			if !pred(raw.formatRow(i), i+deleted) {
				i++

				continue
			}

			if err := deleteRow(tx.raw, t.name, raw, i); err != nil {
				return 0, err
			}

			deleted++
		}

		return deleted, nil
	})
}

// DeleteAt removes the row at position i. A position outside the table fails
// with [ErrRowNotFound].
func (t *Table) DeleteAt(i int) error {
	_, err := t.db.mutate("delete-at", t.name, func(tx *tx) (int, error) {
		raw, err := t.live(tx)
		if err != nil {
			return 0, err
		}

		if i < 0 || i >= len(raw.Rows) {
			return 0, newError(ErrRowNotFound, withTable(t.name), withPosition(i))
		}

		return 1, deleteRow(tx.raw, t.name, raw, i)
	})

	return err
}

// deleteRow removes row i after checking that no row elsewhere references any
// of its values through a reverse link.
func deleteRow(db *RawDB, table string, raw *RawTable, i int) error {
	for ci, col := range raw.Cols {
		v := cell(raw, i, ci)
		if v == nil {
			continue
		}

		for _, l := range liveLinks(db, Link{Table: table, Column: col.Name}, col.LinkedWith) {
			linked := db.Tables[l.Table]
			li := linked.colIndex(l.Column)

			var blocking []Row

			for j := range linked.Rows {
				if l.Table == table && j == i {
					continue
				}

				if value.Equal(cell(linked, j, li), v) {
					blocking = append(blocking, linked.formatRow(j))
				}
			}

			if len(blocking) > 0 {
				return newError(ErrReferentialIntegrity, withTable(table), withColumn(col.Name),
					withPosition(i), withValue(v), withLink(l), withRow(raw.formatRow(i)), withRows(blocking...))
			}
		}
	}

	raw.Rows = slices.Delete(raw.Rows, i, i+1)

	return nil
}
