// Package sqliteexport materializes a tabledb database into a SQLite file so
// it can be inspected with ordinary SQL tooling.
//
// The export is one-way. Data types map to SQLite storage classes (Int,
// Binary, DateTime and Boolean to INTEGER, Float to REAL, String to TEXT,
// JSON to TEXT holding the encoded value) and constraints to PRIMARY KEY,
// NOT NULL, UNIQUE and REFERENCES clauses.
package sqliteexport

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/calvinalkan/tabledb/pkg/tabledb"
	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// Result lists what an [Export] wrote.
type Result struct {
	// Tables are the exported tables, sorted by name.
	Tables []string

	// Skipped are tables left out because they have no columns yet.
	Skipped []string
}

// Export writes every table of db into a new SQLite database at path. It
// fails with an error matching [os.ErrExist] if path already exists. A
// partially written file is removed on failure.
func Export(ctx context.Context, db *tabledb.DB, path string) (res Result, err error) {
	if path == "" {
		return Result{}, errors.New("export: path is empty")
	}

	if _, statErr := os.Stat(path); statErr == nil {
		return Result{}, fmt.Errorf("export %s: %w", path, os.ErrExist)
	}

	names, err := db.TableNames()
	if err != nil {
		return Result{}, fmt.Errorf("export: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return Result{}, fmt.Errorf("sqlite: %w", err)
	}

	defer func() {
		closeErr := sqlDB.Close()
		if closeErr != nil {
			err = errors.Join(err, fmt.Errorf("sqlite: close: %w", closeErr))
		}

		if err != nil {
			res = Result{}
			_ = os.Remove(path)
		}
	}()

	sqlDB.SetMaxOpenConns(1)

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("sqlite: begin: %w", err)
	}

	for _, name := range names {
		written, err := exportTable(ctx, tx, db.Table(name))
		if err != nil {
			return Result{}, errors.Join(err, tx.Rollback())
		}

		if written {
			res.Tables = append(res.Tables, name)
		} else {
			res.Skipped = append(res.Skipped, name)
		}
	}

	err = tx.Commit()
	if err != nil {
		return Result{}, fmt.Errorf("sqlite: commit: %w", err)
	}

	return res, nil
}

// exportTable copies one table. Tables without columns are skipped: SQLite
// has no zero-column tables and such a table holds no data.
func exportTable(ctx context.Context, tx *sql.Tx, table *tabledb.Table) (bool, error) {
	view, err := table.Get()
	if err != nil {
		return false, fmt.Errorf("export %s: %w", table.Name(), err)
	}

	cols := view.Columns()
	if len(cols) == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, CreateTableSQL(table.Name(), cols))
	if err != nil {
		return false, fmt.Errorf("sqlite: create table %s: %w", table.Name(), err)
	}

	if view.Len() == 0 {
		return true, nil
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(table.Name(), cols))
	if err != nil {
		return false, fmt.Errorf("sqlite: prepare insert %s: %w", table.Name(), err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))

	for i := range view.Len() {
		row := view.Row(i)

		for ci, col := range cols {
			args[ci], err = sqlValue(col.DataType, row[col.Name])
			if err != nil {
				return false, fmt.Errorf("export %s row %d column %q: %w", table.Name(), i, col.Name, err)
			}
		}

		_, err = stmt.ExecContext(ctx, args...)
		if err != nil {
			return false, fmt.Errorf("sqlite: insert %s row %d: %w", table.Name(), i, err)
		}
	}

	return true, nil
}

// StorageClass returns the SQLite column type used for t.
func StorageClass(t value.DataType) string {
	switch t {
	case value.Int, value.Binary, value.DateTime, value.Boolean:
		return "INTEGER"
	case value.Float:
		return "REAL"
	default:
		return "TEXT"
	}
}

// CreateTableSQL returns the CREATE TABLE statement for a table. SQLite
// allows a single PRIMARY KEY clause, so when several columns are primary
// keys each is emitted as UNIQUE NOT NULL instead.
func CreateTableSQL(name string, cols []tabledb.Column) string {
	pks := 0

	for i := range cols {
		if cols[i].Has(tabledb.PrimaryKey) {
			pks++
		}
	}

	var b strings.Builder

	b.WriteString("CREATE TABLE ")
	b.WriteString(quoteIdent(name))
	b.WriteString(" (")

	for i := range cols {
		col := &cols[i]

		if i > 0 {
			b.WriteString(",")
		}

		b.WriteString("\n    ")
		b.WriteString(quoteIdent(col.Name))
		b.WriteString(" ")
		b.WriteString(StorageClass(col.DataType))

		pk := col.Has(tabledb.PrimaryKey)

		switch {
		case pk && pks == 1:
			b.WriteString(" PRIMARY KEY")
		case pk:
			b.WriteString(" UNIQUE NOT NULL")
		default:
			if col.Has(tabledb.NotNull) {
				b.WriteString(" NOT NULL")
			}

			if col.Has(tabledb.Unique) {
				b.WriteString(" UNIQUE")
			}
		}

		if col.ForeignKey != nil {
			fmt.Fprintf(&b, " REFERENCES %s (%s)", quoteIdent(col.ForeignKey.Table), quoteIdent(col.ForeignKey.Column))
		}
	}

	b.WriteString("\n)")

	return b.String()
}

func insertSQL(name string, cols []tabledb.Column) string {
	quoted := make([]string, len(cols))
	for i := range cols {
		quoted[i] = quoteIdent(cols[i].Name)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)
}

// sqlValue converts a stored raw value into a driver argument.
func sqlValue(t value.DataType, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch t {
	case value.JSON:
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}

		return string(data), nil
	case value.Boolean:
		v, err := value.Construct(t, raw)
		if err != nil {
			return nil, err
		}

		if b, _ := v.Raw().(bool); b {
			return int64(1), nil
		}

		return int64(0), nil
	default:
		return raw, nil
	}
}

// quoteIdent quotes an identifier so table and column names need no
// restrictions.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
