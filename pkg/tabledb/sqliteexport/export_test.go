package sqliteexport_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/tabledb/pkg/tabledb"
	"github.com/calvinalkan/tabledb/pkg/tabledb/sqliteexport"
	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

func seed(t *testing.T) *tabledb.DB {
	t.Helper()

	db, err := tabledb.Open(tabledb.NewMemStore(), tabledb.Options{})
	require.NoError(t, err)
	require.NoError(t, db.Create())

	users := db.Table("users")
	require.NoError(t, users.Create())
	require.NoError(t, users.AddColumns(
		tabledb.Column{Name: "id", DataType: value.Int, Constraints: []tabledb.Constraint{tabledb.PrimaryKey, tabledb.AutoIncrement}},
		tabledb.Column{Name: "name", DataType: value.String, Constraints: []tabledb.Constraint{tabledb.NotNull}},
		tabledb.Column{Name: "active", DataType: value.Boolean},
		tabledb.Column{Name: "meta", DataType: value.JSON},
	))
	require.NoError(t, users.Insert(
		tabledb.Row{"name": "Ann", "active": true, "meta": map[string]any{"k": "v"}},
		tabledb.Row{"name": "Bo"},
	))

	orders := db.Table("orders")
	require.NoError(t, orders.Create())
	require.NoError(t, orders.AddColumns(
		tabledb.Column{Name: "id", DataType: value.Int, Constraints: []tabledb.Constraint{tabledb.PrimaryKey}},
		tabledb.Column{Name: "userId", DataType: value.Int, ForeignKey: &tabledb.Link{Table: "users", Column: "id"}},
		tabledb.Column{Name: "total", DataType: value.Float},
	))
	require.NoError(t, orders.Insert(tabledb.Row{"id": 10, "userId": 2, "total": 9.5}))

	return db
}

func Test_Export_Writes_Tables_And_Rows_When_Database_Has_Data(t *testing.T) {
	t.Parallel()

	db := seed(t)
	path := filepath.Join(t.TempDir(), "out.sqlite")

	res, err := sqliteexport.Export(context.Background(), db, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, res.Tables)
	assert.Empty(t, res.Skipped)

	sqlDB, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	var count int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM "users"`).Scan(&count))
	assert.Equal(t, 2, count)

	var (
		name   string
		active sql.NullInt64
		meta   sql.NullString
	)

	require.NoError(t, sqlDB.QueryRow(`SELECT name, active, meta FROM users WHERE id = 1`).Scan(&name, &active, &meta))
	assert.Equal(t, "Ann", name)
	assert.Equal(t, int64(1), active.Int64)
	assert.JSONEq(t, `{"k":"v"}`, meta.String)

	require.NoError(t, sqlDB.QueryRow(`SELECT name, active, meta FROM users WHERE id = 2`).Scan(&name, &active, &meta))
	assert.False(t, active.Valid)
	assert.False(t, meta.Valid)

	var total float64
	require.NoError(t, sqlDB.QueryRow(`SELECT u.name, o.total FROM orders o JOIN users u ON u.id = o.userId`).Scan(&name, &total))
	assert.Equal(t, "Bo", name)
	assert.InDelta(t, 9.5, total, 1e-9)
}

func Test_Export_Fails_When_Target_Exists(t *testing.T) {
	t.Parallel()

	db := seed(t)
	path := filepath.Join(t.TempDir(), "out.sqlite")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0o644))

	_, err := sqliteexport.Export(context.Background(), db, path)
	require.ErrorIs(t, err, os.ErrExist)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func Test_Export_Skips_Table_When_It_Has_No_Columns(t *testing.T) {
	t.Parallel()

	db := seed(t)
	require.NoError(t, db.Table("fresh").Create())

	path := filepath.Join(t.TempDir(), "out.sqlite")

	res, err := sqliteexport.Export(context.Background(), db, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, res.Tables)
	assert.Equal(t, []string{"fresh"}, res.Skipped)

	sqlDB, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	var tables int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&tables))
	assert.Equal(t, 2, tables)

	var count int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM "users"`).Scan(&count))
	assert.Equal(t, 2, count)
}

func Test_Export_Writes_Empty_Table_When_It_Has_Columns_But_No_Rows(t *testing.T) {
	t.Parallel()

	db := seed(t)
	tags := db.Table("tags")
	require.NoError(t, tags.Create())
	require.NoError(t, tags.AddColumns(tabledb.Column{Name: "label", DataType: value.String}))

	path := filepath.Join(t.TempDir(), "out.sqlite")

	res, err := sqliteexport.Export(context.Background(), db, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "tags", "users"}, res.Tables)

	sqlDB, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	var count int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM "tags"`).Scan(&count))
	assert.Zero(t, count)
}

func Test_CreateTableSQL_Maps_Constraints_When_Single_Primary_Key(t *testing.T) {
	t.Parallel()

	got := sqliteexport.CreateTableSQL("orders", []tabledb.Column{
		{Name: "id", DataType: value.Int, Constraints: []tabledb.Constraint{tabledb.PrimaryKey}},
		{Name: "code", DataType: value.String, Constraints: []tabledb.Constraint{tabledb.NotNull, tabledb.Unique}},
		{Name: "user", DataType: value.Int, ForeignKey: &tabledb.Link{Table: "users", Column: "id"}},
		{Name: "at", DataType: value.DateTime},
	})

	want := "CREATE TABLE \"orders\" (\n" +
		"    \"id\" INTEGER PRIMARY KEY,\n" +
		"    \"code\" TEXT NOT NULL UNIQUE,\n" +
		"    \"user\" INTEGER REFERENCES \"users\" (\"id\"),\n" +
		"    \"at\" INTEGER\n" +
		")"
	assert.Equal(t, want, got)
}

func Test_CreateTableSQL_Emits_Unique_Not_Null_When_Several_Primary_Keys(t *testing.T) {
	t.Parallel()

	got := sqliteexport.CreateTableSQL(`we"ird`, []tabledb.Column{
		{Name: "a", DataType: value.Float, Constraints: []tabledb.Constraint{tabledb.PrimaryKey}},
		{Name: "b", DataType: value.JSON, Constraints: []tabledb.Constraint{tabledb.PrimaryKey}},
	})

	want := "CREATE TABLE \"we\"\"ird\" (\n" +
		"    \"a\" REAL UNIQUE NOT NULL,\n" +
		"    \"b\" TEXT UNIQUE NOT NULL\n" +
		")"
	assert.Equal(t, want, got)
}
