package cli_test

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/tabledb/internal/cli"
)

// seedUsers creates users{id pk auto, name notNull} with Ann and Bo and
// orders{id pk, userId -> users.id, total} with one order of Bo.
func seedUsers(t *testing.T) *cli.CLI {
	t.Helper()

	c := cli.NewCLI(t)
	c.MustRun("init")
	c.MustRun("create-table", "users", "orders")
	c.MustRun("add-column", "users", "--name", "id", "--type", "Int", "--pk", "--auto")
	c.MustRun("add-column", "users", "--name", "name", "--type", "String", "--not-null")
	c.MustRun("insert", "users", `{"name":"Ann"}`, `{"name":"Bo"}`)
	c.MustRun("add-column", "orders", "--name", "id", "--type", "Int", "--pk")
	c.MustRun("add-column", "orders", "--name", "userId", "--type", "Int", "--fk", "users.id")
	c.MustRun("add-column", "orders", "--name", "total", "--type", "Float", "--default", "0")
	c.MustRun("insert", "orders", `{"id":10,"userId":2,"total":9.5}`)

	return c
}

func Test_Init_Fails_When_Database_Exists(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("init")
	assert.Equal(t, "Created "+c.DBPath(), stdout)
	require.FileExists(t, c.DBPath())

	stderr := c.MustFail("init")
	cli.AssertContains(t, stderr, "database already exists")
}

func Test_Commands_Fail_When_Database_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("create-table", "users")
	cli.AssertContains(t, stderr, "database does not exist")
	assert.NoFileExists(t, c.DBPath())
}

func Test_Tables_Lists_Names_And_Counts(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	assert.Equal(t, "orders\nusers", c.MustRun("tables"))
	assert.Equal(t, "orders\tcolumns=3\trows=1\nusers\tcolumns=2\trows=2", c.MustRun("tables", "--counts"))
}

func Test_Select_Renders_Aligned_Table(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	want := strings.Join([]string{
		"id | name",
		"---+-----",
		"1  | Ann",
		"2  | Bo",
		"(2 rows)",
	}, "\n")
	assert.Equal(t, want, c.MustRun("select", "users"))
}

func Test_Select_Applies_Where_Order_Top_And_Cols(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)
	c.MustRun("insert", "users", `[{"name":"Cy"},{"name":"Ann"}]`)

	var rows []map[string]any
	c.MustRunJSON(&rows, "select", "users",
		"--where", "name!=Bo",
		"--order", "name", "--order", "id:desc",
		"--top", "2",
		"--cols", "id")

	assert.Equal(t, []map[string]any{{"id": 4.0}, {"id": 1.0}}, rows)
}

func Test_Select_Warns_When_Cols_Names_Unknown_Column(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	stdout, stderr, code := c.Run("select", "users", "--cols", "name,nope", "--format", "json")
	require.Equal(t, 0, code, stderr)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	assert.Equal(t, []map[string]any{{"name": "Ann"}, {"name": "Bo"}}, rows)
	assert.Equal(t, "warning: unknown column \"nope\" in --cols\n", stderr)
}

func Test_Select_Joins_Tables_On_Shared_Columns(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)
	c.MustRun("create-table", "bios")
	c.MustRun("add-column", "bios", "--name", "id", "--type", "Int")
	c.MustRun("add-column", "bios", "--name", "bio", "--type", "String")
	c.MustRun("insert", "bios", `{"id":2,"bio":"hi"}`)

	out := c.MustRun("select", "users", "--join", "bios", "--format", "json")
	assert.JSONEq(t, `[{"id":1,"name":"Ann","bio":null},{"id":2,"name":"Bo","bio":"hi"}]`, out)

	out = c.MustRun("select", "users", "--join", "bios", "--where", "bio=hi", "--format", "yaml")

	var rows []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []map[string]any{{"id": 2, "name": "Bo", "bio": "hi"}}, rows)
}

func Test_Select_Groups_By_Column(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)
	c.MustRun("insert", "users", `{"name":"Ann"}`)

	out := c.MustRun("select", "users", "--group-by", "name", "--format", "json")

	var groups []struct {
		Key  string           `json:"key"`
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 2)
	assert.Equal(t, "Ann", groups[0].Key)
	assert.Len(t, groups[0].Rows, 2)
	assert.Equal(t, "Bo", groups[1].Key)

	table := c.MustRun("select", "users", "--group-by", "name")
	cli.AssertContains(t, table, "# name = Ann")
	cli.AssertContains(t, table, "# name = Bo")
}

func Test_Agg_Computes_Scenario_Values(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	assert.Equal(t, "2", c.MustRun("agg", "users", "max", "id"))
	assert.Equal(t, "1", c.MustRun("agg", "users", "min", "id"))
	assert.Equal(t, "3", c.MustRun("agg", "users", "sum", "id"))
	assert.Equal(t, "1.5", c.MustRun("agg", "users", "avg", "id"))
	assert.Equal(t, "2", c.MustRun("agg", "users", "sum", "id", "--where", "name=Bo"))

	stderr := c.MustFail("agg", "users", "sum", "name")
	cli.AssertContains(t, stderr, "non-numeric aggregate")

	stderr = c.MustFail("agg", "users", "max", "id", "--where", "id>5")
	cli.AssertContains(t, stderr, "empty view")
}

func Test_Insert_Rejects_Foreign_Key_Violation_And_Keeps_Rows(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	stderr := c.MustFail("insert", "orders", `{"id":11,"userId":1}`, `{"id":12,"userId":99}`)
	cli.AssertContains(t, stderr, "foreign key violation")
	cli.AssertContains(t, stderr, "column=userId")

	assert.Equal(t, "orders\tcolumns=3\trows=1\nusers\tcolumns=2\trows=2", c.MustRun("tables", "--counts"))
}

func Test_Insert_Reads_Rows_From_Stdin(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	stdout, stderr, code := c.RunWithInput(`[{"name":"Cy"},{"name":"Di"}]`, "insert", "users", "-")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Inserted 2 rows into users\n", stdout)
	assert.Equal(t, "4", c.MustRun("agg", "users", "max", "id"))
}

func Test_Insert_At_Overwrites_Row(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)
	c.MustRun("insert", "users", "--at", "1", `{"name":"Bob"}`)

	out := c.MustRun("select", "users", "--format", "json")
	assert.JSONEq(t, `[{"id":1,"name":"Ann"},{"id":2,"name":"Bob"}]`, out)
}

func Test_Update_Counts_Rows_And_Revalidates(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	assert.Equal(t, "Updated 1 row in orders", c.MustRun("update", "orders", "--set", `{"total":12}`, "--where", "id=10"))
	assert.Equal(t, "12", c.MustRun("agg", "orders", "sum", "total"))

	stderr := c.MustFail("update", "orders", "--set", `{"userId":42}`)
	cli.AssertContains(t, stderr, "foreign key violation")
}

func Test_Delete_Blocked_By_Referencing_Rows(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	stderr := c.MustFail("delete", "users", "--where", "id=2")
	cli.AssertContains(t, stderr, "row is referenced by other rows")

	assert.Equal(t, "Deleted 1 row from users", c.MustRun("delete", "users", "--where", "id=1"))
	assert.Equal(t, "Deleted 1 row from orders", c.MustRun("delete", "orders", "--at", "0"))
	assert.Equal(t, "Deleted 1 row from users", c.MustRun("delete", "users", "--all"))

	stderr = c.MustFail("delete", "users")
	cli.AssertContains(t, stderr, "one of --where, --at or --all is required")
}

func Test_Friendly_Flag_Explains_Errors(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	stderr := c.MustFail("--friendly", "delete", "users", "--where", "id=2")
	cli.AssertContains(t, stderr, "This row cannot be deleted")
	cli.AssertContains(t, stderr, `column "userId" of table "orders"`)
}

func Test_Drop_Column_And_Table_Respect_References(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	stderr := c.MustFail("drop-column", "users", "id")
	cli.AssertContains(t, stderr, "column is referenced by other columns")

	stderr = c.MustFail("drop-table", "users")
	cli.AssertContains(t, stderr, "column is referenced by other columns")

	c.MustRun("drop-column", "orders", "userId")
	c.MustRun("drop-table", "users")
	assert.Equal(t, "orders", c.MustRun("tables"))
}

func Test_Describe_Shows_Constraints_And_Links(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	users := c.MustRun("describe", "users")
	cli.AssertContains(t, users, "primaryKey,autoIncrement")
	cli.AssertContains(t, users, "orders.userId")

	orders := c.MustRun("describe", "orders")
	cli.AssertContains(t, orders, "users.id")
}

func Test_Copy_And_Destroy(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	c.MustRun("copy", "backup.json")
	require.FileExists(t, filepath.Join(c.Dir, "backup.json"))

	stderr := c.MustFail("copy", "backup.json")
	cli.AssertContains(t, stderr, "already exists")

	assert.Equal(t, "orders\nusers", c.MustRun("--db", "backup.json", "tables"))

	stderr = c.MustFail("destroy")
	cli.AssertContains(t, stderr, "--yes")

	c.MustRun("destroy", "--yes")
	assert.NoFileExists(t, c.DBPath())
}

func Test_Export_SQLite_Writes_Queryable_File(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)
	c.MustRun("export-sqlite", "out.sqlite")

	db, err := sql.Open("sqlite3", filepath.Join(c.Dir, "out.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	require.NoError(t, db.QueryRow(`SELECT u.name FROM orders o JOIN users u ON u.id = o.userId`).Scan(&name))
	assert.Equal(t, "Bo", name)

	stderr := c.MustFail("export-sqlite", "out.sqlite")
	cli.AssertContains(t, stderr, "file already exists")
}

func Test_Export_SQLite_Warns_When_Table_Has_No_Columns(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)
	c.MustRun("create-table", "fresh")

	stdout, stderr, code := c.Run("export-sqlite", "out.sqlite")
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, "Exported 2 tables to "+filepath.Join(c.Dir, "out.sqlite")+"\n", stdout)
	assert.Equal(t, "warning: table fresh has no columns and was not exported\n", stderr)
	require.FileExists(t, filepath.Join(c.Dir, "out.sqlite"))
}

func Test_Shell_Runs_Commands_From_Input(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	script := strings.Join([]string{
		"# comment",
		`insert users '{"name":"Cy"}'`,
		"insert users '{broken'",
		"agg users max id",
		"shell",
		"exit",
		"tables",
	}, "\n")

	stdout, stderr, code := c.RunWithInput(script, "shell")
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, "Inserted 1 row into users\n3\n", stdout)
	cli.AssertContains(t, stderr, "row must be a JSON object")
	cli.AssertContains(t, stderr, "already in a shell")
}

func Test_Run_Fails_On_Unknown_Command(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("frobnicate")
	cli.AssertContains(t, stderr, "unknown command: frobnicate")
	cli.AssertContains(t, stderr, "Commands:")
}

func Test_Command_Help_Prints_Usage(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("select", "--help")
	cli.AssertContains(t, stdout, "Usage: tabledb select <table> [flags]")
	cli.AssertContains(t, stdout, "--group-by")
}

func Test_Command_Help_Prints_Examples_When_Command_Has_Them(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout := c.MustRun("insert", "--help")
	cli.AssertContains(t, stdout, "Examples:\n  tabledb insert users")

	stdout = c.MustRun("tables", "--help")
	cli.AssertNotContains(t, stdout, "Examples:")
}

func Test_Help_Lists_Commands_By_Group(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("help")

	last := -1

	for _, heading := range []string{"Database:", "Schema:", "Rows:", "Query:", "Tools:"} {
		i := strings.Index(stdout, "\n"+heading+"\n")
		require.Greater(t, i, last, "%s missing or out of order\n%s", heading, stdout)

		last = i
	}

	rows := stdout[strings.Index(stdout, "\nRows:\n"):strings.Index(stdout, "\nQuery:\n")]
	cli.AssertContains(t, rows, "insert <table>")
	cli.AssertNotContains(t, rows, "select <table>")
}

func Test_Flag_Error_Prints_Command_Usage(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("init")

	_, stderr, code := c.Run("select", "users", "--bogus")
	assert.Equal(t, 2, code)
	cli.AssertContains(t, stderr, "usage: tabledb select <table> [flags]")
}

func Test_Debug_Logging_Writes_Mutations_To_Stderr(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("init")

	_, stderr, code := c.Run("--log-level", "debug", "--log-format", "json", "create-table", "t")
	require.Equal(t, 0, code, stderr)

	cli.AssertContains(t, stderr, `"msg":"mutation committed"`)
	cli.AssertContains(t, stderr, `"mutation_id"`)
	cli.AssertContains(t, stderr, `"db":"`+c.DBPath()+`"`)
}

func Test_Database_File_Is_Plain_JSON(t *testing.T) {
	t.Parallel()

	c := seedUsers(t)

	assert.Contains(t, c.ReadDB(), "tables")
}
