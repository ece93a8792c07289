package cli_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/tabledb/internal/cli"
	"github.com/calvinalkan/tabledb/pkg/tabledb"
	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

func Test_ParseCondition_Splits_Column_Operator_And_Value(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		want cli.Condition
	}{
		{expr: "name=Ann", want: cli.Condition{Column: "name", Op: "=", Value: "Ann"}},
		{expr: `name="Ann"`, want: cli.Condition{Column: "name", Op: "=", Value: "Ann"}},
		{expr: "age>=30", want: cli.Condition{Column: "age", Op: ">=", Value: 30.0}},
		{expr: "age <= 2.5", want: cli.Condition{Column: "age", Op: "<=", Value: 2.5}},
		{expr: "id!=null", want: cli.Condition{Column: "id", Op: "!=", Value: nil}},
		{expr: "ok=true", want: cli.Condition{Column: "ok", Op: "=", Value: true}},
		{expr: "note=a=b", want: cli.Condition{Column: "note", Op: "=", Value: "a=b"}},
		{expr: "x<1", want: cli.Condition{Column: "x", Op: "<", Value: 1.0}},
		{expr: "x=", want: cli.Condition{Column: "x", Op: "=", Value: ""}},
	}

	for _, tc := range tests {
		got, err := cli.ParseCondition(tc.expr)
		require.NoError(t, err, tc.expr)

		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseCondition(%q) mismatch (-want +got):\n%s", tc.expr, diff)
		}
	}
}

func Test_ParseCondition_Returns_Error_When_Malformed(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"name", "=5", "  >3"} {
		_, err := cli.ParseCondition(expr)
		require.ErrorIs(t, err, cli.ErrInvalidWhere, expr)
	}
}

func filterColumns() []tabledb.Column {
	return []tabledb.Column{
		{Name: "id", DataType: value.Int},
		{Name: "name", DataType: value.String},
		{Name: "at", DataType: value.DateTime},
		{Name: "flags", DataType: value.Binary},
		{Name: "meta", DataType: value.JSON},
	}
}

func Test_Predicate_Compares_With_Column_Type_When_Matching(t *testing.T) {
	t.Parallel()

	row := tabledb.Row{
		"id":    int64(7),
		"name":  "Ann",
		"at":    int64(1704164645000), // 2024-01-02T03:04:05Z
		"flags": int64(5),
		"meta":  map[string]any{"k": "v"},
	}

	tests := []struct {
		exprs []string
		want  bool
	}{
		{exprs: []string{"id=7"}, want: true},
		{exprs: []string{"id=7.9"}, want: true},
		{exprs: []string{"id>7"}, want: false},
		{exprs: []string{"id>=7", "id<8"}, want: true},
		{exprs: []string{"name=Ann", "id!=7"}, want: false},
		{exprs: []string{"name>Al"}, want: true},
		{exprs: []string{"at>2024-01-01T00:00:00Z"}, want: true},
		{exprs: []string{"at=2024-01-02T03:04:05Z"}, want: true},
		{exprs: []string{"flags=101"}, want: true},
		{exprs: []string{`meta={"k":"v"}`}, want: true},
		{exprs: []string{"meta!=null"}, want: true},
	}

	for _, tc := range tests {
		conds, err := cli.ParseConditions(tc.exprs)
		require.NoError(t, err)

		pred, err := cli.Predicate(conds, filterColumns())
		require.NoError(t, err, tc.exprs)

		assert.Equal(t, tc.want, pred(row, 0), tc.exprs)
	}
}

func Test_Predicate_Never_Orders_Nulls(t *testing.T) {
	t.Parallel()

	row := tabledb.Row{"id": nil}

	for _, expr := range []string{"id<5", "id>5", "id<=5", "id>=5"} {
		conds, err := cli.ParseConditions([]string{expr})
		require.NoError(t, err)

		pred, err := cli.Predicate(conds, filterColumns())
		require.NoError(t, err)
		assert.False(t, pred(row, 0), expr)
	}

	conds, err := cli.ParseConditions([]string{"id=null"})
	require.NoError(t, err)

	pred, err := cli.Predicate(conds, filterColumns())
	require.NoError(t, err)
	assert.True(t, pred(row, 0))
}

func Test_Predicate_Returns_Error_When_Column_Unknown_Or_Unordered(t *testing.T) {
	t.Parallel()

	conds, err := cli.ParseConditions([]string{"nope=1"})
	require.NoError(t, err)

	_, err = cli.Predicate(conds, filterColumns())
	require.ErrorIs(t, err, tabledb.ErrColumnNotFound)

	conds, err = cli.ParseConditions([]string{"meta>1"})
	require.NoError(t, err)

	_, err = cli.Predicate(conds, filterColumns())
	require.ErrorIs(t, err, tabledb.ErrIncomparable)

	conds, err = cli.ParseConditions([]string{"flags=12a"})
	require.NoError(t, err)

	_, err = cli.Predicate(conds, filterColumns())
	require.ErrorIs(t, err, cli.ErrInvalidWhere)
}
