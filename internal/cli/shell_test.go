package cli_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/tabledb/internal/cli"
)

func Test_SplitArgs_Honors_Quotes_And_Escapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want []string
	}{
		{line: "tables", want: []string{"tables"}},
		{line: "  select   users  -f json ", want: []string{"select", "users", "-f", "json"}},
		{line: `insert users '{"name":"Ann Lee"}'`, want: []string{"insert", "users", `{"name":"Ann Lee"}`}},
		{line: `select users -w "name=Ann \"A\" Lee"`, want: []string{"select", "users", "-w", `name=Ann "A" Lee`}},
		{line: `select users -w name=Ann\ Lee`, want: []string{"select", "users", "-w", "name=Ann Lee"}},
		{line: `insert t ''`, want: []string{"insert", "t", ""}},
		{line: `a'b'"c"`, want: []string{"abc"}},
	}

	for _, tc := range tests {
		got, err := cli.SplitArgs(tc.line)
		require.NoError(t, err, tc.line)

		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("SplitArgs(%q) mismatch (-want +got):\n%s", tc.line, diff)
		}
	}
}

func Test_SplitArgs_Returns_Error_When_Line_Is_Incomplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{line: `insert t '{"a":1}`, want: "unterminated ' quote"},
		{line: `select "users`, want: `unterminated " quote`},
		{line: `tables \`, want: "trailing backslash"},
		{line: "   ", want: "empty command"},
	}

	for _, tc := range tests {
		_, err := cli.SplitArgs(tc.line)
		require.Error(t, err, tc.line)
		require.ErrorContains(t, err, tc.want)
	}
}
