package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tabledb/pkg/tabledb"
)

// InsertCmd returns the insert command.
func InsertCmd(a *app) *Command {
	flags := flag.NewFlagSet("insert", flag.ContinueOnError)
	at := flags.Int("at", -1, "Overwrite rows starting at `position` instead of appending")

	return &Command{
		Flags: flags,
		Usage: "insert <table> <json>... [--at N]",
		Group: groupRows,
		Short: "Insert rows",
		Long: "Insert rows given as JSON objects (or arrays of objects). Use - to read\n" +
			"JSON from stdin. Missing columns take their default. The whole batch is\n" +
			"rejected if any row violates a constraint.",
		Examples: []string{
			`insert users '{"name":"Ann"}' '{"name":"Bo"}'`,
			`insert users '[{"name":"Cy"},{"name":"Di"}]'`,
			`insert users --at 0 '{"name":"Anna"}'`,
			`insert users - < rows.json`,
		},
		Exec: func(_ context.Context, o *IO, args []string) error {
			return a.withTable(args, func(_ *tabledb.DB, t *tabledb.Table, inputs []string) error {
				rows, err := a.parseRows(inputs)
				if err != nil {
					return err
				}

				if *at >= 0 {
					err = t.InsertAt(*at, rows...)
				} else {
					err = t.Insert(rows...)
				}

				if err != nil {
					return err
				}

				o.Printf("Inserted %s into %s\n", plural(len(rows), "row"), t.Name())

				return nil
			})
		},
	}
}

// UpdateCmd returns the update command.
func UpdateCmd(a *app) *Command {
	flags := flag.NewFlagSet("update", flag.ContinueOnError)
	set := flags.StringP("set", "s", "", "Values to set as a JSON `object` (required)")
	where := flags.StringArrayP("where", "w", nil, "Only rows matching `expr` (repeatable, all must match)")

	return &Command{
		Flags: flags,
		Usage: "update <table> --set <json> [--where expr]...",
		Group: groupRows,
		Short: "Update rows",
		Long: "Merge --set into every matching row and re-check all constraints.\n" +
			"Without --where every row is updated.",
		Examples: []string{
			`update users --set '{"active":false}' --where "name=Ann"`,
		},
		Exec: func(_ context.Context, o *IO, args []string) error {
			if *set == "" {
				return errors.New("--set is required")
			}

			var patch tabledb.Row

			err := json.Unmarshal([]byte(*set), &patch)
			if err != nil || patch == nil {
				return fmt.Errorf("--set: %w", ErrInvalidRowJSON)
			}

			conds, err := ParseConditions(*where)
			if err != nil {
				return err
			}

			return a.withTable(args, func(_ *tabledb.DB, t *tabledb.Table, _ []string) error {
				pred, err := tablePredicate(t, conds)
				if err != nil {
					return err
				}

				n, err := t.Update(patch, pred)
				if err != nil {
					return err
				}

				o.Printf("Updated %s in %s\n", plural(n, "row"), t.Name())

				return nil
			})
		},
	}
}

// DeleteCmd returns the delete command.
func DeleteCmd(a *app) *Command {
	flags := flag.NewFlagSet("delete", flag.ContinueOnError)
	where := flags.StringArrayP("where", "w", nil, "Delete rows matching `expr` (repeatable, all must match)")
	at := flags.Int("at", -1, "Delete the row at `position`")
	all := flags.Bool("all", false, "Delete every row")

	return &Command{
		Flags: flags,
		Usage: "delete <table> (--where expr... | --at N | --all)",
		Group: groupRows,
		Short: "Delete rows",
		Long:  "Delete rows. Fails while foreign keys in other rows still reference them.",
		Examples: []string{
			`delete orders --where "total<10" --where userId=2`,
			`delete users --at 0`,
		},
		Exec: func(_ context.Context, o *IO, args []string) error {
			selectors := 0

			for _, on := range []bool{len(*where) > 0, *at >= 0, *all} {
				if on {
					selectors++
				}
			}

			if selectors == 0 {
				return ErrNoRowSelector
			}

			if selectors > 1 {
				return fmt.Errorf("%w: use only one of --where, --at and --all", ErrConflictingFlags)
			}

			conds, err := ParseConditions(*where)
			if err != nil {
				return err
			}

			return a.withTable(args, func(_ *tabledb.DB, t *tabledb.Table, _ []string) error {
				if *at >= 0 {
					err := t.DeleteAt(*at)
					if err != nil {
						return err
					}

					o.Printf("Deleted 1 row from %s\n", t.Name())

					return nil
				}

				pred, err := tablePredicate(t, conds)
				if err != nil {
					return err
				}

				n, err := t.DeleteWhere(pred)
				if err != nil {
					return err
				}

				o.Printf("Deleted %s from %s\n", plural(n, "row"), t.Name())

				return nil
			})
		},
	}
}

// tablePredicate compiles conds against the table's columns. No conditions
// match every row.
func tablePredicate(t *tabledb.Table, conds []Condition) (tabledb.Predicate, error) {
	if len(conds) == 0 {
		return tabledb.All, nil
	}

	cols, err := t.Columns()
	if err != nil {
		return nil, err
	}

	return Predicate(conds, cols)
}

// parseRows decodes each argument as a JSON object or array of objects.
// "-" reads one JSON document from stdin.
func (a *app) parseRows(inputs []string) ([]tabledb.Row, error) {
	if len(inputs) == 0 {
		return nil, errors.New("at least one row is required")
	}

	var rows []tabledb.Row

	for _, in := range inputs {
		if in == "-" {
			if a.in == nil {
				return nil, errors.New("stdin is not available")
			}

			data, err := io.ReadAll(a.in)
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}

			in = string(data)
		}

		parsed, err := decodeRows(in)
		if err != nil {
			return nil, err
		}

		rows = append(rows, parsed...)
	}

	return rows, nil
}

func decodeRows(s string) ([]tabledb.Row, error) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "[") {
		var rows []tabledb.Row

		err := json.Unmarshal([]byte(s), &rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRowJSON, err)
		}

		for _, r := range rows {
			if r == nil {
				return nil, ErrInvalidRowJSON
			}
		}

		return rows, nil
	}

	var row tabledb.Row

	err := json.Unmarshal([]byte(s), &row)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRowJSON, err)
	}

	if row == nil {
		return nil, ErrInvalidRowJSON
	}

	return []tabledb.Row{row}, nil
}
