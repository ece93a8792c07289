package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tabledb/pkg/tabledb"
)

// SelectCmd returns the select command.
func SelectCmd(a *app) *Command {
	flags := flag.NewFlagSet("select", flag.ContinueOnError)
	cols := flags.StringSlice("cols", nil, "Only these `columns` (comma separated)")
	where := flags.StringArrayP("where", "w", nil, "Only rows matching `expr` (repeatable, all must match)")
	order := flags.StringArrayP("order", "o", nil, "Order by `col[:desc]` (repeatable, first is primary)")
	top := flags.Int("top", -1, "Only the first `N` rows")
	bottom := flags.Int("bottom", -1, "Only the last `N` rows")
	join := flags.String("join", "", "Left join with `table` on shared column names")
	groupBy := flags.String("group-by", "", "Split the result into groups of equal `column` value")
	format := flags.StringP("format", "f", FormatTable, "Output `format`: table, json, yaml")

	return &Command{
		Flags: flags,
		Usage: "select <table> [flags]",
		Group: groupQuery,
		Short: "Query rows",
		Long: "Query rows of a table. Steps apply in this order: --join, --where,\n" +
			"--order, --top/--bottom, --cols, --group-by.",
		Examples: []string{
			`select users --where "id>=2" --order name --order id:desc`,
			`select orders --join users --cols id,name,total -f json`,
			`select users --group-by team -f yaml`,
		},
		Exec: func(_ context.Context, o *IO, args []string) error {
			err := validateFormat(*format)
			if err != nil {
				return err
			}

			if *top >= 0 && *bottom >= 0 {
				return fmt.Errorf("%w: --top and --bottom", ErrConflictingFlags)
			}

			conds, err := ParseConditions(*where)
			if err != nil {
				return err
			}

			keys, err := parseOrderKeys(*order)
			if err != nil {
				return err
			}

			return a.withTable(args, func(db *tabledb.DB, t *tabledb.Table, _ []string) error {
				v, err := t.Get()
				if err != nil {
					return err
				}

				if *join != "" {
					other, err := db.Table(*join).Get()
					if err != nil {
						return err
					}

					v = v.Join(other)
				}

				if len(conds) > 0 {
					pred, err := Predicate(conds, v.Columns())
					if err != nil {
						return err
					}

					v = v.Where(pred)
				}

				if len(keys) > 0 {
					v, err = v.OrderBy(keys...)
					if err != nil {
						return err
					}
				}

				switch {
				case *top >= 0:
					v = v.Top(*top)
				case *bottom >= 0:
					v = v.Bottom(*bottom)
				}

				if len(*cols) > 0 {
					known := make([]string, 0, len(*cols))

					for _, name := range *cols {
						if _, ok := v.Column(name); !ok {
							o.Warnf("unknown column %q in --cols", name)

							continue
						}

						known = append(known, name)
					}

					v = v.Select(known...)
				}

				if *groupBy == "" {
					return renderView(o.Out(), v, *format)
				}

				views, err := v.GroupBy(*groupBy)
				if err != nil {
					return err
				}

				groups := make([]group, len(views))
				for i, gv := range views {
					groups[i] = group{Key: gv.Row(0)[*groupBy], View: gv}
				}

				return renderGroups(o.Out(), *groupBy, groups, *format)
			})
		},
	}
}

// parseOrderKeys parses "col" and "col:asc|desc" specs.
func parseOrderKeys(specs []string) ([]tabledb.OrderKey, error) {
	keys := make([]tabledb.OrderKey, 0, len(specs))

	for _, spec := range specs {
		col, dir, hasDir := strings.Cut(spec, ":")
		if col == "" {
			return nil, fmt.Errorf("--order: empty column in %q", spec)
		}

		key := tabledb.Asc(col)

		if hasDir {
			d, err := tabledb.ParseDirection(dir)
			if err != nil {
				return nil, fmt.Errorf("--order %q: %w", spec, err)
			}

			key.Direction = d
		}

		keys = append(keys, key)
	}

	return keys, nil
}

// AggCmd returns the agg command.
func AggCmd(a *app) *Command {
	flags := flag.NewFlagSet("agg", flag.ContinueOnError)
	where := flags.StringArrayP("where", "w", nil, "Only rows matching `expr` (repeatable, all must match)")

	return &Command{
		Flags: flags,
		Usage: "agg <table> max|min|sum|avg <column> [--where expr]...",
		Group: groupQuery,
		Short: "Aggregate a column",
		Long: "Print the max, min, sum or average of a column. max and min return the\n" +
			"first row's value on ties; sum and avg need a numeric column.",
		Examples: []string{
			`agg orders sum total --where userId=2`,
			`agg users max id`,
		},
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("usage: tabledb %s", "agg <table> max|min|sum|avg <column>")
			}

			fn, column := strings.ToLower(args[1]), args[2]

			switch fn {
			case "max", "min", "sum", "avg":
			default:
				return fmt.Errorf("unknown aggregate %q (want max, min, sum or avg)", args[1])
			}

			conds, err := ParseConditions(*where)
			if err != nil {
				return err
			}

			return a.withTable(args[:1], func(_ *tabledb.DB, t *tabledb.Table, _ []string) error {
				v, err := t.Get()
				if err != nil {
					return err
				}

				if len(conds) > 0 {
					pred, err := Predicate(conds, v.Columns())
					if err != nil {
						return err
					}

					v = v.Where(pred)
				}

				return printAggregate(o, v, fn, column)
			})
		},
	}
}

func printAggregate(o *IO, v *tabledb.View, fn, column string) error {
	switch fn {
	case "sum", "avg":
		agg := v.Sum
		if fn == "avg" {
			agg = v.Avg
		}

		n, err := agg(column)
		if err != nil {
			return err
		}

		o.Println(strconv.FormatFloat(n, 'f', -1, 64))

		return nil
	default:
		agg := v.Max
		if fn == "min" {
			agg = v.Min
		}

		raw, err := agg(column)
		if err != nil {
			return err
		}

		col, _ := v.Column(column)
		o.Println(formatCell(col.DataType, raw))

		return nil
	}
}
