package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tabledb/pkg/tabledb"
	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// CreateTableCmd returns the create-table command.
func CreateTableCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("create-table", flag.ContinueOnError),
		Usage: "create-table <table>...",
		Group: groupSchema,
		Short: "Create empty tables",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return ErrTableRequired
			}

			return a.withDB(func(db *tabledb.DB) error {
				for _, name := range args {
					err := db.Table(name).Create()
					if err != nil {
						return err
					}

					o.Println("Created table", name)
				}

				return nil
			})
		},
	}
}

// DropTableCmd returns the drop-table command.
func DropTableCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("drop-table", flag.ContinueOnError),
		Usage: "drop-table <table>",
		Group: groupSchema,
		Short: "Drop a table",
		Long: "Drop a table with all its rows. Fails while columns of other tables\n" +
			"still reference one of its columns.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return a.withTable(args, func(_ *tabledb.DB, t *tabledb.Table, _ []string) error {
				err := t.Drop()
				if err != nil {
					return err
				}

				o.Println("Dropped table", t.Name())

				return nil
			})
		},
	}
}

// AddColumnCmd returns the add-column command.
func AddColumnCmd(a *app) *Command {
	flags := flag.NewFlagSet("add-column", flag.ContinueOnError)
	name := flags.StringP("name", "n", "", "Column `name` (required)")
	typ := flags.StringP("type", "t", "", "Data `type`: Int, Float, Binary, Boolean, DateTime, String, JSON (required)")
	pk := flags.Bool("pk", false, "Primary key")
	auto := flags.Bool("auto", false, "Auto increment")
	notNull := flags.Bool("not-null", false, "Not null")
	unique := flags.Bool("unique", false, "Unique")
	fk := flags.String("fk", "", "Foreign key `table.column`")
	def := flags.String("default", "", "Default value as `JSON`")

	return &Command{
		Flags: flags,
		Usage: "add-column <table> --name <n> --type <t> [flags]",
		Group: groupSchema,
		Short: "Add a column",
		Long: "Add a column to a table. Existing rows are filled with the default,\n" +
			"or numbered 1..n for auto increment columns.",
		Examples: []string{
			`add-column users --name id --type Int --pk --auto`,
			`add-column orders -n userId -t Int --fk users.id`,
			`add-column users -n active -t Boolean --default true`,
		},
		Exec: func(_ context.Context, o *IO, args []string) error {
			col := tabledb.Column{Name: *name}

			dt, err := value.ParseDataType(*typ)
			if err != nil {
				return err
			}

			col.DataType = dt

			for _, c := range []struct {
				on bool
				c  tabledb.Constraint
			}{
				{*pk, tabledb.PrimaryKey},
				{*auto, tabledb.AutoIncrement},
				{*notNull, tabledb.NotNull},
				{*unique, tabledb.Unique},
			} {
				if c.on {
					col.Constraints = append(col.Constraints, c.c)
				}
			}

			if *fk != "" {
				table, column, ok := strings.Cut(*fk, ".")
				if !ok || table == "" || column == "" {
					return fmt.Errorf("--fk must be table.column, got %q", *fk)
				}

				col.ForeignKey = &tabledb.Link{Table: table, Column: column}
			}

			if flags.Changed("default") {
				err = json.Unmarshal([]byte(*def), &col.Default)
				if err != nil {
					return fmt.Errorf("--default: %w", err)
				}
			}

			return a.withTable(args, func(_ *tabledb.DB, t *tabledb.Table, _ []string) error {
				err := t.AddColumns(col)
				if err != nil {
					return err
				}

				o.Printf("Added column %s.%s\n", t.Name(), col.Name)

				return nil
			})
		},
	}
}

// DropColumnCmd returns the drop-column command.
func DropColumnCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("drop-column", flag.ContinueOnError),
		Usage: "drop-column <table> <column>...",
		Group: groupSchema,
		Short: "Drop columns",
		Long:  "Drop columns and their values. Fails for columns still referenced by foreign keys.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return a.withTable(args, func(_ *tabledb.DB, t *tabledb.Table, cols []string) error {
				if len(cols) == 0 {
					return errors.New("at least one column name is required")
				}

				err := t.DropColumns(cols...)
				if err != nil {
					return err
				}

				o.Printf("Dropped %s from %s\n", plural(len(cols), "column"), t.Name())

				return nil
			})
		},
	}
}

// DescribeCmd returns the describe command.
func DescribeCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("describe", flag.ContinueOnError),
		Usage: "describe <table>",
		Group: groupSchema,
		Short: "Show a table's columns",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return a.withTable(args, func(_ *tabledb.DB, t *tabledb.Table, _ []string) error {
				cols, err := t.Columns()
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(cols))

				for _, c := range cols {
					rows = append(rows, describeColumn(c))
				}

				writeGrid(o.Out(), []string{"name", "type", "constraints", "references", "referenced_by", "default"}, rows)

				return nil
			})
		},
	}
}

func describeColumn(c tabledb.Column) []string {
	constraints := make([]string, len(c.Constraints))
	for i, con := range c.Constraints {
		constraints[i] = string(con)
	}

	var fk string
	if c.ForeignKey != nil {
		fk = c.ForeignKey.String()
	}

	linked := make([]string, len(c.LinkedWith))
	for i, l := range c.LinkedWith {
		linked[i] = l.String()
	}

	def := ""
	if c.Default != nil {
		def = formatCell(value.JSON, c.Default)
	}

	return []string{
		c.Name,
		string(c.DataType),
		strings.Join(constraints, ","),
		fk,
		strings.Join(linked, ","),
		def,
	}
}
