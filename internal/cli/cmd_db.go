package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tabledb/pkg/tabledb"
)

// InitCmd returns the init command.
func InitCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("init", flag.ContinueOnError),
		Usage: "init",
		Group: groupDatabase,
		Short: "Create an empty database",
		Long:  "Create an empty database file at the configured path. Fails if it already exists.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return a.withDB(func(db *tabledb.DB) error {
				err := db.Create()
				if err != nil {
					return err
				}

				o.Println("Created", a.cfg.DBAbs)

				return nil
			})
		},
	}
}

// DestroyCmd returns the destroy command.
func DestroyCmd(a *app) *Command {
	flags := flag.NewFlagSet("destroy", flag.ContinueOnError)
	yes := flags.BoolP("yes", "y", false, "Confirm deletion")

	return &Command{
		Flags: flags,
		Usage: "destroy --yes",
		Group: groupDatabase,
		Short: "Delete the database file",
		Long:  "Delete the database file and everything in it. Requires --yes.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			if !*yes {
				return errors.New("refusing to destroy without --yes")
			}

			return a.withDB(func(db *tabledb.DB) error {
				err := db.Drop()
				if err != nil {
					return err
				}

				o.Println("Destroyed", a.cfg.DBAbs)

				return nil
			})
		},
	}
}

// TablesCmd returns the tables command.
func TablesCmd(a *app) *Command {
	flags := flag.NewFlagSet("tables", flag.ContinueOnError)
	counts := flags.Bool("counts", false, "Show column and row counts")

	return &Command{
		Flags: flags,
		Usage: "tables [--counts]",
		Group: groupDatabase,
		Short: "List tables",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return a.withDB(func(db *tabledb.DB) error {
				names, err := db.TableNames()
				if err != nil {
					return err
				}

				for _, name := range names {
					if !*counts {
						o.Println(name)

						continue
					}

					t := db.Table(name)
					o.Printf("%s\tcolumns=%d\trows=%d\n", name, t.ColumnCount(), t.RowCount())
				}

				return nil
			})
		},
	}
}

// CopyCmd returns the copy command.
func CopyCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("copy", flag.ContinueOnError),
		Usage: "copy <path>",
		Group: groupDatabase,
		Short: "Copy the database file",
		Long:  "Copy the database file to <path>. Fails if <path> already exists.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("copy requires exactly one target path")
			}

			target := a.resolvePath(args[0])

			return a.withDB(func(db *tabledb.DB) error {
				err := db.CopyTo(target)
				if err != nil {
					return err
				}

				o.Println("Copied to", target)

				return nil
			})
		},
	}
}

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Group: groupTools,
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			for _, line := range formatConfig(a.cfg) {
				o.Println(line)
			}

			o.Println("")
			o.Println("# sources")

			src := a.cfg.Sources
			if src.Global == "" && src.Project == "" {
				o.Println("(defaults only)")

				return nil
			}

			if src.Global != "" {
				o.Println("global_config=" + src.Global)
			}

			if src.Project != "" {
				o.Println("project_config=" + src.Project)
			}

			return nil
		},
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}

	return fmt.Sprintf("%d %ss", n, word)
}
