package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tabledb/pkg/tabledb"
	"github.com/calvinalkan/tabledb/pkg/tabledb/sqliteexport"
)

// ExportSQLiteCmd returns the export-sqlite command.
func ExportSQLiteCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("export-sqlite", flag.ContinueOnError),
		Usage: "export-sqlite <out.sqlite>",
		Group: groupTools,
		Short: "Write all tables to a new SQLite file",
		Long: "Write every table, with its constraints, to a new SQLite database.\n" +
			"Fails if the output file already exists.",
		Examples: []string{
			`export-sqlite snapshot.sqlite`,
		},
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("export-sqlite requires exactly one output path")
			}

			out := a.resolvePath(args[0])

			return a.withDB(func(db *tabledb.DB) error {
				res, err := sqliteexport.Export(ctx, db, out)
				if err != nil {
					return err
				}

				for _, name := range res.Skipped {
					o.Warnf("table %s has no columns and was not exported", name)
				}

				o.Printf("Exported %s to %s\n", plural(len(res.Tables), "table"), out)

				return nil
			})
		},
	}
}
