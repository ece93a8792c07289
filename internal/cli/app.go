package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/calvinalkan/tabledb/pkg/tabledb"
	"github.com/calvinalkan/tabledb/pkg/tabledb/filestore"
)

const fileIndent = "  "

func (a *app) store() *filestore.Store {
	return filestore.New(a.cfg.DBAbs, filestore.Options{Indent: fileIndent})
}

// withDB opens the database under the file lock and runs fn. The lock is
// held for the whole call so concurrent CLI invocations serialize.
func (a *app) withDB(fn func(db *tabledb.DB) error) (err error) {
	store := a.store()

	lock, err := store.Lock()
	if err != nil {
		return err
	}

	defer func() {
		closeErr := lock.Close()
		if closeErr != nil {
			err = errors.Join(err, fmt.Errorf("unlock: %w", closeErr))
		}
	}()

	db, err := tabledb.Open(store, tabledb.Options{
		FriendlyErrors: a.cfg.FriendlyErrors,
		Logger:         a.log,
	})
	if err != nil {
		return err
	}

	return fn(db)
}

// withTable is withDB for commands whose first argument is a table name.
func (a *app) withTable(args []string, fn func(db *tabledb.DB, t *tabledb.Table, rest []string) error) error {
	if len(args) == 0 || args[0] == "" {
		return ErrTableRequired
	}

	return a.withDB(func(db *tabledb.DB) error {
		return fn(db, db.Table(args[0]), args[1:])
	})
}

// resolvePath makes p absolute relative to the effective working directory.
func (a *app) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(a.cfg.EffectiveCwd, p)
}
