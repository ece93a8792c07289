package tabledb

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"

	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// Options configures a [DB].
type Options struct {
	// FriendlyErrors renders errors as explanations aimed at people instead
	// of the terse "kind (context)" form. It does not change which errors
	// are returned.
	FriendlyErrors bool

	// Logger receives a Debug record per committed mutation and a Warn record
	// per rollback. Nil discards.
	Logger *slog.Logger
}

// DB is a database held fully in memory and rewritten through its [Store]
// after every successful mutation.
//
// A DB is safe for use by multiple goroutines; calls are serialized. It does
// not coordinate with other processes using the same store, callers that need
// that hold an external lock (see filestore.Store.Lock).
type DB struct {
	store Store
	opts  Options
	log   *slog.Logger

	mu  sync.RWMutex
	raw *RawDB // nil while the database does not exist
}

// Open loads the database from store if it exists. A missing database is not
// an error: the returned DB reports Exists() == false until [DB.Create].
func Open(store Store, opts Options) (*DB, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db := &DB{store: store, opts: opts, log: logger}

	exists, err := store.Exists()
	if err != nil {
		return nil, fmt.Errorf("checking store: %w", err)
	}

	if !exists {
		return db, nil
	}

	raw, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading store: %w", err)
	}

	if raw.Tables == nil {
		raw.Tables = map[string]*RawTable{}
	}

	for name, t := range raw.Tables {
		if t == nil {
			t = &RawTable{}
			raw.Tables[name] = t
		}

		if err := t.normalize(); err != nil {
			return nil, fmt.Errorf("loading table %q: %w", name, err)
		}
	}

	db.raw = raw

	return db, nil
}

func (db *DB) present(err error) error {
	return present(err, db.opts.FriendlyErrors)
}

// Exists reports whether the database has been created.
func (db *DB) Exists() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.raw != nil
}

// Create creates an empty database and persists it.
func (db *DB) Create() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.raw != nil {
		return db.present(newError(ErrAlreadyExists, withEntity("database")))
	}

	raw := NewRawDB()
	if err := db.store.Persist(raw); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	db.raw = raw
	db.log.Debug("database created")

	return nil
}

// Drop removes the database from its store.
func (db *DB) Drop() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.raw == nil {
		return db.present(newError(ErrNotExists, withEntity("database")))
	}

	if err := db.store.Remove(); err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	db.raw = nil
	db.log.Debug("database dropped")

	return nil
}

// TableNames returns the names of all tables, sorted.
func (db *DB) TableNames() ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.raw == nil {
		return nil, db.present(newError(ErrNotExists, withEntity("database")))
	}

	names := make([]string, 0, len(db.raw.Tables))
	for name := range db.raw.Tables {
		names = append(names, name)
	}

	slices.Sort(names)

	return names, nil
}

// CopyTo writes a copy of the database to path. It fails with
// [ErrAlreadyExists] if something already exists there.
func (db *DB) CopyTo(path string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.raw == nil {
		return db.present(newError(ErrNotExists, withEntity("database")))
	}

	if err := db.store.CopyTo(path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return db.present(newError(ErrAlreadyExists, withEntity("copy target"), withCause(err)))
		}

		return fmt.Errorf("copy: %w", err)
	}

	db.log.Debug("database copied", slog.String("path", path))

	return nil
}

// Data returns the database's auxiliary data.
func (db *DB) Data() (any, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.raw == nil {
		return nil, db.present(newError(ErrNotExists, withEntity("database")))
	}

	return value.Clone(db.raw.Data), nil
}

// SetData replaces the database's auxiliary data and persists it.
func (db *DB) SetData(data any) error {
	_, err := db.mutate("set-data", "", func(tx *tx) (int, error) {
		tx.touchData()
		tx.raw.Data = value.Clone(data)

		return 0, nil
	})

	return err
}

// Table returns a handle for the named table. The table need not exist.
func (db *DB) Table(name string) *Table {
	return &Table{db: db, name: name}
}

// read runs fn under the read lock against the named table, failing with
// [ErrNotExists] when the database or the table is missing.
func (db *DB) read(name string, fn func(t *RawTable) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.raw == nil {
		return db.present(newError(ErrNotExists, withEntity("database")))
	}

	t := db.raw.Tables[name]
	if t == nil {
		return db.present(tableNotExists(name))
	}

	return fn(t)
}

func tableNotExists(name string) *Error {
	return newError(ErrNotExists, withEntity("table"), withTable(name))
}
