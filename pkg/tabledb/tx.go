package tabledb

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// tx records value snapshots of every table a mutation touches, so a failed
// mutation can put the database back exactly as it was.
//
// A table is snapshotted the first time it is touched, before anything in it
// changes. Tables that did not exist when touched are removed on rollback.
type tx struct {
	raw       *RawDB
	saved     map[string]*RawTable
	data      any
	dataSaved bool
}

func newTx(raw *RawDB) *tx {
	return &tx{raw: raw, saved: map[string]*RawTable{}}
}

// touch snapshots the named table (once) and returns the live table, or nil.
func (t *tx) touch(name string) *RawTable {
	live := t.raw.Tables[name]

	if _, ok := t.saved[name]; !ok {
		t.saved[name] = live.Clone()
	}

	return live
}

// touchData snapshots the database's auxiliary data.
func (t *tx) touchData() {
	if !t.dataSaved {
		t.data = t.raw.Data
		t.dataSaved = true
	}
}

func (t *tx) rollback() {
	for name, snap := range t.saved {
		if snap == nil {
			delete(t.raw.Tables, name)
		} else {
			t.raw.Tables[name] = snap
		}
	}

	if t.dataSaved {
		t.raw.Data = t.data
	}
}

func (t *tx) tables() []string {
	out := make([]string, 0, len(t.saved))
	for name := range t.saved {
		out = append(out, name)
	}

	return out
}

// mutate runs fn against the loaded database inside a tx. On success the
// database is persisted; if fn or persisting fails every touched table is
// restored and the error returned.
//
// fn returns the number of rows affected, which is only used for logging and
// for returning counts to callers.
func (db *DB) mutate(op, table string, fn func(tx *tx) (int, error)) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.raw == nil {
		return 0, db.present(newError(ErrNotExists, withEntity("database")))
	}

	start := time.Now()
	id := mutationID()
	t := newTx(db.raw)

	n, err := fn(t)
	if err == nil {
		if perr := db.store.Persist(db.raw); perr != nil {
			err = fmt.Errorf("persist: %w", perr)
		}
	}

	if err != nil {
		t.rollback()
		db.log.Warn("mutation rolled back",
			slog.String("mutation_id", id),
			slog.String("op", op),
			slog.String("table", table),
			slog.Any("restored", t.tables()),
			slog.String("error", err.Error()),
		)

		return 0, db.present(err)
	}

	db.log.Debug("mutation committed",
		slog.String("mutation_id", id),
		slog.String("op", op),
		slog.String("table", table),
		slog.Int("rows", n),
		slog.Duration("took", time.Since(start)),
	)

	return n, nil
}

func mutationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
