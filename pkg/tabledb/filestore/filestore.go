// Package filestore stores a tabledb database as one JSON file.
//
// Every persist rewrites the whole file atomically (temp file + rename), so a
// reader never observes a half-written database. The file may be edited by
// hand: comments and trailing commas are accepted on load.
package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/tabledb/pkg/fs"
	"github.com/calvinalkan/tabledb/pkg/tabledb"
)

// Defaults applied by [New] for zero [Options] fields.
const (
	DefaultPerm        os.FileMode = 0o644
	DefaultLockTimeout             = 5 * time.Second
)

// Options configures a [Store].
type Options struct {
	// Perm is the database file's mode. Default [DefaultPerm].
	Perm os.FileMode

	// LockTimeout bounds [Store.Lock]. Default [DefaultLockTimeout].
	LockTimeout time.Duration

	// Indent pretty-prints the file with this indent when non-empty.
	Indent string

	// FS is the filesystem to use. Default [fs.NewReal].
	FS fs.FS
}

// Store is a [tabledb.Store] backed by a JSON file.
type Store struct {
	path   string
	opts   Options
	fs     fs.FS
	locker *fs.Locker
}

// New returns a store for the database file at path. Nothing is read or
// created until the store is used.
func New(path string, opts Options) *Store {
	if opts.Perm == 0 {
		opts.Perm = DefaultPerm
	}

	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}

	if opts.FS == nil {
		opts.FS = fs.NewReal()
	}

	return &Store{path: path, opts: opts, fs: opts.FS, locker: fs.NewLocker(opts.FS)}
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Exists implements [tabledb.Store].
func (s *Store) Exists() (bool, error) {
	return s.fs.Exists(s.path)
}

// Load implements [tabledb.Store]. Numbers decode as float64; the engine
// converts them back to each column's type when the database is opened.
func (s *Store) Load() (*tabledb.RawDB, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	db, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}

	return db, nil
}

// Persist implements [tabledb.Store].
func (s *Store) Persist(db *tabledb.RawDB) error {
	data, err := Encode(db, s.opts.Indent)
	if err != nil {
		return err
	}

	return s.fs.WriteFileAtomic(s.path, data, s.opts.Perm)
}

// Remove implements [tabledb.Store].
func (s *Store) Remove() error {
	return s.fs.Remove(s.path)
}

// CopyTo implements [tabledb.Store]. It fails with an error matching
// [os.ErrExist] if target exists.
func (s *Store) CopyTo(target string) error {
	exists, err := s.fs.Exists(target)
	if err != nil {
		return fmt.Errorf("checking %s: %w", target, err)
	}

	if exists {
		return fmt.Errorf("copy target %s: %w", target, os.ErrExist)
	}

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}

	return s.fs.WriteFileAtomic(target, data, s.opts.Perm)
}

// Lock takes an exclusive lock on "<path>.lock", waiting up to the
// configured LockTimeout. Hold it around Open and every mutation when more
// than one process may use the file.
func (s *Store) Lock() (io.Closer, error) {
	lock, err := s.locker.LockWithTimeout(s.path+".lock", s.opts.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", s.path, err)
	}

	return lock, nil
}

// Decode parses a database file. JSON with comments and trailing commas is
// accepted.
func Decode(data []byte) (*tabledb.RawDB, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, err
	}

	db := tabledb.NewRawDB()

	if len(bytes.TrimSpace(std)) == 0 {
		return nil, errors.New("empty file")
	}

	if err := json.Unmarshal(std, db); err != nil {
		return nil, err
	}

	if db.Tables == nil {
		db.Tables = map[string]*tabledb.RawTable{}
	}

	return db, nil
}

// Encode renders db as JSON, indented when indent is non-empty.
func Encode(db *tabledb.RawDB, indent string) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	if indent != "" {
		data, err = json.MarshalIndent(db, "", indent)
	} else {
		data, err = json.Marshal(db)
	}

	if err != nil {
		return nil, fmt.Errorf("encoding database: %w", err)
	}

	return append(data, '\n'), nil
}
