package tabledb

import (
	"fmt"
	"io/fs"
	"sync"
)

// MemStore is an in-memory [Store]. Copies are kept in memory as well and can
// be opened with [MemStore.Copy]. Useful for tests and scratch databases.
type MemStore struct {
	mu     sync.Mutex
	db     *RawDB
	copies map[string]*RawDB

	// Persists counts successful Persist calls.
	Persists int

	// FailPersist, when set, is returned by Persist instead of storing.
	FailPersist error
}

// NewMemStore returns an empty store with no database in it.
func NewMemStore() *MemStore {
	return &MemStore{copies: map[string]*RawDB{}}
}

// Exists implements [Store].
func (s *MemStore) Exists() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db != nil, nil
}

// Load implements [Store].
func (s *MemStore) Load() (*RawDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, fmt.Errorf("load: %w", fs.ErrNotExist)
	}

	return s.db.Clone(), nil
}

// Persist implements [Store].
func (s *MemStore) Persist(db *RawDB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPersist != nil {
		return s.FailPersist
	}

	s.db = db.Clone()
	s.Persists++

	return nil
}

// Remove implements [Store].
func (s *MemStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return fmt.Errorf("remove: %w", fs.ErrNotExist)
	}

	s.db = nil

	return nil
}

// CopyTo implements [Store].
func (s *MemStore) CopyTo(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.copies[path]; ok {
		return fmt.Errorf("copy to %s: %w", path, fs.ErrExist)
	}

	if s.db == nil {
		return fmt.Errorf("copy to %s: %w", path, fs.ErrNotExist)
	}

	s.copies[path] = s.db.Clone()

	return nil
}

// Copy returns a store holding the copy written to path, or nil.
func (s *MemStore) Copy(path string) *MemStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.copies[path]
	if !ok {
		return nil
	}

	return &MemStore{db: db.Clone(), copies: map[string]*RawDB{}}
}
