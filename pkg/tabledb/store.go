package tabledb

// Store persists a whole database. The engine loads it once at [Open] and
// rewrites it after every successful mutation.
//
// CopyTo must fail with an error matching [io/fs.ErrExist] when the target
// already exists.
type Store interface {
	Exists() (bool, error)
	Load() (*RawDB, error)
	Persist(db *RawDB) error
	Remove() error
	CopyTo(path string) error
}
