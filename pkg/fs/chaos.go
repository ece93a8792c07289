package fs

import (
	"errors"
	"io/fs"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
//
// The zero value disables all fault injection.
type ChaosConfig struct {
	// ReadFailRate controls how often FS.ReadFile fails, returning no data
	// and EIO, EACCES or EMFILE.
	ReadFailRate float64

	// WriteFailRate controls how often FS.WriteFileAtomic fails. The target
	// is left untouched, matching a failed write of the temp file.
	// Returns EIO, ENOSPC, EDQUOT or EROFS.
	WriteFailRate float64

	// OpenFailRate controls how often FS.OpenFile fails.
	// Returns EACCES, EIO, EMFILE or ENFILE.
	OpenFailRate float64

	// StatFailRate controls how often FS.Stat and FS.Exists fail.
	// Returns EACCES or EIO.
	StatFailRate float64

	// RemoveFailRate controls how often FS.Remove fails.
	// Returns EACCES, EPERM, EBUSY, EIO or EROFS.
	RemoveFailRate float64

	// MkdirAllFailRate controls how often FS.MkdirAll fails.
	// Returns EACCES, EIO, ENOSPC or EROFS.
	MkdirAllFailRate float64
}

// ChaosMode controls how [Chaos] behaves.
type ChaosMode uint8

const (
	// ChaosModeActive enables fault-rate injection.
	// This is the default mode for a new [Chaos].
	ChaosModeActive ChaosMode = iota

	// ChaosModeNoOp passes every operation directly to the underlying FS.
	ChaosModeNoOp
)

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	ReadFails   int64
	WriteFails  int64
	OpenFails   int64
	StatFails   int64
	RemoveFails int64
	MkdirFails  int64
}

// Total returns the number of injected faults of any kind.
func (s ChaosStats) Total() int64 {
	return s.ReadFails + s.WriteFails + s.OpenFails + s.StatFails + s.RemoveFails + s.MkdirFails
}

// chaosError marks an error as intentionally injected by [Chaos].
//
// It wraps an [*fs.PathError] carrying a real [syscall.Errno], so errors.Is
// and helpers like os.IsPermission behave like they do for real OS errors.
type chaosError struct {
	Err error
}

func (e *chaosError) Error() string { return "chaos: " + e.Err.Error() }
func (e *chaosError) Unwrap() error { return e.Err }

// IsChaosErr reports whether err (or any wrapped error) was injected by [Chaos].
func IsChaosErr(err error) bool {
	var injected *chaosError

	return errors.As(err, &injected)
}

// Chaos wraps an [FS] and injects random failures for testing.
//
// Each call independently decides whether to fail; there is no per-path
// sticky state. Chaos never injects ENOENT, so any os.IsNotExist result comes
// from the wrapped FS. Injected failures happen before the wrapped FS is
// touched, so a failed call has no side effects.
type Chaos struct {
	fs     FS
	config ChaosConfig
	mode   atomic.Uint32

	rngMu sync.Mutex
	rng   *rand.Rand

	readFails   atomic.Int64
	writeFails  atomic.Int64
	openFails   atomic.Int64
	statFails   atomic.Int64
	removeFails atomic.Int64
	mkdirFails  atomic.Int64
}

// NewChaos creates a new [Chaos] filesystem wrapping the given [FS].
// The seed controls random fault injection for reproducibility.
// Panics if underlying is nil.
func NewChaos(underlying FS, seed int64, config ChaosConfig) *Chaos {
	if underlying == nil {
		panic("underlying fs is nil")
	}

	return &Chaos{
		fs:     underlying,
		config: config,
		rng:    rand.New(rand.NewPCG(uint64(seed), uint64(seed))),
	}
}

// SetMode switches between injecting faults and passing calls through.
// It is safe to call concurrently with filesystem operations.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// Stats returns the current fault injection counts.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		ReadFails:   c.readFails.Load(),
		WriteFails:  c.writeFails.Load(),
		OpenFails:   c.openFails.Load(),
		StatFails:   c.statFails.Load(),
		RemoveFails: c.removeFails.Load(),
		MkdirFails:  c.mkdirFails.Load(),
	}
}

// OpenFile opens a file with fault injection.
func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if err := c.inject("open", path, c.config.OpenFailRate, &c.openFails,
		syscall.EACCES, syscall.EIO, syscall.EMFILE, syscall.ENFILE); err != nil {
		return nil, err
	}

	return c.fs.OpenFile(path, flag, perm)
}

// ReadFile reads a file with fault injection.
func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if err := c.inject("read", path, c.config.ReadFailRate, &c.readFails,
		syscall.EIO, syscall.EACCES, syscall.EMFILE); err != nil {
		return nil, err
	}

	return c.fs.ReadFile(path)
}

// WriteFileAtomic replaces a file with fault injection.
func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := c.inject("write", path, c.config.WriteFailRate, &c.writeFails,
		syscall.EIO, syscall.ENOSPC, syscall.EDQUOT, syscall.EROFS); err != nil {
		return err
	}

	return c.fs.WriteFileAtomic(path, data, perm)
}

// MkdirAll creates directories with fault injection.
func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	if err := c.inject("mkdir", path, c.config.MkdirAllFailRate, &c.mkdirFails,
		syscall.EACCES, syscall.EIO, syscall.ENOSPC, syscall.EROFS); err != nil {
		return err
	}

	return c.fs.MkdirAll(path, perm)
}

// Stat returns file info with fault injection.
func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	if err := c.inject("stat", path, c.config.StatFailRate, &c.statFails,
		syscall.EACCES, syscall.EIO); err != nil {
		return nil, err
	}

	return c.fs.Stat(path)
}

// Exists checks for a file with fault injection.
func (c *Chaos) Exists(path string) (bool, error) {
	if err := c.inject("stat", path, c.config.StatFailRate, &c.statFails,
		syscall.EACCES, syscall.EIO); err != nil {
		return false, err
	}

	return c.fs.Exists(path)
}

// Remove deletes a file with fault injection.
func (c *Chaos) Remove(path string) error {
	if err := c.inject("remove", path, c.config.RemoveFailRate, &c.removeFails,
		syscall.EACCES, syscall.EPERM, syscall.EBUSY, syscall.EIO, syscall.EROFS); err != nil {
		return err
	}

	return c.fs.Remove(path)
}

// inject returns an injected error with probability rate, or nil.
func (c *Chaos) inject(op, path string, rate float64, counter *atomic.Int64, errnos ...syscall.Errno) error {
	if ChaosMode(c.mode.Load()) != ChaosModeActive || rate <= 0 {
		return nil
	}

	c.rngMu.Lock()
	hit := c.rng.Float64() < rate
	errno := errnos[c.rng.IntN(len(errnos))]
	c.rngMu.Unlock()

	if !hit {
		return nil
	}

	counter.Add(1)

	return &chaosError{Err: &fs.PathError{Op: op, Path: path, Err: errno}}
}

// Compile-time interface check.
var _ FS = (*Chaos)(nil)
