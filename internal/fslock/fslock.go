// Package fslock takes advisory whole-file locks on open container files.
//
// A writer holds an exclusive lock and readers hold shared locks, so a file
// cannot be modified while another process reads or writes it. Locks are
// non-blocking: a conflicting lock fails immediately with [ErrLocked].
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): flock(2) via golang.org/x/sys/unix
//   - Other platforms: locking is a no-op
package fslock

import (
	"errors"
	"os"
)

// ErrLocked is returned when another process holds a conflicting lock.
var ErrLocked = errors.New("file is locked by another process")

// Mode selects the kind of lock.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

// Lock takes a lock on f. The lock is released by Unlock or by closing f.
func Lock(f *os.File, mode Mode) error {
	return lock(f, mode)
}

// Unlock releases a lock taken by Lock.
func Unlock(f *os.File) error {
	return unlock(f)
}
