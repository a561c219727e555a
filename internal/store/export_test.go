package store

import "github.com/robert-malhotra/go-kea/internal/fslock"

func unlockForTest(f *File) error {
	f.locked = false
	return fslock.Unlock(f.file)
}
