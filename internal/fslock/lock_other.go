//go:build !unix

package fslock

import "os"

func lock(f *os.File, mode Mode) error {
	return nil
}

func unlock(f *os.File) error {
	return nil
}
