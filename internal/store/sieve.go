package store

import (
	"errors"
	"io"
)

// sieve is a single read-ahead window over the file. Small chunk reads are
// served from the window, which is refilled on a miss.
type sieve struct {
	size int
	addr uint64
	buf  []byte
}

func newSieve(size int) *sieve {
	return &sieve{size: size}
}

// read returns n bytes at addr. eof bounds the window so it never reads
// past the logical end of file.
func (s *sieve) read(r io.ReaderAt, addr, n, eof uint64) ([]byte, error) {
	out := make([]byte, n)
	if n > uint64(s.size) {
		if _, err := r.ReadAt(out, int64(addr)); err != nil {
			return nil, err
		}
		return out, nil
	}

	if addr < s.addr || addr+n > s.addr+uint64(len(s.buf)) {
		want := uint64(s.size)
		if eof > addr && eof-addr < want {
			want = eof - addr
		}
		want = max(want, n)
		if cap(s.buf) < int(want) {
			s.buf = make([]byte, want)
		}
		s.buf = s.buf[:want]
		m, err := r.ReadAt(s.buf, int64(addr))
		if err != nil && !(errors.Is(err, io.EOF) && uint64(m) >= n) {
			s.buf = s.buf[:0]
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		s.buf = s.buf[:m]
		s.addr = addr
	}
	copy(out, s.buf[addr-s.addr:])
	return out, nil
}

// invalidate drops the window if it overlaps [addr, addr+n).
func (s *sieve) invalidate(addr, n uint64) {
	if len(s.buf) == 0 {
		return
	}
	if addr < s.addr+uint64(len(s.buf)) && s.addr < addr+n {
		s.buf = s.buf[:0]
	}
}
