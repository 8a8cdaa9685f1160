// Package source provides random-access byte sources for binh catalogues:
// in-memory buffers, memory-mapped local files, compressed local files, and
// S3 objects.
package source

import (
	"errors"
	"io"
)

// ErrClosed is returned by reads on a closed source.
var ErrClosed = errors.New("source closed")

// Source is a read-only, random-access byte source of known size.
type Source interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the source in bytes.
	Size() int64
}

// Bytes returns a Source backed by b. The slice is not copied.
func Bytes(b []byte) Source {
	return &memSource{data: b}
}

type memSource struct {
	data   []byte
	closed bool
}

func (m *memSource) ReadAt(p []byte, off int64) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	return readAt(m.data, p, off)
}

func (m *memSource) Size() int64 {
	return int64(len(m.data))
}

func (m *memSource) Close() error {
	m.closed = true
	m.data = nil
	return nil
}

// readAt implements io.ReaderAt semantics over a byte slice.
func readAt(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// NewReadSeeker returns an io.ReadSeeker over the whole source.
func NewReadSeeker(src Source) io.ReadSeeker {
	return io.NewSectionReader(src, 0, src.Size())
}
