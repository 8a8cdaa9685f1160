package source

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile is a read-only memory-mapped file.
type MmapFile struct {
	path   string
	data   []byte
	size   int64
	closed bool
}

// OpenMmap opens a file and maps it into memory.
func OpenMmap(path string) (*MmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	size := info.Size()
	if size == 0 {
		return &MmapFile{path: path, data: nil, size: 0}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &MmapFile{
		path: path,
		data: data,
		size: size,
	}, nil
}

// ReadAt copies mapped bytes starting at off into p.
func (m *MmapFile) ReadAt(p []byte, off int64) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	return readAt(m.data, p, off)
}

// Close unmaps the file. Closing twice returns ErrClosed.
func (m *MmapFile) Close() error {
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// Size returns the file size.
func (m *MmapFile) Size() int64 {
	return m.size
}

// Path returns the mapped file's path.
func (m *MmapFile) Path() string {
	return m.path
}
