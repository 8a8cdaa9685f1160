// Package endian normalizes the byte order of fixed-size elements.
//
// binh files are always little-endian on disk. Readers pull raw element bytes
// into a buffer, call ToHost, and then decode with binary.NativeEndian.
package endian

import (
	"errors"
	"fmt"

	"golang.org/x/sys/cpu"
)

var (
	// ErrElementSize indicates an element size other than 2, 4, or 8 bytes.
	ErrElementSize = errors.New("unsupported element size")
	// ErrShortBuffer indicates a buffer smaller than size*n bytes.
	ErrShortBuffer = errors.New("buffer too short")
)

// HostLittleEndian reports whether the executing host is little-endian.
// The answer is fixed at compile time for each GOARCH.
func HostLittleEndian() bool {
	return !cpu.IsBigEndian
}

// Swap reverses the byte order of n contiguous elements of size bytes each,
// in place. size must be 2, 4, or 8.
func Swap(buf []byte, size, n int) error {
	if size != 2 && size != 4 && size != 8 {
		return fmt.Errorf("swap %d-byte elements: %w", size, ErrElementSize)
	}
	if n < 0 || len(buf) < size*n {
		return fmt.Errorf("swap %d elements of %d bytes in %d-byte buffer: %w",
			n, size, len(buf), ErrShortBuffer)
	}

	switch size {
	case 2:
		for i := 0; i < n*2; i += 2 {
			buf[i], buf[i+1] = buf[i+1], buf[i]
		}
	case 4:
		for i := 0; i < n*4; i += 4 {
			buf[i], buf[i+3] = buf[i+3], buf[i]
			buf[i+1], buf[i+2] = buf[i+2], buf[i+1]
		}
	case 8:
		for i := 0; i < n*8; i += 8 {
			buf[i], buf[i+7] = buf[i+7], buf[i]
			buf[i+1], buf[i+6] = buf[i+6], buf[i+1]
			buf[i+2], buf[i+5] = buf[i+5], buf[i+2]
			buf[i+3], buf[i+4] = buf[i+4], buf[i+3]
		}
	}
	return nil
}

// ToHost converts a buffer of little-endian elements to host byte order.
// It is a no-op on little-endian hosts and for 1-byte elements; any trailing
// partial element is left untouched.
func ToHost(buf []byte, size int) error {
	if size == 1 {
		return nil
	}
	if size != 2 && size != 4 && size != 8 {
		return fmt.Errorf("normalize %d-byte elements: %w", size, ErrElementSize)
	}
	if HostLittleEndian() {
		return nil
	}
	return Swap(buf, size, len(buf)/size)
}
