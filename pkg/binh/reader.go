package binh

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/eunmann/rein/pkg/endian"
)

// byteReader tracks the position and size of the underlying source so that
// every length is checked against the remaining bytes before a buffer is
// allocated for it.
type byteReader struct {
	rs   io.ReadSeeker
	size int64
	off  int64
}

func newByteReader(rs io.ReadSeeker) (*byteReader, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Op: "seek", Field: "end", Offset: -1, Want: -1, Got: -1, Err: err}
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, &Error{Kind: ErrIO, Op: "seek", Field: "start", Offset: 0, Want: -1, Got: -1, Err: err}
	}
	return &byteReader{rs: rs, size: size}, nil
}

func (r *byteReader) remaining() int64 {
	return r.size - r.off
}

func (r *byteReader) seek(op, field string, off int64) error {
	if off < 0 || off > r.size {
		return &Error{Kind: ErrIO, Op: op, Field: field, Offset: off, Want: off, Got: r.size, Err: io.ErrUnexpectedEOF}
	}
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return &Error{Kind: ErrIO, Op: op, Field: field, Offset: off, Want: -1, Got: -1, Err: err}
	}
	r.off = off
	return nil
}

// truncated reports a request for more bytes than remain.
func (r *byteReader) truncated(op, field string, want int64) *Error {
	return &Error{Kind: ErrIO, Op: op, Field: field, Offset: r.off, Want: want, Got: r.remaining(), Err: io.ErrUnexpectedEOF}
}

// read returns the next n bytes.
func (r *byteReader) read(op, field string, n int64) ([]byte, error) {
	if n < 0 {
		return nil, formatErrorf(op, field, "negative length %d", n)
	}
	if n > r.remaining() {
		return nil, r.truncated(op, field, n)
	}

	buf := make([]byte, n)
	got, err := io.ReadFull(r.rs, buf)
	start := r.off
	r.off += int64(got)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &Error{Kind: ErrIO, Op: op, Field: field, Offset: start, Want: n, Got: int64(got), Err: err}
	}
	return buf, nil
}

// elements returns the next n elements of size bytes, converted to host
// byte order.
func (r *byteReader) elements(op, field string, n int64, size int) ([]byte, error) {
	if n < 0 {
		return nil, formatErrorf(op, field, "negative element count %d", n)
	}
	if n > r.remaining()/int64(size) {
		want := int64(-1)
		if n <= math.MaxInt64/int64(size) {
			want = n * int64(size)
		}
		return nil, r.truncated(op, field, want)
	}
	buf, err := r.read(op, field, n*int64(size))
	if err != nil {
		return nil, err
	}
	if err := endian.ToHost(buf, size); err != nil {
		return nil, newError(ErrFormat, op, field, err)
	}
	return buf, nil
}

// words returns the next n little-endian 64-bit words.
func (r *byteReader) words(op, field string, n int64) ([]uint64, error) {
	buf, err := r.elements(op, field, n, wordSize)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.NativeEndian.Uint64(buf[i*wordSize:])
	}
	return out, nil
}
