package binh

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	// ErrIO indicates an unreadable source, a short read, or a failed seek.
	ErrIO = errors.New("binh: i/o error")
	// ErrFormat indicates bytes that do not form a valid version 2 file, or a
	// read that the file's encodings cannot satisfy.
	ErrFormat = errors.New("binh: format error")
	// ErrNotFound indicates an unknown column name, an out-of-range block or
	// column index, or a column skipped by the writer.
	ErrNotFound = errors.New("binh: not found")
)

// Causes wrapped by Error alongside a kind.
var (
	// ErrVersion indicates an unsupported on-disk version.
	ErrVersion = errors.New("unsupported version")
	// ErrTypeMismatch indicates a float-encoded column requested as integers.
	ErrTypeMismatch = errors.New("element type mismatch")
	// ErrClosed indicates use of a closed File.
	ErrClosed = errors.New("file closed")
	// ErrSkipped indicates a column whose payload was not written.
	ErrSkipped = errors.New("column skipped")

	errColumnNameCount = errors.New("column name count does not match columns")
)

// Error describes a failed open or read. Offset, Want and Got are -1 when
// they do not apply.
type Error struct {
	// Kind is ErrIO, ErrFormat or ErrNotFound.
	Kind error
	// Op is the operation that failed, e.g. "read header" or "read column".
	Op string
	// Field names the header field, block or column involved.
	Field string
	// Offset is the byte offset in the source.
	Offset int64
	// Want and Got are the expected and actual values or byte counts.
	Want, Got int64
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("binh: ")
	b.WriteString(e.Op)
	if e.Field != "" {
		fmt.Fprintf(&b, " %s", e.Field)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Want >= 0 || e.Got >= 0 {
		fmt.Fprintf(&b, ": want %d, got %d", e.Want, e.Got)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the kind and the cause so errors.Is matches both.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, field string, err error) *Error {
	return &Error{Kind: kind, Op: op, Field: field, Offset: -1, Want: -1, Got: -1, Err: err}
}

func formatErrorf(op, field, format string, args ...any) *Error {
	return newError(ErrFormat, op, field, fmt.Errorf(format, args...))
}

func notFoundErrorf(op, field, format string, args ...any) *Error {
	return newError(ErrNotFound, op, field, fmt.Errorf(format, args...))
}
