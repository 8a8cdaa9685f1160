package binh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunmann/rein/pkg/endian"
)

func TestColumnFlagSizes(t *testing.T) {
	tests := []struct {
		flag  ColumnFlag
		size  int
		isInt bool
		quant bool
		log   bool
	}{
		{Float64, 8, false, false, false},
		{Float32, 4, false, false, false},
		{Int64, 8, true, false, false},
		{Int32, 4, true, false, false},
		{Int16, 2, true, false, false},
		{Int8, 1, true, false, false},
		{QFloat64, 8, false, true, false},
		{QFloat32, 4, false, true, false},
		{QFloat16, 2, false, true, false},
		{QFloat8, 1, false, true, false},
		{QLogFloat64, 8, false, true, true},
		{QLogFloat32, 4, false, true, true},
		{QLogFloat16, 2, false, true, true},
		{QLogFloat8, 1, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.flag.String(), func(t *testing.T) {
			assert.True(t, tt.flag.Valid())
			assert.Equal(t, tt.size, tt.flag.Size())
			assert.Equal(t, tt.isInt, tt.flag.IsInt())
			assert.Equal(t, tt.quant, tt.flag.IsQuantized())
			assert.Equal(t, tt.log, tt.flag.IsLog())
		})
	}

	for _, bad := range []ColumnFlag{-1, 14, 1 << 40} {
		assert.False(t, bad.Valid())
		assert.Equal(t, 0, bad.Size())
	}
	assert.Equal(t, "ColumnFlag(14)", ColumnFlag(14).String())
}

func TestElementTypeOf(t *testing.T) {
	assert.Equal(t, ElemInt8, elementTypeOf[int8]())
	assert.Equal(t, ElemUint16, elementTypeOf[uint16]())
	assert.Equal(t, ElemInt64, elementTypeOf[int64]())
	assert.Equal(t, ElemFloat32, elementTypeOf[float32]())
	assert.Equal(t, ElemFloat64, elementTypeOf[float64]())
	assert.True(t, ElemFloat32.IsFloat())
	assert.False(t, ElemUint64.IsFloat())
	assert.Equal(t, "uint32", ElemUint32.String())
}

func newTestReader(t *testing.T, data []byte) *byteReader {
	t.Helper()
	r, err := newByteReader(bytes.NewReader(data))
	require.NoError(t, err)
	return r
}

func TestByteReaderWords(t *testing.T) {
	var data []byte
	for _, v := range []uint64{2, 1 << 63, 0xdeadbeef} {
		data = binary.LittleEndian.AppendUint64(data, v)
	}
	r := newTestReader(t, data)
	assert.Equal(t, int64(24), r.size)

	words, err := r.words("test", "fields", 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1 << 63, 0xdeadbeef}, words)
	assert.Equal(t, int64(0), r.remaining())
}

func TestByteReaderShortRead(t *testing.T) {
	r := newTestReader(t, make([]byte, 13))

	_, err := r.words("read header", "deltas", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "deltas", berr.Field)
	assert.Equal(t, int64(0), berr.Offset)
	assert.Equal(t, int64(16), berr.Want)
	assert.Equal(t, int64(13), berr.Got)
	assert.Equal(t, "binh: read header deltas at offset 0: want 16, got 13: unexpected EOF", err.Error())

	// Nothing was consumed by the failed read.
	buf, err := r.read("read header", "text", 13)
	require.NoError(t, err)
	assert.Len(t, buf, 13)
}

func TestByteReaderHugeCount(t *testing.T) {
	r := newTestReader(t, make([]byte, 64))

	_, err := r.elements("read", "huge", 1<<62, 8)
	assert.ErrorIs(t, err, ErrIO)

	_, err = r.read("read", "negative", -1)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestByteReaderElementSize(t *testing.T) {
	r := newTestReader(t, make([]byte, 12))

	_, err := r.elements("read", "odd", 4, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, endian.ErrElementSize)
}

func TestByteReaderSeek(t *testing.T) {
	r := newTestReader(t, make([]byte, 16))

	require.NoError(t, r.seek("test", "end", 16))
	assert.Equal(t, int64(0), r.remaining())

	err := r.seek("test", "past end", 17)
	assert.ErrorIs(t, err, ErrIO)
	err = r.seek("test", "negative", -1)
	assert.ErrorIs(t, err, ErrIO)
}

func TestDecodeWraparound(t *testing.T) {
	raw := make([]byte, 8)
	binary.NativeEndian.PutUint64(raw, uint64(1<<63-1))

	// key - MinInt64 wraps, and so does the sum.
	dst := make([]int64, 1)
	decodeInto(dst, raw, Int64, 1, 0, nil)
	assert.Equal(t, int64(0), dst[0])
}

func TestNameIndexCollisions(t *testing.T) {
	idx, err := newNameIndex([]string{"a", "b", "a"})
	require.NoError(t, err)

	// Simulate a 64-bit hash collision between distinct names.
	idx.collisions = append(idx.collisions, nameEntry{name: "c", column: 7})

	assert.Equal(t, 2, idx.lookup("a"))
	assert.Equal(t, 1, idx.lookup("b"))
	assert.Equal(t, 7, idx.lookup("c"))
	assert.Equal(t, -1, idx.lookup("d"))

	empty, err := newNameIndex(nil)
	require.NoError(t, err)
	assert.Equal(t, -1, empty.lookup("a"))
}

func TestErrorMessage(t *testing.T) {
	err := notFoundErrorf("column index", `"rvir"`, "no such column")
	assert.Equal(t, `binh: column index "rvir": no such column`, err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrFormat))
}
