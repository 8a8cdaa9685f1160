// Package binh reads binh halo catalogue files.
//
// A binh file is a little-endian container: a 72-byte fixed header, an array
// header (per-column deltas and skip flags, a free-text header, and a
// comma-separated column name list), then a sequence of blocks. Each block
// starts with its halo count and one flag and one key per column, followed by
// the column payload: one contiguous run of Haloes elements for every column
// that is not skipped, in column order.
package binh

import "fmt"

const (
	// Version is the only on-disk version this package reads.
	Version int64 = 2

	// FixedHeaderSize is the size of the fixed-width header in bytes.
	FixedHeaderSize = 9 * 8

	// wordSize is the size of every fixed header and block metadata field.
	wordSize = 8

	// nameSeparator delimits names in the text column name list.
	nameSeparator = ","
)

// blockMetaSize returns the size of one block's metadata region: the halo
// count plus a flag and a key for every column.
func blockMetaSize(columns int64) int64 {
	return wordSize * (1 + 2*columns)
}

// ColumnFlag is the per-block encoding of one column.
type ColumnFlag int64

// Column encodings. The numeric values are stored on disk.
const (
	Float64 ColumnFlag = iota
	Float32
	Int64
	Int32
	Int16
	Int8
	QFloat64
	QFloat32
	QFloat16
	QFloat8
	QLogFloat64
	QLogFloat32
	QLogFloat16
	QLogFloat8
)

var flagNames = [...]string{
	Float64:     "Float64",
	Float32:     "Float32",
	Int64:       "Int64",
	Int32:       "Int32",
	Int16:       "Int16",
	Int8:        "Int8",
	QFloat64:    "QFloat64",
	QFloat32:    "QFloat32",
	QFloat16:    "QFloat16",
	QFloat8:     "QFloat8",
	QLogFloat64: "QLogFloat64",
	QLogFloat32: "QLogFloat32",
	QLogFloat16: "QLogFloat16",
	QLogFloat8:  "QLogFloat8",
}

// Valid reports whether f is a known encoding.
func (f ColumnFlag) Valid() bool {
	return f >= Float64 && f <= QLogFloat8
}

// String returns the encoding name.
func (f ColumnFlag) String() string {
	if f.Valid() {
		return flagNames[f]
	}
	return fmt.Sprintf("ColumnFlag(%d)", int64(f))
}

// Size returns the width in bytes of one stored element, or 0 for unknown
// encodings.
func (f ColumnFlag) Size() int {
	switch f {
	case Float64, Int64, QFloat64, QLogFloat64:
		return 8
	case Float32, Int32, QFloat32, QLogFloat32:
		return 4
	case Int16, QFloat16, QLogFloat16:
		return 2
	case Int8, QFloat8, QLogFloat8:
		return 1
	}
	return 0
}

// IsInt reports whether the column stores exact integers.
func (f ColumnFlag) IsInt() bool {
	return f >= Int64 && f <= Int8
}

// IsQuantized reports whether decoding draws dequantization noise.
func (f ColumnFlag) IsQuantized() bool {
	return f >= QFloat64 && f <= QLogFloat8
}

// IsLog reports whether the quantized value is a base-10 logarithm.
func (f ColumnFlag) IsLog() bool {
	return f >= QLogFloat64 && f <= QLogFloat8
}

// ElementType is the caller-requested output type of a column read.
type ElementType int

// Output element types.
const (
	ElemInt8 ElementType = iota
	ElemInt16
	ElemInt32
	ElemInt64
	ElemUint8
	ElemUint16
	ElemUint32
	ElemUint64
	ElemFloat32
	ElemFloat64
)

var elemNames = [...]string{
	ElemInt8:    "int8",
	ElemInt16:   "int16",
	ElemInt32:   "int32",
	ElemInt64:   "int64",
	ElemUint8:   "uint8",
	ElemUint16:  "uint16",
	ElemUint32:  "uint32",
	ElemUint64:  "uint64",
	ElemFloat32: "float32",
	ElemFloat64: "float64",
}

// String returns the Go name of the element type.
func (t ElementType) String() string {
	if t >= ElemInt8 && t <= ElemFloat64 {
		return elemNames[t]
	}
	return fmt.Sprintf("ElementType(%d)", int(t))
}

// IsFloat reports whether t is a floating-point type.
func (t ElementType) IsFloat() bool {
	return t == ElemFloat32 || t == ElemFloat64
}

// Number is the set of Go types a column can be decoded into.
type Number interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// elementTypeOf returns the ElementType matching T.
func elementTypeOf[T Number]() ElementType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return ElemInt8
	case int16:
		return ElemInt16
	case int32:
		return ElemInt32
	case int64:
		return ElemInt64
	case uint8:
		return ElemUint8
	case uint16:
		return ElemUint16
	case uint32:
		return ElemUint32
	case uint64:
		return ElemUint64
	case float32:
		return ElemFloat32
	default:
		return ElemFloat64
	}
}
