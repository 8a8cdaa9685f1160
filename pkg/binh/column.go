package binh

import "fmt"

// ColumnBlock reads column col of block as T.
//
// Integer-encoded columns convert to any Number type with Go conversion
// rules. Float-encoded columns can only be read as float32 or float64.
// Reading a quantized column advances the File's generator by one draw per
// element.
func ColumnBlock[T Number](f *File, block, col int) ([]T, error) {
	const op = "read column block"
	if err := f.checkRead(op, col); err != nil {
		return nil, err
	}
	if err := f.checkBlock(op, block); err != nil {
		return nil, err
	}
	if err := f.checkType(op, block, col, elementTypeOf[T]()); err != nil {
		return nil, err
	}

	out := make([]T, f.blocks[block].Haloes)
	if err := readBlockInto(f, op, block, col, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Column reads column col of every block, concatenated in block order.
func Column[T Number](f *File, col int) ([]T, error) {
	const op = "read column"
	if err := f.checkRead(op, col); err != nil {
		return nil, err
	}
	for b := range f.blocks {
		if err := f.checkType(op, b, col, elementTypeOf[T]()); err != nil {
			return nil, err
		}
	}

	out := make([]T, f.haloes)
	var start int64
	for b := range f.blocks {
		n := f.blocks[b].Haloes
		if err := readBlockInto(f, op, b, col, out[start:start+n]); err != nil {
			return nil, err
		}
		start += n
	}
	return out, nil
}

// Columns reads several columns at once, in the order given.
func Columns[T Number](f *File, cols ...int) ([][]T, error) {
	out := make([][]T, len(cols))
	for i, col := range cols {
		data, err := Column[T](f, col)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

// NamedColumn reads the column called name from every block.
func NamedColumn[T Number](f *File, name string) ([]T, error) {
	col, err := f.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return Column[T](f, col)
}

// NamedColumnBlock reads the column called name from one block.
func NamedColumnBlock[T Number](f *File, block int, name string) ([]T, error) {
	col, err := f.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return ColumnBlock[T](f, block, col)
}

// ReadColumnBlock reads column col of block as a slice of the Go type named
// by t, e.g. []float64 for ElemFloat64.
func (f *File) ReadColumnBlock(block, col int, t ElementType) (any, error) {
	switch t {
	case ElemInt8:
		return asAny(ColumnBlock[int8](f, block, col))
	case ElemInt16:
		return asAny(ColumnBlock[int16](f, block, col))
	case ElemInt32:
		return asAny(ColumnBlock[int32](f, block, col))
	case ElemInt64:
		return asAny(ColumnBlock[int64](f, block, col))
	case ElemUint8:
		return asAny(ColumnBlock[uint8](f, block, col))
	case ElemUint16:
		return asAny(ColumnBlock[uint16](f, block, col))
	case ElemUint32:
		return asAny(ColumnBlock[uint32](f, block, col))
	case ElemUint64:
		return asAny(ColumnBlock[uint64](f, block, col))
	case ElemFloat32:
		return asAny(ColumnBlock[float32](f, block, col))
	case ElemFloat64:
		return asAny(ColumnBlock[float64](f, block, col))
	}
	return nil, formatErrorf("read column block", "", "unknown element type %s", t)
}

// ReadColumn reads column col of every block as a slice of the Go type named
// by t.
func (f *File) ReadColumn(col int, t ElementType) (any, error) {
	switch t {
	case ElemInt8:
		return asAny(Column[int8](f, col))
	case ElemInt16:
		return asAny(Column[int16](f, col))
	case ElemInt32:
		return asAny(Column[int32](f, col))
	case ElemInt64:
		return asAny(Column[int64](f, col))
	case ElemUint8:
		return asAny(Column[uint8](f, col))
	case ElemUint16:
		return asAny(Column[uint16](f, col))
	case ElemUint32:
		return asAny(Column[uint32](f, col))
	case ElemUint64:
		return asAny(Column[uint64](f, col))
	case ElemFloat32:
		return asAny(Column[float32](f, col))
	case ElemFloat64:
		return asAny(Column[float64](f, col))
	}
	return nil, formatErrorf("read column", "", "unknown element type %s", t)
}

// ReadNamedColumn is ReadColumn with the column given by name.
func (f *File) ReadNamedColumn(name string, t ElementType) (any, error) {
	col, err := f.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return f.ReadColumn(col, t)
}

// ReadNamedColumnBlock is ReadColumnBlock with the column given by name.
func (f *File) ReadNamedColumnBlock(block int, name string, t ElementType) (any, error) {
	col, err := f.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return f.ReadColumnBlock(block, col, t)
}

func asAny[T Number](v []T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (f *File) checkRead(op string, col int) error {
	if err := f.checkOpen(op); err != nil {
		return err
	}
	return f.checkColumn(op, col)
}

// checkType rejects integer output types for float-encoded columns.
func (f *File) checkType(op string, block, col int, t ElementType) error {
	flag := f.blocks[block].Flags[col]
	if flag.IsInt() || t.IsFloat() {
		return nil
	}
	return &Error{
		Kind: ErrFormat, Op: op, Field: fmt.Sprintf("block %d column %d", block, col),
		Offset: -1, Want: -1, Got: -1,
		Err: fmt.Errorf("%s column read as %s: %w", flag, t, ErrTypeMismatch),
	}
}

// readBlockInto decodes column col of block into dst, which must hold
// exactly the block's halo count.
func readBlockInto[T Number](f *File, op string, block, col int, dst []T) error {
	b := &f.blocks[block]
	if len(dst) == 0 {
		return nil
	}

	field := fmt.Sprintf("block %d column %d", block, col)
	flag := b.Flags[col]
	if err := f.r.seek(op, field, b.columnOffset(f.header, col)); err != nil {
		return err
	}
	raw, err := f.r.elements(op, field, b.Haloes, flag.Size())
	if err != nil {
		return err
	}
	decodeInto(dst, raw, flag, b.Keys[col], f.header.Deltas[col], f.rng)
	return nil
}
