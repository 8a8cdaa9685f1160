// Package binhtest builds synthetic binh files for tests.
//
// Files are always written little-endian, exactly as on disk:
//
//	b := binhtest.New(42,
//		binhtest.Column{Name: "id"},
//		binhtest.Column{Name: "mass", Delta: 0.01})
//	b.AddBlock(
//		binhtest.Ints(binh.Int64, 0, 1, 2, 3),
//		binhtest.Ints(binh.QFloat16, 100, 5, 6, 7))
//	data := b.Bytes()
package binhtest

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/eunmann/rein/pkg/binh"
)

// Column describes one column of the file header.
type Column struct {
	Name    string
	Delta   float64
	Skipped bool
}

// Cell is the encoded payload of one column in one block.
type Cell struct {
	Flag binh.ColumnFlag
	Key  int64
	N    int64  // Number of elements in Data
	Data []byte // Little-endian payload; ignored for skipped columns
}

// Block is one block of cells, one per column.
type Block struct {
	Haloes int64
	Cells  []Cell
}

// Builder assembles a binh file.
type Builder struct {
	Version    int64
	Seed       int64
	MassColumn int64
	IsSorted   bool
	MinMass    float64
	TextHeader string

	// TextColumnNames replaces the comma-joined column names when set.
	TextColumnNames *string
	// DeclaredBlocks replaces the block count written to the header when set.
	DeclaredBlocks *int64
	// Trailing is appended after the last block.
	Trailing []byte

	Columns []Column
	Blocks  []Block
}

// New returns a version 2 builder with the given seed and columns.
func New(seed int64, cols ...Column) *Builder {
	return &Builder{Version: binh.Version, Seed: seed, Columns: cols}
}

// AddBlock appends a block. The halo count is the largest cell count.
func (b *Builder) AddBlock(cells ...Cell) *Builder {
	var haloes int64
	for _, c := range cells {
		haloes = max(haloes, c.N)
	}
	b.Blocks = append(b.Blocks, Block{Haloes: haloes, Cells: cells})
	return b
}

// Ints encodes values for an integer or quantized flag so that they decode
// back to values (before dequantization) with the given key.
func Ints(flag binh.ColumnFlag, key int64, values ...int64) Cell {
	size := flag.Size()
	offset := key - minInt(size)
	buf := make([]byte, 0, size*len(values))
	for _, v := range values {
		stored := v - offset
		switch size {
		case 1:
			buf = append(buf, byte(int8(stored)))
		case 2:
			buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(stored)))
		case 4:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(stored)))
		default:
			buf = binary.LittleEndian.AppendUint64(buf, uint64(stored))
		}
	}
	return Cell{Flag: flag, Key: key, N: int64(len(values)), Data: buf}
}

// Float64s encodes raw float64 values.
func Float64s(values ...float64) Cell {
	buf := make([]byte, 0, 8*len(values))
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return Cell{Flag: binh.Float64, N: int64(len(values)), Data: buf}
}

// Float32s encodes raw float32 values.
func Float32s(values ...float32) Cell {
	buf := make([]byte, 0, 4*len(values))
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return Cell{Flag: binh.Float32, N: int64(len(values)), Data: buf}
}

// Skip is the cell of a skipped column.
func Skip(flag binh.ColumnFlag) Cell {
	return Cell{Flag: flag}
}

// HeaderSize returns the offset of the first block.
func (b *Builder) HeaderSize() int64 {
	return binh.FixedHeaderSize + 9*int64(len(b.Columns)) +
		int64(len(b.TextHeader)) + int64(len(b.columnNames()))
}

func (b *Builder) columnNames() string {
	if b.TextColumnNames != nil {
		return *b.TextColumnNames
	}
	names := make([]string, len(b.Columns))
	named := false
	for i, c := range b.Columns {
		names[i] = c.Name
		named = named || c.Name != ""
	}
	if !named {
		return ""
	}
	return strings.Join(names, ",")
}

// Bytes returns the encoded file.
func (b *Builder) Bytes() []byte {
	names := b.columnNames()
	blocks := int64(len(b.Blocks))
	if b.DeclaredBlocks != nil {
		blocks = *b.DeclaredBlocks
	}

	var buf []byte
	word := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }

	word(uint64(b.Version))
	word(uint64(b.Seed))
	word(uint64(len(b.Columns)))
	word(uint64(b.MassColumn))
	word(uint64(blocks))
	word(uint64(len(b.TextHeader)))
	word(uint64(len(names)))
	if b.IsSorted {
		word(1)
	} else {
		word(0)
	}
	word(math.Float64bits(b.MinMass))

	for _, c := range b.Columns {
		word(math.Float64bits(c.Delta))
	}
	for _, c := range b.Columns {
		if c.Skipped {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	buf = append(buf, b.TextHeader...)
	buf = append(buf, names...)

	for _, blk := range b.Blocks {
		word(uint64(blk.Haloes))
		for _, c := range blk.Cells {
			word(uint64(c.Flag))
		}
		for _, c := range blk.Cells {
			word(uint64(c.Key))
		}
		for i, c := range blk.Cells {
			if i < len(b.Columns) && b.Columns[i].Skipped {
				continue
			}
			buf = append(buf, c.Data...)
		}
	}

	return append(buf, b.Trailing...)
}

func minInt(size int) int64 {
	switch size {
	case 1:
		return math.MinInt8
	case 2:
		return math.MinInt16
	case 4:
		return math.MinInt32
	default:
		return math.MinInt64
	}
}
