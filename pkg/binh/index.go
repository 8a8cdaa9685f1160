package binh

import (
	"fmt"
	"io"
	"math"
)

// BlockMeta is the index entry for one block.
type BlockMeta struct {
	Haloes int64        // Number of haloes stored in the block
	Flags  []ColumnFlag // Encoding of each column
	Keys   []int64      // Integer offset (or quantized minimum) of each column

	HeaderOffset int64 // Start of the block's metadata
	DataOffset   int64 // Start of the block's column payload
	DataLength   int64 // Payload size in bytes
}

// End returns the offset just past the block's payload.
func (b *BlockMeta) End() int64 {
	return b.DataOffset + b.DataLength
}

// rowWidth returns the payload bytes per halo: the summed element widths of
// all columns that are not skipped.
func rowWidth(hd *Header, flags []ColumnFlag) int64 {
	var width int64
	for c, f := range flags {
		if !hd.Skipped(c) {
			width += int64(f.Size())
		}
	}
	return width
}

// columnOffset returns the offset of column col's payload within the source.
func (b *BlockMeta) columnOffset(hd *Header, col int) int64 {
	return b.DataOffset + b.Haloes*rowWidth(hd, b.Flags[:col])
}

// buildIndex walks every block from the end of the header, reading its
// metadata and computing where its payload starts and ends. It returns the
// offset just past the last payload.
func buildIndex(r *byteReader, hd *Header) ([]BlockMeta, int64, error) {
	const op = "read block index"

	start := hd.Size()
	metaSize := blockMetaSize(hd.Columns)

	// Every block needs at least its metadata, so Blocks is bounded by the
	// bytes that follow the header before anything is allocated.
	if avail := r.size - start; avail < 0 || hd.Blocks > avail/metaSize {
		want := int64(-1)
		if hd.Blocks <= math.MaxInt64/metaSize {
			want = hd.Blocks * metaSize
		}
		return nil, 0, &Error{
			Kind: ErrIO, Op: op, Field: "blocks", Offset: start,
			Want: want, Got: max(avail, 0), Err: io.ErrUnexpectedEOF,
		}
	}

	cols := int(hd.Columns)
	var total int64
	blocks := make([]BlockMeta, hd.Blocks)
	flagArena := make([]ColumnFlag, len(blocks)*cols)
	keyArena := make([]int64, len(blocks)*cols)

	for i := range blocks {
		b := &blocks[i]
		field := fmt.Sprintf("block %d", i)

		b.HeaderOffset = start
		b.DataOffset = start + metaSize
		b.Flags = flagArena[i*cols : (i+1)*cols : (i+1)*cols]
		b.Keys = keyArena[i*cols : (i+1)*cols : (i+1)*cols]

		if err := r.seek(op, field, start); err != nil {
			return nil, 0, err
		}
		meta, err := r.words(op, field, 1+2*hd.Columns)
		if err != nil {
			return nil, 0, err
		}

		b.Haloes = int64(meta[0])
		if b.Haloes < 0 {
			return nil, 0, formatErrorf(op, field+" halo_count", "negative value %d", b.Haloes)
		}
		// Zero-width rows leave halo_count unbounded by the file size.
		if b.Haloes > math.MaxInt64-total {
			return nil, 0, formatErrorf(op, field+" halo_count", "total haloes overflow")
		}
		total += b.Haloes
		for c := 0; c < cols; c++ {
			b.Flags[c] = ColumnFlag(meta[1+c])
			b.Keys[c] = int64(meta[1+cols+c])
			if !b.Flags[c].Valid() {
				return nil, 0, formatErrorf(op, fmt.Sprintf("%s column %d flag", field, c),
					"unknown encoding %d", int64(b.Flags[c]))
			}
		}

		width := rowWidth(hd, b.Flags)
		if width > 0 && b.Haloes > math.MaxInt64/width {
			return nil, 0, formatErrorf(op, field+" payload", "%d haloes of %d bytes overflow", b.Haloes, width)
		}
		b.DataLength = b.Haloes * width
		if avail := r.size - b.DataOffset; b.DataLength > avail {
			return nil, 0, &Error{
				Kind: ErrIO, Op: op, Field: field + " payload", Offset: b.DataOffset,
				Want: b.DataLength, Got: avail, Err: io.ErrUnexpectedEOF,
			}
		}

		start = b.End()
	}

	return blocks, start, nil
}
