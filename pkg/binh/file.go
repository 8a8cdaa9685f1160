package binh

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/eunmann/rein/pkg/source"
	"github.com/eunmann/rein/pkg/splitmix"
)

// File is an open binh file. The header and the block index are read eagerly
// by Open; column payloads are read on demand.
//
// A File is not safe for concurrent use. Its reads move a shared position in
// the underlying source and quantized columns draw from a shared generator.
// Concurrent readers should each open their own File.
type File struct {
	r      *byteReader
	closer io.Closer

	header *Header
	blocks []BlockMeta
	names  *nameIndex
	rng    *splitmix.Rand

	haloes int64
	log    zerolog.Logger
	closed bool
}

// Open reads a binh file from rs with the default configuration. On success
// the File owns rs and closes it on Close if rs implements io.Closer. On
// failure rs is left open.
func Open(rs io.ReadSeeker) (*File, error) {
	return OpenWithConfig(rs, DefaultConfig())
}

// OpenWithConfig is like Open with explicit options.
func OpenWithConfig(rs io.ReadSeeker, cfg Config) (*File, error) {
	cfg = cfg.withDefaults()

	r, err := newByteReader(rs)
	if err != nil {
		return nil, err
	}

	hd, err := readHeader(r, cfg)
	if err != nil {
		return nil, err
	}

	blocks, end, err := buildIndex(r, hd)
	if err != nil {
		return nil, err
	}

	if trailing := r.size - end; trailing > 0 {
		if cfg.Strict {
			return nil, &Error{
				Kind: ErrFormat, Op: "read block index", Field: "trailing data", Offset: end,
				Want: 0, Got: trailing, Err: errors.New("bytes after last block"),
			}
		}
		cfg.Logger.Warn().
			Int64("offset", end).
			Int64("trailing_bytes", trailing).
			Msg("ignoring bytes after last block")
	}

	names, err := newNameIndex(hd.ColumnNames)
	if err != nil {
		return nil, newError(ErrFormat, "read header", "text_column_names", err)
	}

	f := &File{
		r:      r,
		header: hd,
		blocks: blocks,
		names:  names,
		rng:    splitmix.New(uint64(hd.Seed)),
		log:    *cfg.Logger,
	}
	if c, ok := rs.(io.Closer); ok {
		f.closer = c
	}
	for i := range blocks {
		f.haloes += blocks[i].Haloes
	}

	f.log.Debug().
		Int64("version", hd.Version).
		Int64("columns", hd.Columns).
		Int64("blocks", hd.Blocks).
		Int64("haloes", f.haloes).
		Int64("bytes", r.size).
		Msg("opened binh file")

	return f, nil
}

// OpenSource reads a binh file from src. The File closes src on Close; on
// failure src is closed before returning.
func OpenSource(src source.Source, cfg Config) (*File, error) {
	f, err := OpenWithConfig(source.NewReadSeeker(src), cfg)
	if err != nil {
		src.Close()
		return nil, err
	}
	f.closer = src
	return f, nil
}

// OpenPath opens a local binh file. Paths ending in .zst, .gz or .lz4 are
// decompressed into memory; other files are memory-mapped.
func OpenPath(path string, cfg Config) (*File, error) {
	src, err := source.OpenFile(path)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Op: "open", Field: path, Offset: -1, Want: -1, Got: -1, Err: err}
	}
	return OpenSource(src, cfg)
}

// Close releases the underlying source. Every later call, including a second
// Close, fails with ErrClosed.
func (f *File) Close() error {
	if f.closed {
		return newError(ErrIO, "close", "", ErrClosed)
	}
	f.closed = true
	f.names = nil
	if f.closer != nil {
		if err := f.closer.Close(); err != nil {
			return newError(ErrIO, "close", "", err)
		}
	}
	return nil
}

func (f *File) checkOpen(op string) error {
	if f.closed {
		return newError(ErrIO, op, "", ErrClosed)
	}
	return nil
}

// Header returns the parsed header. It must not be modified.
func (f *File) Header() *Header {
	return f.header
}

// Blocks returns the number of blocks.
func (f *File) Blocks() int {
	return len(f.blocks)
}

// Haloes returns the total number of haloes across all blocks.
func (f *File) Haloes() int64 {
	return f.haloes
}

// Size returns the size of the source in bytes.
func (f *File) Size() int64 {
	return f.r.size
}

// ColumnNames returns the column names as stored, or nil if the file has
// none. The slice must not be modified.
func (f *File) ColumnNames() []string {
	return f.header.ColumnNames
}

// BlockMeta returns the index entry of block i. Its slices must not be
// modified.
func (f *File) BlockMeta(i int) (BlockMeta, error) {
	if err := f.checkBlock("block meta", i); err != nil {
		return BlockMeta{}, err
	}
	return f.blocks[i], nil
}

// BlockHaloes returns the number of haloes in block i.
func (f *File) BlockHaloes(i int) (int64, error) {
	if err := f.checkBlock("block haloes", i); err != nil {
		return 0, err
	}
	return f.blocks[i].Haloes, nil
}

// Rand returns the generator used to dequantize columns. It is seeded from
// the header and advances with every quantized element read.
func (f *File) Rand() *splitmix.Rand {
	return f.rng
}

// ResetRand re-seeds the generator from the header seed, so the next
// quantized read repeats the draws made after Open.
func (f *File) ResetRand() {
	f.rng.Seed(uint64(f.header.Seed))
}

// ColumnIndex resolves a column name, ignoring case and surrounding
// whitespace.
func (f *File) ColumnIndex(name string) (int, error) {
	const op = "column index"
	if err := f.checkOpen(op); err != nil {
		return 0, err
	}
	col := f.names.lookup(normalizeName(name))
	if col < 0 {
		return 0, notFoundErrorf(op, fmt.Sprintf("%q", name), "no such column")
	}
	return col, nil
}

func (f *File) checkBlock(op string, block int) error {
	if block < 0 || block >= len(f.blocks) {
		return notFoundErrorf(op, fmt.Sprintf("block %d", block), "file has %d blocks", len(f.blocks))
	}
	return nil
}

func (f *File) checkColumn(op string, col int) error {
	if col < 0 || int64(col) >= f.header.Columns {
		return notFoundErrorf(op, fmt.Sprintf("column %d", col), "file has %d columns", f.header.Columns)
	}
	if f.header.Skipped(col) {
		return newError(ErrNotFound, op, fmt.Sprintf("column %d", col), ErrSkipped)
	}
	return nil
}
