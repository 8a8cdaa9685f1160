package binh

import (
	"math"
	"strings"
)

// Header holds the fixed-width and array header of a binh file.
type Header struct {
	Version               int64
	Seed                  int64   // Seed of the dequantization RNG
	Columns               int64   // Number of columns in every block
	MassColumn            int64   // Column used to order haloes within blocks
	Blocks                int64   // Number of blocks in the file
	TextHeaderLength      int64   // Bytes in TextHeader
	TextColumnNamesLength int64   // Bytes in TextColumnNames
	IsSorted              bool    // Haloes are sorted by MassColumn within blocks
	MinMass               float64 // Approximate smallest mass stored in the file

	Deltas          []float64 // Per-column quantization scale
	ColumnSkipped   []uint8   // 1 if the column has no payload
	TextHeader      string
	TextColumnNames string
	ColumnNames     []string // TextColumnNames split on commas; nil if empty
}

// Skipped reports whether column col has no payload.
func (h *Header) Skipped(col int) bool {
	return h.ColumnSkipped[col] != 0
}

// Size returns the size in bytes of the fixed and array headers, i.e. the
// offset of the first block.
func (h *Header) Size() int64 {
	return FixedHeaderSize + 9*h.Columns + h.TextHeaderLength + h.TextColumnNamesLength
}

// readHeader parses the header in on-disk order. Each array is sized from a
// length field that has already been read and validated.
func readHeader(r *byteReader, cfg Config) (*Header, error) {
	const op = "read header"

	version, err := r.words(op, "version", 1)
	if err != nil {
		return nil, err
	}
	hd := &Header{Version: int64(version[0])}
	if hd.Version != Version {
		return nil, &Error{
			Kind: ErrFormat, Op: op, Field: "version", Offset: 0,
			Want: Version, Got: hd.Version, Err: ErrVersion,
		}
	}

	fixed, err := r.words(op, "fixed fields", 8)
	if err != nil {
		return nil, err
	}
	hd.Seed = int64(fixed[0])
	hd.Columns = int64(fixed[1])
	hd.MassColumn = int64(fixed[2])
	hd.Blocks = int64(fixed[3])
	hd.TextHeaderLength = int64(fixed[4])
	hd.TextColumnNamesLength = int64(fixed[5])
	hd.IsSorted = fixed[6] != 0
	hd.MinMass = math.Float64frombits(fixed[7])

	if err := hd.validateLengths(cfg); err != nil {
		return nil, err
	}

	deltas, err := r.words(op, "deltas", hd.Columns)
	if err != nil {
		return nil, err
	}
	hd.Deltas = make([]float64, hd.Columns)
	for i, w := range deltas {
		hd.Deltas[i] = math.Float64frombits(w)
	}

	if hd.ColumnSkipped, err = r.read(op, "column_skipped", hd.Columns); err != nil {
		return nil, err
	}

	text, err := r.read(op, "text_header", hd.TextHeaderLength)
	if err != nil {
		return nil, err
	}
	hd.TextHeader = string(text)

	names, err := r.read(op, "text_column_names", hd.TextColumnNamesLength)
	if err != nil {
		return nil, err
	}
	hd.TextColumnNames = string(names)

	if hd.TextColumnNamesLength > 0 {
		hd.ColumnNames = strings.Split(hd.TextColumnNames, nameSeparator)
		if int64(len(hd.ColumnNames)) != hd.Columns {
			return nil, &Error{
				Kind: ErrFormat, Op: op, Field: "text_column_names", Offset: r.off - hd.TextColumnNamesLength,
				Want: hd.Columns, Got: int64(len(hd.ColumnNames)), Err: errColumnNameCount,
			}
		}
	}

	return hd, nil
}

func (h *Header) validateLengths(cfg Config) error {
	const op = "read header"

	fields := []struct {
		name string
		val  int64
	}{
		{"columns", h.Columns},
		{"blocks", h.Blocks},
		{"text_header_length", h.TextHeaderLength},
		{"text_column_names_length", h.TextColumnNamesLength},
	}
	for _, f := range fields {
		if f.val < 0 {
			return formatErrorf(op, f.name, "negative value %d", f.val)
		}
	}

	if h.TextHeaderLength > cfg.MaxTextLength {
		return formatErrorf(op, "text_header_length", "%d exceeds limit %d", h.TextHeaderLength, cfg.MaxTextLength)
	}
	if h.TextColumnNamesLength > cfg.MaxTextLength {
		return formatErrorf(op, "text_column_names_length", "%d exceeds limit %d", h.TextColumnNamesLength, cfg.MaxTextLength)
	}
	return nil
}
