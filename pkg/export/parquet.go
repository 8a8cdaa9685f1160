// Package export converts binh catalogues to other columnar formats.
package export

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/rein/pkg/binh"
	"github.com/eunmann/rein/pkg/logging"
)

// ParquetConfig holds options for WriteParquet.
type ParquetConfig struct {
	// Columns selects columns by name. Empty means every column that is not
	// skipped.
	Columns []string

	// RowGroupPerBlock flushes a row group after every binh block. When
	// false the writer's own row group sizing applies.
	RowGroupPerBlock bool

	// Compress enables zstd page compression.
	Compress bool
}

// DefaultParquetConfig returns the default export configuration.
func DefaultParquetConfig() ParquetConfig {
	return ParquetConfig{RowGroupPerBlock: true, Compress: true}
}

// exportColumn is one selected binh column and its place in the schema.
type exportColumn struct {
	name  string
	col   int  // binh column index
	leaf  int  // parquet column index
	isInt bool // every block stores the column as integers
}

// WriteParquet writes the selected columns of f to w as a Parquet file with
// one row per halo. Integer-encoded columns become INT64 leaves and all
// others DOUBLE. Quantized columns draw from f's generator as they are read.
func WriteParquet(w io.Writer, f *binh.File, cfg ParquetConfig) error {
	cols, err := selectColumns(f, cfg.Columns)
	if err != nil {
		return err
	}

	group := make(parquet.Group, len(cols))
	for _, c := range cols {
		if c.isInt {
			group[c.name] = parquet.Leaf(parquet.Int64Type)
		} else {
			group[c.name] = parquet.Leaf(parquet.DoubleType)
		}
	}
	schema := parquet.NewSchema("halo", group)

	// Group fields are ordered by name, and so are the leaf columns.
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	slices.Sort(names)
	for i := range cols {
		cols[i].leaf = slices.Index(names, cols[i].name)
	}

	opts := []parquet.WriterOption{schema}
	if cfg.Compress {
		opts = append(opts, parquet.Compression(&parquet.Zstd))
	}
	pw := parquet.NewWriter(w, opts...)

	var rows int64
	for b := range f.Blocks() {
		n, err := writeBlock(pw, f, b, cols)
		if err != nil {
			return err
		}
		rows += n
		if cfg.RowGroupPerBlock && n > 0 {
			if err := pw.Flush(); err != nil {
				return fmt.Errorf("flush row group for block %d: %w", b, err)
			}
		}
	}

	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}

	log := logging.WithPhase("export")
	log.Debug().
		Int("columns", len(cols)).
		Int("blocks", f.Blocks()).
		Int64("rows", rows).
		Msg("wrote parquet")

	return nil
}

func writeBlock(pw *parquet.Writer, f *binh.File, block int, cols []exportColumn) (int64, error) {
	haloes, err := f.BlockHaloes(block)
	if err != nil {
		return 0, err
	}
	if haloes == 0 {
		return 0, nil
	}

	rows := make([]parquet.Row, haloes)
	for i := range rows {
		rows[i] = make(parquet.Row, len(cols))
	}

	for _, c := range cols {
		if c.isInt {
			data, err := binh.ColumnBlock[int64](f, block, c.col)
			if err != nil {
				return 0, fmt.Errorf("read %s: %w", c.name, err)
			}
			for i, v := range data {
				rows[i][c.leaf] = parquet.Int64Value(v).Level(0, 0, c.leaf)
			}
			continue
		}

		data, err := binh.ColumnBlock[float64](f, block, c.col)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", c.name, err)
		}
		for i, v := range data {
			rows[i][c.leaf] = parquet.DoubleValue(v).Level(0, 0, c.leaf)
		}
	}

	if _, err := pw.WriteRows(rows); err != nil {
		return 0, fmt.Errorf("write rows for block %d: %w", block, err)
	}
	return haloes, nil
}

// selectColumns resolves the requested names, or every present column when
// none are given.
func selectColumns(f *binh.File, names []string) ([]exportColumn, error) {
	hd := f.Header()

	var idx []int
	if len(names) == 0 {
		for c := range int(hd.Columns) {
			if !hd.Skipped(c) {
				idx = append(idx, c)
			}
		}
	} else {
		for _, name := range names {
			c, err := f.ColumnIndex(name)
			if err != nil {
				return nil, err
			}
			if hd.Skipped(c) {
				return nil, fmt.Errorf("select column %q: %w", name, binh.ErrSkipped)
			}
			idx = append(idx, c)
		}
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("select columns: %w", binh.ErrNotFound)
	}

	cols := make([]exportColumn, 0, len(idx))
	seen := make(map[string]bool, len(idx))
	for _, c := range idx {
		name := columnName(f, c)
		if seen[name] {
			return nil, fmt.Errorf("select columns: duplicate column name %q", name)
		}
		seen[name] = true
		cols = append(cols, exportColumn{name: name, col: c, isInt: intEncoded(f, c)})
	}
	return cols, nil
}

func columnName(f *binh.File, col int) string {
	if names := f.ColumnNames(); names != nil {
		if name := strings.ToLower(strings.TrimSpace(names[col])); name != "" {
			return name
		}
	}
	return fmt.Sprintf("column_%d", col)
}

func intEncoded(f *binh.File, col int) bool {
	if f.Blocks() == 0 {
		return false
	}
	for b := range f.Blocks() {
		meta, err := f.BlockMeta(b)
		if err != nil || !meta.Flags[col].IsInt() {
			return false
		}
	}
	return true
}
