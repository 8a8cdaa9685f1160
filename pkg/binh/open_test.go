package binh_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunmann/rein/internal/binhtest"
	"github.com/eunmann/rein/pkg/binh"
	"github.com/eunmann/rein/pkg/source"
)

// sampleFile is a version 2 file with columns "id" and "mass" and a single
// block of three haloes.
func sampleFile() *binhtest.Builder {
	b := binhtest.New(42, binhtest.Column{Name: "id"}, binhtest.Column{Name: "mass"})
	b.AddBlock(
		binhtest.Ints(binh.Int64, 0, 1, 2, 3),
		binhtest.Ints(binh.Int32, 0, 10, 20, 30),
	)
	return b
}

func openBytes(t *testing.T, data []byte) *binh.File {
	t.Helper()
	f, err := binh.Open(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func putWord(data []byte, off int, v int64) {
	binary.LittleEndian.PutUint64(data[off:], uint64(v))
}

func TestHeaderRoundTrip(t *testing.T) {
	names := "ID, Mass ,vmax"
	b := binhtest.New(1337,
		binhtest.Column{Delta: 0},
		binhtest.Column{Delta: 0.25},
		binhtest.Column{Delta: 1e-3, Skipped: true},
	)
	b.MassColumn = 1
	b.IsSorted = true
	b.MinMass = 1.5e10
	b.TextHeader = "# Rockstar\n# a = 1.0\n"
	b.TextColumnNames = &names
	b.AddBlock(
		binhtest.Ints(binh.Int64, 7, 7, 8),
		binhtest.Ints(binh.QFloat8, -3, 0, 1),
		binhtest.Skip(binh.QLogFloat16),
	)

	f := openBytes(t, b.Bytes())
	hd := f.Header()

	assert.Equal(t, int64(2), hd.Version)
	assert.Equal(t, int64(1337), hd.Seed)
	assert.Equal(t, int64(3), hd.Columns)
	assert.Equal(t, int64(1), hd.MassColumn)
	assert.Equal(t, int64(1), hd.Blocks)
	assert.Equal(t, int64(len(b.TextHeader)), hd.TextHeaderLength)
	assert.Equal(t, int64(len(names)), hd.TextColumnNamesLength)
	assert.True(t, hd.IsSorted)
	assert.Equal(t, 1.5e10, hd.MinMass)
	assert.Equal(t, []float64{0, 0.25, 1e-3}, hd.Deltas)
	assert.Equal(t, []uint8{0, 0, 1}, hd.ColumnSkipped)
	assert.Equal(t, b.TextHeader, hd.TextHeader)
	assert.Equal(t, names, hd.TextColumnNames)
	assert.Equal(t, []string{"ID", " Mass ", "vmax"}, f.ColumnNames())
	assert.True(t, hd.Skipped(2))
	assert.False(t, hd.Skipped(0))
	assert.Equal(t, b.HeaderSize(), hd.Size())
}

func TestOpenEmptyNames(t *testing.T) {
	b := binhtest.New(0, binhtest.Column{}, binhtest.Column{})
	b.AddBlock(binhtest.Ints(binh.Int8, 0, 1), binhtest.Ints(binh.Int8, 0, 2))

	f := openBytes(t, b.Bytes())
	assert.Nil(t, f.ColumnNames())

	_, err := f.ColumnIndex("mass")
	assert.ErrorIs(t, err, binh.ErrNotFound)
}

func TestOpenUnsupportedVersion(t *testing.T) {
	b := sampleFile()
	b.Version = 1

	// Only the version word is present: rejecting it must not need more.
	data := b.Bytes()[:8]

	_, err := binh.Open(bytes.NewReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, binh.ErrFormat)
	assert.ErrorIs(t, err, binh.ErrVersion)
	assert.NotErrorIs(t, err, binh.ErrIO)

	var berr *binh.Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "version", berr.Field)
	assert.Equal(t, int64(2), berr.Want)
	assert.Equal(t, int64(1), berr.Got)

	_, err = binh.Open(bytes.NewReader(b.Bytes()))
	assert.ErrorIs(t, err, binh.ErrVersion)
}

func TestOpenTruncated(t *testing.T) {
	data := sampleFile().Bytes()

	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"mid version", 4},
		{"fixed header", 40},
		{"deltas", binh.FixedHeaderSize + 5},
		{"block metadata", int(sampleFile().HeaderSize()) + 20},
		{"payload", len(data) - 20},
		{"last payload byte", len(data) - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := binh.Open(bytes.NewReader(data[:tt.size]))
			require.Error(t, err)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, binh.ErrIO)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		})
	}
}

func TestOpenTooManyBlocks(t *testing.T) {
	b := sampleFile()
	declared := int64(1) << 40
	b.DeclaredBlocks = &declared

	_, err := binh.Open(bytes.NewReader(b.Bytes()))
	assert.ErrorIs(t, err, binh.ErrIO)
}

func TestOpenInvalidHeaderFields(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		value  int64
		field  string
	}{
		{"negative columns", 16, -1, "columns"},
		{"negative blocks", 32, -3, "blocks"},
		{"negative text header", 40, -8, "text_header_length"},
		{"negative names", 48, -1, "text_column_names_length"},
		{"huge text header", 40, binh.DefaultMaxTextLength + 1, "text_header_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := sampleFile().Bytes()
			putWord(data, tt.offset, tt.value)

			_, err := binh.Open(bytes.NewReader(data))
			require.Error(t, err)
			assert.ErrorIs(t, err, binh.ErrFormat)

			var berr *binh.Error
			require.ErrorAs(t, err, &berr)
			assert.Equal(t, tt.field, berr.Field)
		})
	}
}

func TestOpenMaxTextLength(t *testing.T) {
	b := sampleFile()
	b.TextHeader = "0123456789"

	cfg := binh.DefaultConfig()
	cfg.MaxTextLength = 4
	_, err := binh.OpenWithConfig(bytes.NewReader(b.Bytes()), cfg)
	assert.ErrorIs(t, err, binh.ErrFormat)

	cfg.MaxTextLength = 10
	f, err := binh.OpenWithConfig(bytes.NewReader(b.Bytes()), cfg)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", f.Header().TextHeader)
}

func TestOpenColumnNameCount(t *testing.T) {
	b := sampleFile()
	names := "a,b,c"
	b.TextColumnNames = &names

	_, err := binh.Open(bytes.NewReader(b.Bytes()))
	require.Error(t, err)
	assert.ErrorIs(t, err, binh.ErrFormat)
}

func TestOpenUnknownFlag(t *testing.T) {
	b := binhtest.New(0, binhtest.Column{Name: "x"})
	b.AddBlock(binhtest.Cell{Flag: binh.ColumnFlag(14)})

	_, err := binh.Open(bytes.NewReader(b.Bytes()))
	require.Error(t, err)
	assert.ErrorIs(t, err, binh.ErrFormat)
}

func TestOpenNegativeHaloes(t *testing.T) {
	b := binhtest.New(0, binhtest.Column{Name: "x"})
	b.Blocks = append(b.Blocks, binhtest.Block{Haloes: -1, Cells: []binhtest.Cell{{Flag: binh.Int8}}})

	_, err := binh.Open(bytes.NewReader(b.Bytes()))
	assert.ErrorIs(t, err, binh.ErrFormat)
}

func TestOpenPayloadOverflow(t *testing.T) {
	b := binhtest.New(0, binhtest.Column{Name: "x"})
	b.Blocks = append(b.Blocks, binhtest.Block{Haloes: 1 << 61, Cells: []binhtest.Cell{{Flag: binh.Int64}}})

	_, err := binh.Open(bytes.NewReader(b.Bytes()))
	assert.ErrorIs(t, err, binh.ErrFormat)
}

func TestOpenHaloTotalOverflow(t *testing.T) {
	tests := []struct {
		name    string
		columns []binhtest.Column
		cells   []binhtest.Cell
	}{
		{"skipped column", []binhtest.Column{{Name: "x", Skipped: true}}, []binhtest.Cell{binhtest.Skip(binh.Int64)}},
		{"no columns", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := binhtest.New(0, tt.columns...)
			for range 2 {
				b.Blocks = append(b.Blocks, binhtest.Block{Haloes: 1 << 62, Cells: tt.cells})
			}

			_, err := binh.Open(bytes.NewReader(b.Bytes()))
			require.Error(t, err)
			assert.ErrorIs(t, err, binh.ErrFormat)
			assert.ErrorContains(t, err, "block 1 halo_count")
		})
	}

	// One huge block on its own is still a valid zero-width file.
	b := binhtest.New(0, binhtest.Column{Name: "x", Skipped: true})
	b.Blocks = append(b.Blocks, binhtest.Block{Haloes: 1 << 62, Cells: []binhtest.Cell{binhtest.Skip(binh.Int64)}})
	f, err := binh.Open(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(1<<62), f.Haloes())
}

func TestOpenTrailingBytes(t *testing.T) {
	b := sampleFile()
	b.Trailing = []byte{0xde, 0xad, 0xbe, 0xef}

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	f, err := binh.OpenWithConfig(bytes.NewReader(b.Bytes()), binh.Config{Logger: &logger})
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, logs.String(), "ignoring bytes after last block")
	assert.Contains(t, logs.String(), `"trailing_bytes":4`)

	ids, err := binh.Column[int64](f, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = binh.OpenWithConfig(bytes.NewReader(b.Bytes()), binh.Config{Strict: true})
	assert.ErrorIs(t, err, binh.ErrFormat)
}

func TestOpenLogsSummary(t *testing.T) {
	level := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(level) })

	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	f, err := binh.OpenWithConfig(bytes.NewReader(sampleFile().Bytes()), binh.Config{Logger: &logger})
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, logs.String(), "opened binh file")
	assert.Contains(t, logs.String(), `"haloes":3`)
}

func TestClose(t *testing.T) {
	f, err := binh.Open(bytes.NewReader(sampleFile().Bytes()))
	require.NoError(t, err)

	require.NoError(t, f.Close())

	err = f.Close()
	assert.ErrorIs(t, err, binh.ErrClosed)

	_, err = binh.ColumnBlock[int64](f, 0, 0)
	assert.ErrorIs(t, err, binh.ErrClosed)
	assert.ErrorIs(t, err, binh.ErrIO)

	_, err = f.ColumnIndex("id")
	assert.ErrorIs(t, err, binh.ErrClosed)
}

type closeRecorder struct {
	*bytes.Reader
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestOpenOwnsCloser(t *testing.T) {
	data := sampleFile().Bytes()

	rs := &closeRecorder{Reader: bytes.NewReader(data)}
	f, err := binh.Open(rs)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, 1, rs.closed)

	// A failed open leaves the caller's reader alone.
	bad := &closeRecorder{Reader: bytes.NewReader(data[:10])}
	_, err = binh.Open(bad)
	require.Error(t, err)
	assert.Equal(t, 0, bad.closed)
}

func TestOpenSource(t *testing.T) {
	data := sampleFile().Bytes()

	f, err := binh.OpenSource(source.Bytes(data), binh.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), f.Size())
	require.NoError(t, f.Close())

	src := source.Bytes(data[:20])
	_, err = binh.OpenSource(src, binh.DefaultConfig())
	require.ErrorIs(t, err, binh.ErrIO)

	_, err = src.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, source.ErrClosed)
}

func TestOpenPath(t *testing.T) {
	data := sampleFile().Bytes()
	dir := t.TempDir()

	plain := filepath.Join(dir, "halos.bin")
	require.NoError(t, os.WriteFile(plain, data, 0o644))

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := filepath.Join(dir, "halos.bin.zst")
	require.NoError(t, os.WriteFile(compressed, enc.EncodeAll(data, nil), 0o644))
	require.NoError(t, enc.Close())

	for _, path := range []string{plain, compressed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			f, err := binh.OpenPath(path, binh.DefaultConfig())
			require.NoError(t, err)
			defer f.Close()

			mass, err := binh.NamedColumn[int64](f, "mass")
			require.NoError(t, err)
			assert.Equal(t, []int64{10, 20, 30}, mass)
		})
	}

	_, err = binh.OpenPath(filepath.Join(dir, "missing.bin"), binh.DefaultConfig())
	assert.ErrorIs(t, err, binh.ErrIO)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
