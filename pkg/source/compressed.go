package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies a whole-file compression wrapper.
type Compression int

const (
	// CompressionNone means the file is a plain binh file.
	CompressionNone Compression = iota
	// CompressionZstd is a zstd frame (.zst).
	CompressionZstd
	// CompressionGzip is a gzip stream (.gz).
	CompressionGzip
	// CompressionLZ4 is an LZ4 frame (.lz4).
	CompressionLZ4
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionGzip:
		return "gzip"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

// DetectCompression picks a compression from the file name suffix.
func DetectCompression(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return CompressionZstd
	case ".gz", ".gzip":
		return CompressionGzip
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Decompress reads the whole compressed stream into memory and returns it as
// a Source. binh readers seek freely, so streaming decompression is not an
// option.
func Decompress(r io.Reader, c Compression) (Source, error) {
	var (
		data []byte
		err  error
	)

	switch c {
	case CompressionNone:
		data, err = io.ReadAll(r)
	case CompressionZstd:
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		data, err = io.ReadAll(dec)
		dec.Close()
	case CompressionGzip:
		var zr *gzip.Reader
		zr, err = gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		data, err = io.ReadAll(zr)
		if cerr := zr.Close(); err == nil {
			err = cerr
		}
	case CompressionLZ4:
		data, err = io.ReadAll(lz4.NewReader(r))
	default:
		return nil, fmt.Errorf("unknown compression %s", c)
	}
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", c, err)
	}

	return Bytes(data), nil
}

// OpenFile opens a local catalogue file. Compressed files (by suffix) are
// decompressed into memory; plain files are memory-mapped.
func OpenFile(path string) (Source, error) {
	c := DetectCompression(path)
	if c == CompressionNone {
		m, err := OpenMmap(path)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	src, err := Decompress(f, c)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return src, nil
}
