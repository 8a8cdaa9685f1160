// Package catalogue opens a set of binh files that together make up one
// halo catalogue, e.g. the per-process outputs of a single snapshot, and
// reads columns across all of them.
package catalogue

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/rein/internal/logctx"
	"github.com/eunmann/rein/pkg/binh"
	"github.com/eunmann/rein/pkg/source"
)

// DefaultConcurrency is the number of files opened or read at once.
const DefaultConcurrency = 8

// OpenFunc opens the byte source behind a URI.
type OpenFunc func(ctx context.Context, uri string) (source.Source, error)

// SetConfig holds options for OpenSet.
type SetConfig struct {
	// Concurrency limits how many files are opened or read at once.
	// Zero means DefaultConcurrency.
	Concurrency int

	// Binh is applied to every file. A nil Logger means the context logger.
	Binh binh.Config

	// Open resolves URIs to sources. Defaults to source.OpenURI.
	Open OpenFunc
}

// DefaultSetConfig returns the default set configuration.
func DefaultSetConfig() SetConfig {
	return SetConfig{
		Concurrency: DefaultConcurrency,
		Binh:        binh.DefaultConfig(),
		Open:        source.OpenURI,
	}
}

// Set is an ordered group of open binh files. Each file has its own handle,
// so reads of different files may run concurrently; a single file is never
// touched by two goroutines at once.
type Set struct {
	uris        []string
	files       []*binh.File
	haloes      int64
	concurrency int
	closed      bool
}

// OpenSet opens every URI concurrently. If any file fails to open, all files
// opened so far are closed and the first error is returned.
func OpenSet(ctx context.Context, uris []string, cfg SetConfig) (*Set, error) {
	if len(uris) == 0 {
		return nil, errors.New("open catalogue set: no files")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Open == nil {
		cfg.Open = source.OpenURI
	}
	if cfg.Binh.Logger != nil {
		ctx = logctx.WithLogger(ctx, *cfg.Binh.Logger)
	}

	files := make([]*binh.File, len(uris))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i, uri := range uris {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			// Sources may keep fctx for later reads, so it must outlive gctx.
			fctx := logctx.WithStr(logctx.WithInt(ctx, "file_index", i), "uri", uri)
			logger := logctx.FromContext(fctx)

			src, err := cfg.Open(fctx, uri)
			if err != nil {
				return fmt.Errorf("open %s: %w", uri, err)
			}

			bcfg := cfg.Binh
			bcfg.Logger = &logger
			f, err := binh.OpenSource(src, bcfg)
			if err != nil {
				return fmt.Errorf("open %s: %w", uri, err)
			}
			files[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
		return nil, fmt.Errorf("open catalogue set: %w", err)
	}

	s := &Set{
		uris:        append([]string(nil), uris...),
		files:       files,
		concurrency: cfg.Concurrency,
	}
	for _, f := range files {
		s.haloes += f.Haloes()
	}

	logger := logctx.FromContext(ctx)
	logger.Debug().
		Int("files", len(files)).
		Int64("haloes", s.haloes).
		Msg("opened catalogue set")

	return s, nil
}

// Files returns the open files in URI order.
func (s *Set) Files() []*binh.File {
	return s.files
}

// URIs returns the URIs the set was opened with.
func (s *Set) URIs() []string {
	return s.uris
}

// Haloes returns the total halo count over all files.
func (s *Set) Haloes() int64 {
	return s.haloes
}

// Close closes every file and returns the joined errors.
func (s *Set) Close() error {
	if s.closed {
		return binh.ErrClosed
	}
	s.closed = true

	var errs []error
	for i, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.uris[i], err))
		}
	}
	return errors.Join(errs...)
}

// SetColumn reads the named column from every file concurrently and
// concatenates the results in URI order.
func SetColumn[T binh.Number](ctx context.Context, s *Set, name string) ([]T, error) {
	if s.closed {
		return nil, fmt.Errorf("read column %q: %w", name, binh.ErrClosed)
	}

	parts := make([][]T, len(s.files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, f := range s.files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := binh.NamedColumn[T](f, name)
			if err != nil {
				return fmt.Errorf("read column %q from %s: %w", name, s.uris[i], err)
			}
			parts[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0, s.haloes)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}
