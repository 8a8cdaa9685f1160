// Package logctx carries a zerolog logger in a context.Context.
//
// Code that fans out over several catalogue files tags each unit of work
// with its own fields, and everything called with that context logs them:
//
//	ctx = logctx.WithInt(ctx, "file_index", i)
//	ctx = logctx.WithStr(ctx, "uri", uri)
//	logger := logctx.FromContext(ctx)
package logctx

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/eunmann/rein/pkg/logging"
)

// loggerKey is the private key type for storing loggers in context.
type loggerKey struct{}

// WithLogger returns a new context with the given logger attached.
// The logger can be retrieved using FromContext.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context. A nil context or one
// without a logger yields the global logger from package logging.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return *logging.L()
}

// WithStr returns a new context whose logger has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithInt returns a new context whose logger has the int field added.
func WithInt(ctx context.Context, key string, value int) context.Context {
	logger := FromContext(ctx).With().Int(key, value).Logger()
	return WithLogger(ctx, logger)
}
