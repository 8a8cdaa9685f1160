package binh

import (
	"github.com/rs/zerolog"

	"github.com/eunmann/rein/pkg/logging"
)

// DefaultMaxTextLength bounds the text header and column name list.
const DefaultMaxTextLength = 64 << 20

// Config holds options for opening a binh file.
type Config struct {
	// Logger receives the open summary and trailing-byte warnings.
	// Defaults to the global logger with phase "binh".
	Logger *zerolog.Logger

	// MaxTextLength is the largest text header or column name list accepted.
	// Zero means DefaultMaxTextLength.
	MaxTextLength int64

	// Strict rejects files with bytes after the last block payload.
	Strict bool
}

// DefaultConfig returns the default open configuration.
func DefaultConfig() Config {
	return Config{MaxTextLength: DefaultMaxTextLength}
}

// withDefaults fills zero-valued fields.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		l := logging.WithPhase("binh")
		c.Logger = &l
	}
	if c.MaxTextLength <= 0 {
		c.MaxTextLength = DefaultMaxTextLength
	}
	return c
}
