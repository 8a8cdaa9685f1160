// Package logging holds the process-wide zerolog logger used by rein.
//
// The logger writes JSON to stderr at info level. REIN_LOG_DEBUG enables
// debug events and REIN_LOG_HUMAN switches to console output; both are read
// once at startup. Libraries take a *zerolog.Logger in their config and fall
// back to WithPhase when none is given.
package logging

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Environment variables read at startup.
const (
	EnvDebug = "REIN_LOG_DEBUG"
	EnvHuman = "REIN_LOG_HUMAN"
)

var logger *zerolog.Logger

func init() {
	setup(os.Stderr, envBool(EnvDebug), envBool(EnvHuman))
}

func setup(w io.Writer, debug, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if human {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	logger = &l
}

// envBool reports whether key holds a true boolean. Unset or unparsable
// values count as false.
func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger
}

// WithPhase returns a logger with the phase field set, e.g. "binh" or
// "export".
func WithPhase(phase string) zerolog.Logger {
	return logger.With().Str("phase", phase).Logger()
}
