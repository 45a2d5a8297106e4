package log

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so callers can pass either the wrapper or
// the embedded logger down to components.
type Logger struct {
	zerolog.Logger
}

// New builds the root logger. Level falls back to info when unknown.
// Pretty enables human-readable console output for local runs.
func New(level string, pretty bool) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(out)
	} else {
		logger = zerolog.New(os.Stdout)
	}

	logger = logger.Level(lvl).With().Timestamp().Logger()
	return Logger{logger}
}

// Nop returns a logger that discards everything. Handy for tests.
func Nop() Logger {
	return Logger{zerolog.Nop()}
}
