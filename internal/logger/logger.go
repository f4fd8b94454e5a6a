// Package logger holds the process-wide zerolog logger.
//
// Call Init once from the command that starts the process and Get everywhere
// else. Packages that run before Init (tests, the migrate command) get a
// disabled logger rather than a panic.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	// Level is one of trace, debug, info, warn, error. Unknown values fall
	// back to info.
	Level string
	// Pretty switches to the coloured console writer.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

var (
	mu       sync.RWMutex
	instance = zerolog.Nop()
	once     sync.Once
)

// Init builds the logger. Only the first call has an effect until Reset.
func Init(opts Options) *zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		if opts.Pretty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}

		lvl := parseLevel(opts.Level)
		l := zerolog.New(out).
			Level(lvl).
			With().
			Timestamp().
			Str("service", "apiserver").
			Logger()

		mu.Lock()
		instance = l
		mu.Unlock()
	})
	return Get()
}

// Get returns a copy of the current logger.
func Get() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := instance
	return &l
}

// Reset drops the current logger. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	instance = zerolog.Nop()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
