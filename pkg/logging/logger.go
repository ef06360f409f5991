// Package logging configures the hclog loggers used across glyphpack.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Prefix marks every human-readable log line written by glyphpack.
const Prefix = "🔤 "

// Options controls how a logger is built.
type Options struct {
	Name   string
	Level  string
	JSON   bool
	Output io.Writer
}

// NewLogger creates a new hclog logger with standard settings
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	return New(Options{
		Name:   name,
		Level:  level,
		JSON:   os.Getenv("GLYPHPACK_JSON_LOG") == "1",
		Output: output,
	})
}

// New builds a logger from explicit options. Non-JSON output is prefixed per line.
func New(opts Options) hclog.Logger {
	logger, _ := Open(opts)
	return logger
}

// Open is New for callers that own the output: flush writes out a trailing
// partial line and must run before the output is closed.
func Open(opts Options) (logger hclog.Logger, flush func() error) {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	flush = func() error { return nil }
	if !opts.JSON {
		pw := NewPrefixWriter(Prefix, output)
		output = pw
		flush = pw.Flush
	}

	logger = hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      hclog.LevelFromString(opts.Level),
		JSONFormat: opts.JSON,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
	return logger, flush
}

// ResolveLevel picks the log level from the CLI flag, then GLYPHPACK_LOG_LEVEL,
// then "info". A "json" or "json:<level>" value switches to JSON output.
// The returned source names where the level came from.
func ResolveLevel(cliLevel string) (level string, jsonFormat bool, source string) {
	switch {
	case cliLevel != "":
		level, source = cliLevel, "CLI --log-level"
	case os.Getenv("GLYPHPACK_LOG_LEVEL") != "":
		level, source = os.Getenv("GLYPHPACK_LOG_LEVEL"), "GLYPHPACK_LOG_LEVEL"
	default:
		level, source = "info", "default"
	}

	if strings.HasPrefix(level, "json") {
		jsonFormat = true
		if _, rest, ok := strings.Cut(level, ":"); ok && rest != "" {
			level = rest
		} else {
			level = "info"
		}
	}
	if os.Getenv("GLYPHPACK_JSON_LOG") == "1" {
		jsonFormat = true
	}
	return level, jsonFormat, source
}

// Discard returns a logger that drops everything, for library callers and tests.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}
