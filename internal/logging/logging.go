// Package logging builds the leveled logger shared by the CLI and the
// repository layers.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

type config struct {
	writer io.Writer
	level  log.Level
	json   bool
	prefix string
}

// Option configures a logger created with New.
type Option func(*config)

// WithWriter overrides the output writer. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writer = w
	}
}

// WithDebug sets the level to Debug when true.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = log.DebugLevel
		}
	}
}

// WithLevel sets the level from a name such as "warn". Unknown names keep
// the current level.
func WithLevel(name string) Option {
	return func(c *config) {
		if lvl, err := log.ParseLevel(name); err == nil {
			c.level = lvl
		}
	}
}

// WithJSON switches to JSON lines, for --json output.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// New returns a logger at Info level writing to stderr.
func New(opts ...Option) *log.Logger {
	c := &config{writer: os.Stderr, level: log.InfoLevel, prefix: "pubs"}
	for _, opt := range opts {
		opt(c)
	}

	l := log.NewWithOptions(c.writer, log.Options{
		Level:           c.level,
		Prefix:          c.prefix,
		ReportTimestamp: c.level == log.DebugLevel,
	})
	if c.json {
		l.SetFormatter(log.JSONFormatter)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
