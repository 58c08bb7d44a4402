package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
)

const defaultTemplate = `# pubs configuration

[main]
# Repository root.
pubsdir = %q

# Where documents and notes live (default: <pubsdir>/doc and <pubsdir>/notes).
# docsdir = "~/papers"
# notesdir = "~/papers/notes"

# Default for "pubs doc add": copy, move or link.
doc_add = "copy"
note_extension = "md"

# Editor for notes and records (defaults to $VISUAL, then $EDITOR).
# editor = "vim"
# open_cmd = "xdg-open"

max_authors = 3
log_level = "info"

[plugins]
# Available: audit, git
active = ["audit"]

# [plugins.git]
# manual = false

# Optional accent color, ANSI code (0-255) or #RRGGBB.
# [ui]
# accent = "39"
`

// CreateDefault writes a commented default config to path unless one exists.
// It reports whether a file was written.
func CreateDefault(path, pubsDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	data := fmt.Sprintf(defaultTemplate, pubsDir)
	if err := atomic.WriteFile(path, strings.NewReader(data)); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}

// SaveTo writes cfg to path atomically.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
