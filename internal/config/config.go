// Package config handles the global pubs configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "PUBS_CONFIG"

// Document modes accepted by [main] doc_add.
const (
	DocCopy = "copy"
	DocMove = "move"
	DocLink = "link"
)

// Config represents the global pubs configuration.
type Config struct {
	Main    MainConfig    `toml:"main"`
	Plugins PluginsConfig `toml:"plugins"`
	UI      UIConfig      `toml:"ui"`
}

// MainConfig holds repository locations and command defaults.
type MainConfig struct {
	// PubsDir is the repository root.
	PubsDir string `toml:"pubsdir"`

	// DocsDir and NotesDir hold attachments. Empty means <pubsdir>/doc and
	// <pubsdir>/notes.
	DocsDir  string `toml:"docsdir"`
	NotesDir string `toml:"notesdir"`

	// DocAdd is the default for `pubs doc add`: copy, move or link.
	DocAdd string `toml:"doc_add"`

	NoteExtension string `toml:"note_extension"`

	// Editor is the editor to use for notes and records (defaults to $EDITOR).
	Editor string `toml:"editor"`

	// OpenCmd opens documents (defaults to xdg-open or open).
	OpenCmd string `toml:"open_cmd"`

	// MaxAuthors caps the authors shown per line in `pubs list`.
	MaxAuthors int `toml:"max_authors"`

	LogLevel string `toml:"log_level"`
}

// PluginsConfig selects the active plugins and their settings.
type PluginsConfig struct {
	Active []string        `toml:"active"`
	Git    GitPluginConfig `toml:"git"`
}

// GitPluginConfig configures the git plugin.
type GitPluginConfig struct {
	// Manual disables automatic commits.
	Manual bool `toml:"manual"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Main: MainConfig{
			PubsDir:       "~/.pubs",
			DocAdd:        DocCopy,
			NoteExtension: "md",
			MaxAuthors:    3,
			LogLevel:      "info",
		},
		Plugins: PluginsConfig{
			Active: []string{"audit"},
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Main.Validate(); err != nil {
		return fmt.Errorf("main: %w", err)
	}
	if err := c.UI.Validate(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

// Validate validates the [main] section.
func (c *MainConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PubsDir, validation.Required),
		validation.Field(&c.DocAdd, validation.In(DocCopy, DocMove, DocLink)),
		validation.Field(&c.NoteExtension, validation.Match(extPattern)),
		validation.Field(&c.MaxAuthors, validation.Min(0)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

// Validate validates the [ui] section.
func (c *UIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Accent, validation.By(validAccent)),
	)
}

// Load loads the configuration from the default location.
// Returns the default config if the file doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom loads the configuration from a specific path, filling unset keys
// with defaults. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolvePath resolves the effective config path from an optional override.
func ResolvePath(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return DefaultPath()
}

// DefaultPath returns $PUBS_CONFIG when set, then ~/.config/pubs/config.toml,
// then the OS-specific config directory.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "pubs", "config.toml")
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "pubs", "config.toml")
	}
	return filepath.Join(".", "config.toml")
}

// GetEditor returns the editor to use, falling back to $VISUAL and $EDITOR.
func (c *Config) GetEditor() string {
	if c.Main.Editor != "" {
		return c.Main.Editor
	}
	if v := os.Getenv("VISUAL"); v != "" {
		return v
	}
	return os.Getenv("EDITOR")
}

// RepoPath returns the repository root with a leading ~ expanded.
func (c *Config) RepoPath() (string, error) {
	return ExpandHome(c.Main.PubsDir)
}

// DocsPath returns the documents directory, defaulting to <root>/doc.
func (c *Config) DocsPath(root string) (string, error) {
	if c.Main.DocsDir == "" {
		return filepath.Join(root, "doc"), nil
	}
	return ExpandHome(c.Main.DocsDir)
}

// NotesPath returns the notes directory, defaulting to <root>/notes.
func (c *Config) NotesPath(root string) (string, error) {
	if c.Main.NotesDir == "" {
		return filepath.Join(root, "notes"), nil
	}
	return ExpandHome(c.Main.NotesDir)
}

// ExpandHome replaces a leading ~ with the user's home directory and
// returns an absolute path.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
