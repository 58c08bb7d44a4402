package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[main]
pubsdir = "/data/pubs"
doc_add = "link"

[plugins]
active = ["git", "audit"]

[plugins.git]
manual = true

[ui]
accent = "#ff8800"
`), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/pubs", cfg.Main.PubsDir)
	assert.Equal(t, DocLink, cfg.Main.DocAdd)
	assert.Equal(t, "md", cfg.Main.NoteExtension)
	assert.Equal(t, 3, cfg.Main.MaxAuthors)
	assert.Equal(t, []string{"git", "audit"}, cfg.Plugins.Active)
	assert.True(t, cfg.Plugins.Git.Manual)
	assert.Equal(t, "#ff8800", cfg.UI.Accent)
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "[main\n"},
		{"doc mode", "[main]\ndoc_add = \"teleport\"\n"},
		{"log level", "[main]\nlog_level = \"loud\"\n"},
		{"note extension", "[main]\nnote_extension = \".md\"\n"},
		{"accent", "[ui]\naccent = \"300\"\n"},
		{"empty pubsdir", "[main]\npubsdir = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultPathHonoursEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/pubs.toml")
	assert.Equal(t, "/etc/pubs.toml", DefaultPath())
	assert.Equal(t, "/tmp/x.toml", ResolvePath("/tmp/x.toml"))
	assert.Equal(t, "/etc/pubs.toml", ResolvePath(" "))
}

func TestPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	root, err := cfg.RepoPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".pubs"), root)

	docs, err := cfg.DocsPath(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "doc"), docs)

	cfg.Main.NotesDir = "~/notes"
	notes, err := cfg.NotesPath(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes"), notes)
}

func TestGetEditor(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "nano")
	cfg := Default()
	assert.Equal(t, "nano", cfg.GetEditor())
	cfg.Main.Editor = "hx"
	assert.Equal(t, "hx", cfg.GetEditor())
}
