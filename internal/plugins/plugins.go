// Package plugins holds the optional repository subscribers. Plugins are
// looked up by name in an explicit registry and subscribed to a repository
// when the application starts.
package plugins

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/aidanlsb/pubs/internal/repository"
)

// Plugin reacts to repository events.
type Plugin interface {
	Name() string
	Handle(repository.Event) error
}

// Env is what a plugin may depend on when it is constructed.
type Env struct {
	Root   string
	Fs     afero.Fs
	Logger *log.Logger

	// GitManual disables automatic commits in the git plugin.
	GitManual bool
}

// Constructor builds a plugin for env.
type Constructor func(Env) (Plugin, error)

var registry = map[string]Constructor{
	"git":   NewGit,
	"audit": NewAudit,
}

// Available returns the registered plugin names, sorted.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load builds the named plugins and subscribes each to repo, in order.
// Duplicate names are loaded once.
func Load(repo *repository.Repository, names []string, env Env) ([]Plugin, error) {
	if env.Logger == nil {
		env.Logger = log.New(io.Discard)
	}
	if env.Fs == nil {
		env.Fs = afero.NewOsFs()
	}
	if env.Root == "" {
		env.Root = repo.Root()
	}

	seen := make(map[string]bool, len(names))
	var loaded []Plugin
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		ctor, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown plugin %q (available: %v)", name, Available())
		}
		p, err := ctor(env)
		if err != nil {
			return nil, fmt.Errorf("loading plugin %s: %w", name, err)
		}
		repo.Subscribe(p)
		env.Logger.Debug("plugin loaded", "name", name)
		loaded = append(loaded, p)
	}
	return loaded, nil
}
