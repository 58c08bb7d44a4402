// Package app wires configuration, logging, storage and plugins into one
// explicit context that the CLI commands share.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/aidanlsb/pubs/internal/broker"
	"github.com/aidanlsb/pubs/internal/config"
	"github.com/aidanlsb/pubs/internal/content"
	"github.com/aidanlsb/pubs/internal/datacache"
	"github.com/aidanlsb/pubs/internal/logging"
	"github.com/aidanlsb/pubs/internal/plugins"
	"github.com/aidanlsb/pubs/internal/repository"
	"github.com/aidanlsb/pubs/internal/ui"
)

// Virtual path schemes for attachments stored in the configured directories.
const (
	DocsScheme  = "docsdir"
	NotesScheme = "notesdir"
)

// ErrNoRepository is returned when the configured root has not been initialised.
var ErrNoRepository = errors.New("no repository found")

// Options are the global command-line settings.
type Options struct {
	ConfigPath string
	RepoPath   string
	Debug      bool
	JSON       bool
	Stderr     io.Writer

	// AllowMissing skips the repository existence check, for `pubs init`.
	AllowMissing bool
}

// App is everything a command needs.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *log.Logger
	Store      *content.FS
	Files      *broker.FileBroker
	Cache      *datacache.Cache
	Repo       *repository.Repository
	Plugins    []plugins.Plugin
}

// Load reads the configuration named by opts and builds the App.
func Load(opts Options) (*App, error) {
	path := config.ResolvePath(opts.ConfigPath)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, opts)
	if err != nil {
		return nil, err
	}
	a.ConfigPath = path
	return a, nil
}

// New builds the App from an already loaded configuration.
func New(cfg *config.Config, opts Options) (*App, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := logging.New(
		logging.WithWriter(stderr),
		logging.WithLevel(cfg.Main.LogLevel),
		logging.WithDebug(opts.Debug),
		logging.WithJSON(opts.JSON),
	)
	ui.ConfigureTheme(cfg.UI.Accent)

	root := opts.RepoPath
	if strings.TrimSpace(root) == "" {
		root = cfg.Main.PubsDir
	}
	root, err := config.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	docsDir, err := cfg.DocsPath(root)
	if err != nil {
		return nil, err
	}
	notesDir, err := cfg.NotesPath(root)
	if err != nil {
		return nil, err
	}

	store := content.NewOS(
		content.WithScheme(DocsScheme, docsDir),
		content.WithScheme(NotesScheme, notesDir),
	)
	files := broker.NewFileBroker(store, root)
	if !opts.AllowMissing && !files.IsRepository() {
		return nil, fmt.Errorf("%w at %s (run 'pubs init')", ErrNoRepository, root)
	}

	cache := datacache.New(files,
		datacache.WithPersister(datacache.NewBoltPersister(files.CachePath())),
		datacache.WithLogger(logger.WithPrefix("cache")),
	)
	docs := broker.NewDocBroker(store, DocsScheme, docsDir, "")
	notes := broker.NewDocBroker(store, NotesScheme, notesDir, cfg.Main.NoteExtension)
	repo := repository.New(cache, docs, notes, repository.WithLogger(logger))

	loaded, err := plugins.Load(repo, cfg.Plugins.Active, plugins.Env{
		Root:      root,
		Fs:        store.Fs(),
		Logger:    logger.WithPrefix("plugin"),
		GitManual: cfg.Plugins.Git.Manual,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("repository opened", "root", root, "docs", docsDir, "notes", notesDir)
	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Files:   files,
		Cache:   cache,
		Repo:    repo,
		Plugins: loaded,
	}, nil
}

// Audit returns the audit plugin when it is active.
func (a *App) Audit() (*plugins.Audit, bool) {
	for _, p := range a.Plugins {
		if au, ok := p.(*plugins.Audit); ok {
			return au, true
		}
	}
	return nil, false
}

// DocMode returns the configured default document mode.
func (a *App) DocMode() repository.DocMode {
	m, err := repository.ParseDocMode(a.Config.Main.DocAdd)
	if err != nil {
		return repository.DocCopy
	}
	return m
}

// Close flushes the cache.
func (a *App) Close() error {
	if a == nil || a.Repo == nil {
		return nil
	}
	return a.Repo.Close()
}
