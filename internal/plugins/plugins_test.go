package plugins

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/pubs/internal/audit"
	"github.com/aidanlsb/pubs/internal/broker"
	"github.com/aidanlsb/pubs/internal/content"
	"github.com/aidanlsb/pubs/internal/datacache"
	"github.com/aidanlsb/pubs/internal/paper"
	"github.com/aidanlsb/pubs/internal/repository"
)

const root = "/repo"

func newRepo(t *testing.T, fsys afero.Fs) *repository.Repository {
	t.Helper()
	store := content.New(fsys,
		content.WithScheme("docsdir", root+"/doc"),
		content.WithScheme("notesdir", root+"/notes"),
	)
	cache := datacache.New(broker.NewFileBroker(store, root), datacache.WithPersister(&datacache.MemPersister{}))
	repo := repository.New(cache,
		broker.NewDocBroker(store, "docsdir", root+"/doc", ""),
		broker.NewDocBroker(store, "notesdir", root+"/notes", "md"),
	)
	require.NoError(t, repo.Init())
	return repo
}

func newPaper(key string) *paper.Paper {
	e := paper.NewEntry("article")
	e.Set("author", "Doe, Jane")
	e.Set("title", "On Things")
	e.Set("year", "2013")
	return paper.New(key, e)
}

func TestLoadUnknownPlugin(t *testing.T) {
	repo := newRepo(t, afero.NewMemMapFs())
	_, err := Load(repo, []string{"audit", "nope"}, Env{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown plugin "nope"`)
}

func TestLoadDeduplicates(t *testing.T) {
	repo := newRepo(t, afero.NewMemMapFs())
	loaded, err := Load(repo, []string{"audit", "audit"}, Env{Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Equal(t, []string{"audit", "git"}, Available())
}

func TestAuditRecordsEvents(t *testing.T) {
	fsys := afero.NewMemMapFs()
	repo := newRepo(t, fsys)
	_, err := Load(repo, []string{"audit"}, Env{Fs: fsys})
	require.NoError(t, err)

	require.NoError(t, repo.Push(newPaper("Doe2013"), false))
	require.NoError(t, repo.Push(newPaper("Doe2013"), true))
	p, err := repo.Pull("Doe2013")
	require.NoError(t, err)
	_, err = repo.Rename(p, "Doe2013a", "Doe2013")
	require.NoError(t, err)
	require.NoError(t, repo.Remove("Doe2013a", false))

	entries, err := audit.New(fsys, root).Read()
	require.NoError(t, err)
	require.Len(t, entries, 4)

	ops := make([]string, len(entries))
	for i, e := range entries {
		ops[i] = e.Operation
	}
	assert.Equal(t, []string{audit.OpAdd, audit.OpModify, audit.OpRename, audit.OpRemove}, ops)
	assert.Equal(t, "Doe2013", entries[2].From)
	assert.Equal(t, "Doe2013a", entries[2].Citekey)
	assert.Equal(t, "On Things", entries[3].Title)
}

type fakeGit struct {
	worktree bool
	failAdd  bool
	calls    [][]string
}

func (f *fakeGit) run(_ context.Context, dir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	switch args[0] {
	case "rev-parse":
		if !f.worktree {
			return []byte("fatal: not a git repository"), errors.New("exit status 128")
		}
		return []byte("true\n"), nil
	case "add":
		if f.failAdd {
			return []byte("index.lock exists"), errors.New("exit status 1")
		}
	}
	return nil, nil
}

func newGit(t *testing.T, f *fakeGit, manual bool) *Git {
	t.Helper()
	p, err := NewGit(Env{Root: root, GitManual: manual})
	require.NoError(t, err)
	g := p.(*Git)
	g.run = f.run
	return g
}

func TestGitCommitsEachEvent(t *testing.T) {
	f := &fakeGit{worktree: true}
	g := newGit(t, f, false)

	p := newPaper("Doe2013a")
	require.NoError(t, g.Handle(repository.Added{Paper: p}))
	require.NoError(t, g.Handle(repository.Renamed{Paper: p, OldKey: "Doe2013"}))

	require.Len(t, f.calls, 5)
	assert.Equal(t, []string{"rev-parse", "--is-inside-work-tree"}, f.calls[0])
	assert.Equal(t, []string{"add", "-A"}, f.calls[1])
	assert.Equal(t, []string{"commit", "--quiet", "-m", "Added Doe2013a"}, f.calls[2])
	assert.Equal(t, []string{"commit", "--quiet", "-m", "Renamed Doe2013 to Doe2013a"}, f.calls[4])
}

func TestGitSkipsOutsideWorkTree(t *testing.T) {
	f := &fakeGit{}
	g := newGit(t, f, false)
	require.NoError(t, g.Handle(repository.Removed{Key: "Doe2013"}))
	require.NoError(t, g.Handle(repository.Removed{Key: "Doe2014"}))
	assert.Len(t, f.calls, 1)
}

func TestGitManual(t *testing.T) {
	f := &fakeGit{worktree: true}
	g := newGit(t, f, true)
	require.NoError(t, g.Handle(repository.Added{Paper: newPaper("Doe2013")}))
	assert.Empty(t, f.calls)
}

func TestGitErrorIncludesOutput(t *testing.T) {
	f := &fakeGit{worktree: true, failAdd: true}
	g := newGit(t, f, false)
	err := g.Handle(repository.Added{Paper: newPaper("Doe2013")})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "index.lock exists"))
}
