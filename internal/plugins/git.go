package plugins

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aidanlsb/pubs/internal/repository"
)

const gitTimeout = 30 * time.Second

// runFunc runs git with args in dir and returns its combined output.
type runFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Git commits the repository directory after each change.
type Git struct {
	root   string
	manual bool
	logger *log.Logger
	run    runFunc

	checked  bool
	worktree bool
}

// NewGit returns a git plugin for env.Root.
func NewGit(env Env) (Plugin, error) {
	logger := env.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Git{root: env.Root, manual: env.GitManual, logger: logger, run: runGit}, nil
}

func (g *Git) Name() string { return "git" }

// inWorkTree asks git once whether root is inside a work tree.
func (g *Git) inWorkTree(ctx context.Context) bool {
	if !g.checked {
		out, err := g.run(ctx, g.root, "rev-parse", "--is-inside-work-tree")
		g.worktree = err == nil && strings.TrimSpace(string(out)) == "true"
		g.checked = true
		if !g.worktree {
			g.logger.Debug("not a git work tree, skipping commits", "root", g.root)
		}
	}
	return g.worktree
}

func (g *Git) Handle(e repository.Event) error {
	if g.manual {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	if !g.inWorkTree(ctx) {
		return nil
	}
	if out, err := g.run(ctx, g.root, "add", "-A"); err != nil {
		return fmt.Errorf("git add: %w: %s", err, strings.TrimSpace(string(out)))
	}
	msg := commitMessage(e)
	if out, err := g.run(ctx, g.root, "commit", "--quiet", "-m", msg); err != nil {
		text := strings.TrimSpace(string(out))
		if strings.Contains(text, "nothing to commit") {
			return nil
		}
		return fmt.Errorf("git commit: %w: %s", err, text)
	}
	g.logger.Debug("committed", "message", msg)
	return nil
}

func commitMessage(e repository.Event) string {
	switch ev := e.(type) {
	case repository.Added:
		return "Added " + ev.Paper.Citekey
	case repository.Modified:
		return "Modified " + ev.Paper.Citekey
	case repository.Removed:
		return "Removed " + ev.Key
	case repository.Renamed:
		return fmt.Sprintf("Renamed %s to %s", ev.OldKey, ev.Paper.Citekey)
	default:
		return "Updated " + e.Citekey()
	}
}
