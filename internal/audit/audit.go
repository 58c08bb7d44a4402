// Package audit keeps an append-only JSON-lines log of repository changes.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Operations recorded in the log.
const (
	OpAdd    = "add"
	OpModify = "modify"
	OpRemove = "remove"
	OpRename = "rename"
)

// Entry is a single log line.
type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Operation string         `json:"op"`
	Citekey   string         `json:"citekey"`
	From      string         `json:"from,omitempty"` // previous citekey, for renames
	Title     string         `json:"title,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Logger appends entries to <root>/.pubs/audit.log.
type Logger struct {
	fs   afero.Fs
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Path returns the log location for a repository root.
func Path(root string) string {
	return filepath.Join(root, ".pubs", "audit.log")
}

// New returns a logger for the repository at root.
func New(fsys afero.Fs, root string) *Logger {
	return &Logger{fs: fsys, path: Path(root), now: time.Now}
}

// Log appends entry, stamping it with the current time when unset.
func (l *Logger) Log(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	if err := l.fs.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := l.fs.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Read returns every entry in order. Malformed lines are skipped.
func (l *Logger) Read() ([]Entry, error) {
	f, err := l.fs.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return entries, nil
}

// ReadSince returns entries at or after since.
func (l *Logger) ReadSince(since time.Time) ([]Entry, error) {
	all, err := l.Read()
	if err != nil {
		return nil, err
	}
	var filtered []Entry
	for _, e := range all {
		if !e.Timestamp.Before(since) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// ReadForCitekey returns entries touching citekey, including renames from it.
func (l *Logger) ReadForCitekey(citekey string) ([]Entry, error) {
	all, err := l.Read()
	if err != nil {
		return nil, err
	}
	var filtered []Entry
	for _, e := range all {
		if e.Citekey == citekey || e.From == citekey {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}
