// Package content is the byte-level store underneath the brokers. It reads
// and writes whole files and maps virtual "scheme://" paths onto directories.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aidanlsb/pubs/internal/atomicfile"
	"github.com/spf13/afero"
)

// SchemeSep separates a scheme from the relative part of a virtual path.
const SchemeSep = "://"

// Store is the set of file operations the brokers depend on.
type Store interface {
	Exists(path string) bool
	IsDir(path string) bool
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Remove(path string) error
	ModTime(path string) (time.Time, error)
	List(dir string) ([]string, error)
	MkdirAll(dir string) error
	Resolve(path string) string
}

// FS implements Store on an afero filesystem.
type FS struct {
	fs      afero.Fs
	schemes map[string]string
	home    string
}

// Option configures an FS.
type Option func(*FS)

// WithScheme maps scheme:// paths to dir.
func WithScheme(scheme, dir string) Option {
	return func(f *FS) {
		f.schemes[scheme] = dir
	}
}

// WithHome overrides the directory used to expand a leading "~".
func WithHome(home string) Option {
	return func(f *FS) {
		f.home = home
	}
}

// NewOS returns a store backed by the real filesystem.
func NewOS(opts ...Option) *FS {
	return New(afero.NewOsFs(), opts...)
}

// New returns a store backed by fsys.
func New(fsys afero.Fs, opts ...Option) *FS {
	f := &FS{fs: fsys, schemes: make(map[string]string)}
	if home, err := os.UserHomeDir(); err == nil {
		f.home = home
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fs exposes the underlying filesystem.
func (f *FS) Fs() afero.Fs { return f.fs }

// Resolve maps a virtual path to a real one. Scheme paths land inside the
// scheme's directory; "~" expands to the home directory; everything else is
// cleaned and made absolute.
func (f *FS) Resolve(path string) string {
	if scheme, rest, ok := SplitScheme(path); ok {
		if dir, known := f.schemes[scheme]; known {
			return filepath.Join(f.Resolve(dir), filepath.FromSlash(rest))
		}
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = filepath.Join(f.home, strings.TrimPrefix(path, "~"))
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return filepath.Clean(path)
}

func (f *FS) Exists(path string) bool {
	_, err := f.fs.Stat(f.Resolve(path))
	return err == nil
}

func (f *FS) IsDir(path string) bool {
	ok, err := afero.IsDir(f.fs, f.Resolve(path))
	return err == nil && ok
}

func (f *FS) Read(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, f.Resolve(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces the file at path atomically, creating parent directories.
func (f *FS) Write(path string, data []byte) error {
	real := f.Resolve(path)
	if err := f.fs.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := atomicfile.WriteFile(f.fs, real, data, 0); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (f *FS) Remove(path string) error {
	if err := f.fs.Remove(f.Resolve(path)); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (f *FS) ModTime(path string) (time.Time, error) {
	st, err := f.fs.Stat(f.Resolve(path))
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return st.ModTime(), nil
}

// List returns the sorted names of regular files in dir. A missing directory
// lists as empty.
func (f *FS) List(dir string) ([]string, error) {
	entries, err := afero.ReadDir(f.fs, f.Resolve(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (f *FS) MkdirAll(dir string) error {
	if err := f.fs.MkdirAll(f.Resolve(dir), 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// SplitScheme splits "scheme://rest". ok is false for plain paths.
func SplitScheme(path string) (scheme, rest string, ok bool) {
	idx := strings.Index(path, SchemeSep)
	if idx <= 0 {
		return "", "", false
	}
	return path[:idx], path[idx+len(SchemeSep):], true
}

// Within reports whether the real path target lies inside dir.
func Within(dir, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
