// Package broker owns the physical layout of a pubs repository: one
// bibliography file and one metadata file per citekey, plus the managed
// document and note directories.
package broker

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/aidanlsb/pubs/internal/content"
)

var (
	// ErrNotFound is returned when a bibliography or metadata file is absent.
	ErrNotFound = errors.New("file not found")
	// ErrAlreadyExists is returned by DocBroker.Add when the target exists.
	ErrAlreadyExists = errors.New("file already exists")
	// ErrNotManaged is returned for paths outside the managed directory.
	ErrNotManaged = errors.New("path is not managed by the repository")
)

const (
	BibDir   = "bib"
	MetaDir  = "meta"
	DocDir   = "doc"
	NotesDir = "notes"
	CacheDir = ".cache"

	BibExt  = ".bib"
	MetaExt = ".yaml"

	cacheFile = "cache.db"
)

// FileBroker reads and writes raw bibliography and metadata bytes. It does
// no encoding.
type FileBroker struct {
	store content.Store
	root  string
}

// NewFileBroker returns a broker rooted at root.
func NewFileBroker(store content.Store, root string) *FileBroker {
	return &FileBroker{store: store, root: store.Resolve(root)}
}

// Root returns the resolved repository directory.
func (b *FileBroker) Root() string { return b.root }

// Store returns the content store the broker writes through.
func (b *FileBroker) Store() content.Store { return b.store }

func (b *FileBroker) bibPath(citekey string) string {
	return filepath.Join(b.root, BibDir, citekey+BibExt)
}

func (b *FileBroker) metaPath(citekey string) string {
	return filepath.Join(b.root, MetaDir, citekey+MetaExt)
}

// Init creates the repository directory layout. Existing directories are kept.
func (b *FileBroker) Init() error {
	for _, dir := range []string{BibDir, MetaDir, DocDir, NotesDir, CacheDir} {
		if err := b.store.MkdirAll(filepath.Join(b.root, dir)); err != nil {
			return err
		}
	}
	return nil
}

// IsRepository reports whether root already holds a bib and a meta directory.
func (b *FileBroker) IsRepository() bool {
	return b.store.IsDir(filepath.Join(b.root, BibDir)) && b.store.IsDir(filepath.Join(b.root, MetaDir))
}

// CachePath is the real path of the persisted cache.
func (b *FileBroker) CachePath() string {
	return filepath.Join(b.root, CacheDir, cacheFile)
}

func (b *FileBroker) PullBib(citekey string) ([]byte, error) {
	return b.pull(b.bibPath(citekey))
}

func (b *FileBroker) PullMeta(citekey string) ([]byte, error) {
	return b.pull(b.metaPath(citekey))
}

func (b *FileBroker) pull(path string) ([]byte, error) {
	data, err := b.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return data, nil
}

// Push writes metadata first and bibliography last. A crash between the two
// writes can leave the pair inconsistent; nothing here repairs that.
func (b *FileBroker) Push(citekey string, meta, bib []byte) error {
	if err := b.store.Write(b.metaPath(citekey), meta); err != nil {
		return err
	}
	return b.store.Write(b.bibPath(citekey), bib)
}

// Remove deletes both files. Absent files are ignored.
func (b *FileBroker) Remove(citekey string) error {
	for _, path := range []string{b.metaPath(citekey), b.bibPath(citekey)} {
		if err := b.store.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Exists checks for the bibliography and metadata files. With requireBoth
// both must exist, otherwise either is enough.
func (b *FileBroker) Exists(citekey string, requireBoth bool) bool {
	bib := b.store.Exists(b.bibPath(citekey))
	meta := b.store.Exists(b.metaPath(citekey))
	if requireBoth {
		return bib && meta
	}
	return bib || meta
}

// List returns the citekeys found in the bib and meta directories.
func (b *FileBroker) List() (bibKeys, metaKeys []string, err error) {
	bibKeys, err = b.listKeys(BibDir, BibExt)
	if err != nil {
		return nil, nil, err
	}
	metaKeys, err = b.listKeys(MetaDir, MetaExt)
	if err != nil {
		return nil, nil, err
	}
	return bibKeys, metaKeys, nil
}

func (b *FileBroker) listKeys(dir, ext string) ([]string, error) {
	names, err := b.store.List(filepath.Join(b.root, dir))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	return keys, nil
}

func (b *FileBroker) MtimeBib(citekey string) (time.Time, error) {
	return b.mtime(b.bibPath(citekey))
}

func (b *FileBroker) MtimeMeta(citekey string) (time.Time, error) {
	return b.mtime(b.metaPath(citekey))
}

func (b *FileBroker) mtime(path string) (time.Time, error) {
	t, err := b.store.ModTime(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return time.Time{}, err
	}
	return t, nil
}
