package broker

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/aidanlsb/pubs/internal/content"
)

// DocBroker manages one attachment file per citekey inside a directory that
// is addressed through a virtual scheme ("docsdir://Page99.pdf").
type DocBroker struct {
	store  content.Store
	scheme string
	dir    string
	ext    string
}

// NewDocBroker returns a broker for scheme rooted at dir. ext is the fixed
// extension used by Path; it may be empty for documents, whose extension
// comes from the source file.
func NewDocBroker(store content.Store, scheme, dir, ext string) *DocBroker {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &DocBroker{store: store, scheme: scheme, dir: store.Resolve(dir), ext: ext}
}

// Scheme returns the virtual scheme, e.g. "docsdir".
func (d *DocBroker) Scheme() string { return d.scheme }

// Dir returns the resolved managed directory.
func (d *DocBroker) Dir() string { return d.dir }

// Init creates the managed directory.
func (d *DocBroker) Init() error {
	return d.store.MkdirAll(d.dir)
}

func (d *DocBroker) virtual(name string) string {
	return d.scheme + content.SchemeSep + name
}

// Path returns the virtual path of the file for citekey using the fixed
// extension.
func (d *DocBroker) Path(citekey string) string {
	return d.virtual(citekey + d.ext)
}

// Resolve maps a virtual path of this broker's scheme into the managed
// directory; any other path is handed to the content store.
func (d *DocBroker) Resolve(path string) string {
	if scheme, rest, ok := content.SplitScheme(path); ok && scheme == d.scheme {
		return filepath.Join(d.dir, filepath.FromSlash(rest))
	}
	return d.store.Resolve(path)
}

// Owns reports whether path carries this broker's scheme.
func (d *DocBroker) Owns(path string) bool {
	scheme, _, ok := content.SplitScheme(path)
	return ok && scheme == d.scheme
}

// Manages reports whether path resolves inside the managed directory.
func (d *DocBroker) Manages(path string) bool {
	return content.Within(d.dir, d.Resolve(path))
}

// Exists reports whether the file behind path exists.
func (d *DocBroker) Exists(path string) bool {
	return d.store.Exists(d.Resolve(path))
}

// Add copies source into the managed directory as <citekey><ext>, keeping
// the source extension, and returns the new virtual path.
func (d *DocBroker) Add(citekey, source string, overwrite bool) (string, error) {
	src := d.Resolve(source)
	target := d.virtual(citekey + filepath.Ext(src))
	dst := d.Resolve(target)

	if src == dst {
		return target, nil
	}
	if !overwrite && d.store.Exists(dst) {
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, target)
	}

	data, err := d.store.Read(src)
	if err != nil {
		return "", err
	}
	if err := d.store.Write(dst, data); err != nil {
		return "", err
	}
	return target, nil
}

// Remove deletes a managed file. External paths fail with ErrNotManaged and
// missing files fail with a not-exist error, unless silent.
func (d *DocBroker) Remove(path string, silent bool) error {
	if !d.Manages(path) {
		if silent {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNotManaged, path)
	}
	if err := d.store.Remove(d.Resolve(path)); err != nil {
		if silent && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// Rename moves a managed file to newCitekey by adding the copy and removing
// the original. When the removal fails the copy stays in place and the new
// path is returned alongside the error.
func (d *DocBroker) Rename(path, newCitekey string) (string, error) {
	if !d.Manages(path) {
		return "", fmt.Errorf("%w: %s", ErrNotManaged, path)
	}
	newPath, err := d.Add(newCitekey, path, false)
	if err != nil {
		return "", err
	}
	if d.Resolve(newPath) == d.Resolve(path) {
		return newPath, nil
	}
	if err := d.Remove(path, false); err != nil {
		return newPath, fmt.Errorf("remove %s after copying to %s: %w", path, newPath, err)
	}
	return newPath, nil
}
