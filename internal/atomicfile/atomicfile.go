// Package atomicfile replaces files through a temporary sibling and a rename,
// so a crash never leaves a half-written bibliography or metadata file.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const defaultPerm os.FileMode = 0o644

// WriteFile replaces path on fsys with data. A zero perm keeps the mode of
// the file being replaced, or 0644 for a new file.
func WriteFile(fsys afero.Fs, path string, data []byte, perm os.FileMode) error {
	if perm == 0 {
		perm = currentPerm(fsys, path)
	}
	tmp, err := writeTemp(fsys, path, data)
	if err != nil {
		return err
	}
	if err := commit(fsys, tmp, path, perm); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	return nil
}

func currentPerm(fsys afero.Fs, path string) os.FileMode {
	if st, err := fsys.Stat(path); err == nil {
		return st.Mode().Perm()
	}
	return defaultPerm
}

// writeTemp stores data in a hidden file next to path and returns its name.
func writeTemp(fsys afero.Fs, path string, data []byte) (string, error) {
	f, err := afero.TempFile(fsys, filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = fsys.Remove(name)
		return "", fmt.Errorf("write temp file: %w", werr)
	}
	return name, nil
}

func commit(fsys afero.Fs, tmp, path string, perm os.FileMode) error {
	_ = fsys.Chmod(tmp, perm)
	if err := fsys.Rename(tmp, path); err == nil {
		return nil
	} else if _, statErr := fsys.Stat(path); statErr != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	// Some platforms refuse to rename over an existing file.
	if err := fsys.Remove(path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
