package content

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *FS {
	t.Helper()
	return New(afero.NewMemMapFs(),
		WithScheme("docsdir", "/repo/doc"),
		WithScheme("notesdir", "~/notes"),
		WithHome("/home/u"),
	)
}

func TestResolve(t *testing.T) {
	s := newMemStore(t)

	tests := []struct {
		in   string
		want string
	}{
		{"docsdir://Page99.pdf", "/repo/doc/Page99.pdf"},
		{"notesdir://Page99.md", "/home/u/notes/Page99.md"},
		{"~/papers/x.pdf", "/home/u/papers/x.pdf"},
		{"/tmp/../tmp/a.pdf", "/tmp/a.pdf"},
		{"unknown://x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := s.Resolve(tt.in)
			if tt.want == "" {
				assert.True(t, filepath.IsAbs(got))
				return
			}
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestWriteReadRemove(t *testing.T) {
	s := newMemStore(t)

	require.NoError(t, s.Write("docsdir://a/b.txt", []byte("hello")))
	assert.True(t, s.Exists("/repo/doc/a/b.txt"))
	assert.True(t, s.IsDir("/repo/doc/a"))

	data, err := s.Read("docsdir://a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Write("docsdir://a/b.txt", []byte("bye")))
	data, err = s.Read("docsdir://a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))

	names, err := s.List("/repo/doc/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, names, "temp files must not survive a write")

	_, err = s.ModTime("docsdir://a/b.txt")
	require.NoError(t, err)

	require.NoError(t, s.Remove("docsdir://a/b.txt"))
	assert.False(t, s.Exists("docsdir://a/b.txt"))

	_, err = s.Read("docsdir://a/b.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(s.Remove("docsdir://a/b.txt"), fs.ErrNotExist))
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s := newMemStore(t)
	names, err := s.List("/nowhere")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSplitScheme(t *testing.T) {
	scheme, rest, ok := SplitScheme("docsdir://x.pdf")
	assert.True(t, ok)
	assert.Equal(t, "docsdir", scheme)
	assert.Equal(t, "x.pdf", rest)

	_, _, ok = SplitScheme("/abs/x.pdf")
	assert.False(t, ok)
	_, _, ok = SplitScheme("://x")
	assert.False(t, ok)
}

func TestWithin(t *testing.T) {
	assert.True(t, Within("/repo/doc", "/repo/doc/x.pdf"))
	assert.True(t, Within("/repo/doc", "/repo/doc/sub/x.pdf"))
	assert.False(t, Within("/repo/doc", "/repo/docs/x.pdf"))
	assert.False(t, Within("/repo/doc", "/repo/x.pdf"))
	assert.False(t, Within("/repo/doc", "/elsewhere/x.pdf"))
}
