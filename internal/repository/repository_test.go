package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/pubs/internal/broker"
	"github.com/aidanlsb/pubs/internal/codec"
	"github.com/aidanlsb/pubs/internal/content"
	"github.com/aidanlsb/pubs/internal/datacache"
	"github.com/aidanlsb/pubs/internal/paper"
)

const root = "/repo"

var fixedNow = time.Date(2024, 6, 1, 8, 30, 15, 999, time.UTC)

type harness struct {
	repo   *Repository
	store  *content.FS
	events []Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := content.New(afero.NewMemMapFs(),
		content.WithScheme("docsdir", root+"/doc"),
		content.WithScheme("notesdir", root+"/notes"),
	)
	fb := broker.NewFileBroker(store, root)
	cache := datacache.New(fb, datacache.WithPersister(&datacache.MemPersister{}))
	docs := broker.NewDocBroker(store, "docsdir", root+"/doc", "")
	notes := broker.NewDocBroker(store, "notesdir", root+"/notes", "md")

	h := &harness{store: store}
	h.repo = New(cache, docs, notes, WithNow(func() time.Time { return fixedNow }))
	require.NoError(t, h.repo.Init())
	h.repo.Subscribe(SubscriberFunc(func(e Event) error {
		h.events = append(h.events, e)
		return nil
	}))
	return h
}

func (h *harness) kinds() []EventKind {
	out := make([]EventKind, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Kind())
	}
	return out
}

func newPaper(key, author, title, year string) *paper.Paper {
	e := paper.NewEntry("article")
	e.Set("author", author)
	e.Set("title", title)
	e.Set("year", year)
	return paper.New(key, e)
}

func collect(t *testing.T, r *Repository) []*paper.Paper {
	t.Helper()
	var out []*paper.Paper
	for p, err := range r.AllPapers() {
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestPushPullRoundTrip(t *testing.T) {
	h := newHarness(t)
	p := newPaper("Turing1950", "Turing, Alan M.", "Computing Machinery and Intelligence", "1950")
	p.Meta.SetTags([]string{"ai", "classic"})
	p.Meta.Extra = map[string]any{"rating": 5}

	require.NoError(t, h.repo.Push(p, false))
	assert.Equal(t, fixedNow.Truncate(time.Second), p.Meta.Added)

	got, err := h.repo.Pull("Turing1950")
	require.NoError(t, err)
	assert.True(t, p.Bib.Equal(got.Bib))
	assert.Equal(t, p.Meta, got.Meta)
	assert.True(t, h.repo.Contains("Turing1950"))
	assert.Equal(t, []EventKind{KindAdded}, h.kinds())
}

func TestPushKeepsExistingAddedTimestamp(t *testing.T) {
	h := newHarness(t)
	p := newPaper("Doe2013", "Doe, John", "A", "2013")
	added := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	p.Meta.Added = added
	require.NoError(t, h.repo.Push(p, false))

	got, err := h.repo.Pull("Doe2013")
	require.NoError(t, err)
	assert.Equal(t, added, got.Meta.Added)
}

func TestPushCollision(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.repo.Push(newPaper("Doe2013", "Doe, John", "First", "2013"), false))

	err := h.repo.Push(newPaper("Doe2013", "Doe, Jane", "Second", "2013"), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollision))
	var ce *CollisionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Doe2013", ce.Citekey)

	got, err := h.repo.Pull("Doe2013")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Bib.Title())

	require.NoError(t, h.repo.Push(newPaper("Doe2013", "Doe, Jane", "Second", "2013"), true))
	got, err = h.repo.Pull("Doe2013")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Bib.Title())
	assert.Equal(t, []EventKind{KindAdded, KindModified}, h.kinds())
}

func TestPushCollisionWithOrphanMetadata(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Write(root+"/meta/Orphan.yaml", []byte("tags: []\n")))

	err := h.repo.Push(newPaper("Orphan", "Doe, John", "x", "2000"), false)
	assert.True(t, IsCollision(err))
}

func TestPushRejectsInvalidCitekey(t *testing.T) {
	h := newHarness(t)
	err := h.repo.Push(newPaper("../escape", "Doe, John", "x", "2000"), false)
	assert.True(t, errors.Is(err, ErrInvalidCitekey))
	assert.Empty(t, h.events)
}

func TestPullMissing(t *testing.T) {
	h := newHarness(t)
	_, err := h.repo.Pull("Nobody")
	assert.True(t, IsNotFound(err))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Nobody", nf.Citekey)
}

func TestPullWithoutMetadataFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Write(root+"/bib/Hand.bib", []byte("@misc{Hand, title={Hand written}}")))

	assert.False(t, h.repo.Contains("Hand"))
	p, err := h.repo.Pull("Hand")
	require.NoError(t, err)
	assert.Equal(t, "Hand written", p.Bib.Title())
	assert.Empty(t, p.Tags())
}

func TestUniqueCitekeyIsDeterministic(t *testing.T) {
	h := newHarness(t)

	for _, want := range []string{"Doe2013", "Doe2013a", "Doe2013b"} {
		first, err := h.repo.UniqueCitekey("Doe2013")
		require.NoError(t, err)
		second, err := h.repo.UniqueCitekey("Doe2013")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, want, first)
		require.NoError(t, h.repo.Push(newPaper(first, "Doe, John", "t", "2013"), false))
	}
}

func TestRemove(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.repo.Push(newPaper("Page99", "Page, Lawrence", "PageRank", "1999"), false))
	require.NoError(t, h.store.Write("notesdir://Page99.md", []byte("notes")))

	require.NoError(t, h.repo.Remove("Page99", true))
	assert.False(t, h.repo.Contains("Page99"))
	assert.False(t, h.store.Exists("notesdir://Page99.md"))
	_, err := h.repo.Pull("Page99")
	assert.True(t, IsNotFound(err))

	require.NoError(t, h.repo.Remove("Page99", true), "removing an absent citekey is a no-op")
	assert.Equal(t, []EventKind{KindAdded, KindRemoved}, h.kinds())

	removed := h.events[1].(Removed)
	require.NotNil(t, removed.Paper)
	assert.Equal(t, "PageRank", removed.Paper.Bib.Title())
}

func TestRemovedEventFiresAfterDeletion(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.repo.Push(newPaper("Page99", "Page, Lawrence", "PageRank", "1999"), false))

	var sawBib bool
	var last *paper.Paper
	h.repo.Subscribe(SubscriberFunc(func(e Event) error {
		if r, ok := e.(Removed); ok {
			sawBib = h.store.Exists(root + "/bib/Page99.bib")
			last = r.Paper
		}
		return nil
	}))
	require.NoError(t, h.repo.Remove("Page99", true))
	assert.False(t, sawBib)
	require.NotNil(t, last)
	assert.Equal(t, "PageRank", last.Bib.Title())
}

func TestRemoveDocumentHandling(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Write("/home/u/managed.pdf", []byte("%PDF")))
	require.NoError(t, h.store.Write("/home/u/external.pdf", []byte("%PDF")))

	require.NoError(t, h.repo.Push(newPaper("Managed", "A, B", "x", "2000"), false))
	doc, err := h.repo.PushDoc("Managed", "/home/u/managed.pdf", DocCopy)
	require.NoError(t, err)

	require.NoError(t, h.repo.Push(newPaper("Linked", "A, B", "y", "2000"), false))
	_, err = h.repo.PushDoc("Linked", "/home/u/external.pdf", DocLink)
	require.NoError(t, err)

	require.NoError(t, h.repo.Remove("Managed", true))
	assert.False(t, h.store.Exists(doc))

	require.NoError(t, h.repo.Remove("Linked", true))
	assert.True(t, h.store.Exists("/home/u/external.pdf"), "external documents are never deleted")
}

func TestRemoveKeepsDocumentWhenAsked(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Write("/home/u/a.pdf", []byte("%PDF")))
	require.NoError(t, h.repo.Push(newPaper("A2000", "A, B", "x", "2000"), false))
	doc, err := h.repo.PushDoc("A2000", "/home/u/a.pdf", DocCopy)
	require.NoError(t, err)

	require.NoError(t, h.repo.Remove("A2000", false))
	assert.True(t, h.store.Exists(doc))
}

func TestRenameToSelfOverwrites(t *testing.T) {
	h := newHarness(t)
	p := newPaper("Page99", "Page, Lawrence", "PageRank", "1999")
	require.NoError(t, h.repo.Push(p, false))

	p.Bib.Set("journal", "InfoLab")
	renamed, err := h.repo.Rename(p, "Page99", "")
	require.NoError(t, err)
	assert.False(t, renamed)
	assert.True(t, h.repo.Contains("Page99"))

	got, err := h.repo.Pull("Page99")
	require.NoError(t, err)
	assert.Equal(t, "InfoLab", got.Bib.Get("journal"))
}

func TestRenameMovesAttachments(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Write("/home/u/page.pdf", []byte("%PDF")))
	p := newPaper("Page99", "Page, Lawrence", "PageRank", "1999")
	require.NoError(t, h.repo.Push(p, false))
	_, err := h.repo.PushDoc("Page99", "/home/u/page.pdf", DocCopy)
	require.NoError(t, err)
	require.NoError(t, h.store.Write("notesdir://Page99.md", []byte("notes")))
	h.events = nil

	p, err = h.repo.Pull("Page99")
	require.NoError(t, err)
	renamed, err := h.repo.Rename(p, "Page1999", "")
	require.NoError(t, err)
	assert.True(t, renamed)

	assert.False(t, h.repo.Contains("Page99"))
	assert.True(t, h.repo.Contains("Page1999"))
	assert.Equal(t, "docsdir://Page1999.pdf", p.Meta.DocPath)
	assert.True(t, h.store.Exists("docsdir://Page1999.pdf"))
	assert.False(t, h.store.Exists("docsdir://Page99.pdf"))
	assert.True(t, h.store.Exists("notesdir://Page1999.md"))
	assert.False(t, h.store.Exists("notesdir://Page99.md"))

	require.Len(t, h.events, 1)
	ev, ok := h.events[0].(Renamed)
	require.True(t, ok)
	assert.Equal(t, "Page99", ev.OldKey)
	assert.Equal(t, "Page1999", ev.Citekey())

	keys, err := h.repo.Citekeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"Page1999"}, keys)
}

func TestRenameWithoutNoteSucceeds(t *testing.T) {
	h := newHarness(t)
	p := newPaper("A2000", "A, B", "x", "2000")
	require.NoError(t, h.repo.Push(p, false))

	renamed, err := h.repo.Rename(p, "B2000", "A2000")
	require.NoError(t, err)
	assert.True(t, renamed)
	assert.True(t, h.repo.Contains("B2000"))
}

func TestRenameCollisionLeavesBothUntouched(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Write("/home/u/a.pdf", []byte("%PDF")))
	a := newPaper("A2000", "A, B", "first", "2000")
	b := newPaper("B2000", "B, C", "second", "2000")
	require.NoError(t, h.repo.Push(a, false))
	require.NoError(t, h.repo.Push(b, false))
	_, err := h.repo.PushDoc("A2000", "/home/u/a.pdf", DocCopy)
	require.NoError(t, err)
	h.events = nil

	a, err = h.repo.Pull("A2000")
	require.NoError(t, err)
	_, err = h.repo.Rename(a, "B2000", "")
	assert.True(t, IsCollision(err))
	assert.Empty(t, h.events)

	gotA, err := h.repo.Pull("A2000")
	require.NoError(t, err)
	assert.Equal(t, "first", gotA.Bib.Title())
	assert.Equal(t, "docsdir://A2000.pdf", gotA.Meta.DocPath)
	assert.True(t, h.store.Exists("docsdir://A2000.pdf"))
	assert.False(t, h.store.Exists("docsdir://B2000.pdf"))

	gotB, err := h.repo.Pull("B2000")
	require.NoError(t, err)
	assert.Equal(t, "second", gotB.Bib.Title())
	assert.Empty(t, gotB.Meta.DocPath)
}

func TestCitekeysWithPrefix(t *testing.T) {
	h := newHarness(t)
	for _, k := range []string{"Doe2013", "Doe2014", "Roe2001"} {
		require.NoError(t, h.repo.Push(newPaper(k, "X, Y", "t", "2000"), false))
	}
	got, err := h.repo.CitekeysWithPrefix("Doe")
	require.NoError(t, err)
	assert.Equal(t, []string{"Doe2013", "Doe2014"}, got)

	got, err = h.repo.CitekeysWithPrefix("Zed")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPushDocModes(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.repo.Push(newPaper("A2000", "A, B", "x", "2000"), false))

	require.NoError(t, h.store.Write("/home/u/a.pdf", []byte("v1")))
	doc, err := h.repo.PushDoc("A2000", "/home/u/a.pdf", DocMove)
	require.NoError(t, err)
	assert.Equal(t, "docsdir://A2000.pdf", doc)
	assert.False(t, h.store.Exists("/home/u/a.pdf"))

	// Replacing with a different extension drops the old managed copy.
	require.NoError(t, h.store.Write("/home/u/a.djvu", []byte("v2")))
	doc, err = h.repo.PushDoc("A2000", "/home/u/a.djvu", DocCopy)
	require.NoError(t, err)
	assert.Equal(t, "docsdir://A2000.djvu", doc)
	assert.False(t, h.store.Exists("docsdir://A2000.pdf"))

	p, err := h.repo.Pull("A2000")
	require.NoError(t, err)
	assert.Equal(t, h.store.Resolve("docsdir://A2000.djvu"), h.repo.DocRealPath(p))

	_, err = h.repo.PushDoc("A2000", "/home/u/missing.pdf", DocCopy)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	removed, err := h.repo.RemoveDoc("A2000")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, h.store.Exists("docsdir://A2000.djvu"))

	removed, err = h.repo.RemoveDoc("A2000")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestParseDocMode(t *testing.T) {
	for _, s := range []string{"copy", "Move", " link "} {
		_, err := ParseDocMode(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseDocMode("symlink")
	assert.Error(t, err)
}

func TestNotePaths(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "notesdir://Page99.md", h.repo.NotePath("Page99"))
	assert.Equal(t, h.store.Resolve(root+"/notes/Page99.md"), h.repo.NoteRealPath("Page99"))
}

func TestSubscriberErrorsDoNotAbort(t *testing.T) {
	h := newHarness(t)
	var order []string
	h.repo.Subscribe(SubscriberFunc(func(Event) error {
		order = append(order, "failing")
		return fmt.Errorf("boom")
	}))
	h.repo.Subscribe(SubscriberFunc(func(Event) error {
		order = append(order, "after")
		return nil
	}))

	require.NoError(t, h.repo.Push(newPaper("A2000", "A, B", "x", "2000"), false))
	assert.Equal(t, []string{"failing", "after"}, order)
	assert.Len(t, h.events, 1)
}

func TestAllPapersIsRestartable(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.repo.Push(newPaper("B2000", "B, C", "b", "2000"), false))
	require.NoError(t, h.repo.Push(newPaper("A2000", "A, B", "a", "2000"), false))

	seq := h.repo.AllPapers()
	var first []string
	for p, err := range seq {
		require.NoError(t, err)
		first = append(first, p.Citekey)
	}
	assert.Equal(t, []string{"A2000", "B2000"}, first)

	require.NoError(t, h.repo.Remove("A2000", true))
	var second []string
	for p, err := range seq {
		require.NoError(t, err)
		second = append(second, p.Citekey)
	}
	assert.Equal(t, []string{"B2000"}, second)
}

func TestAllPapersSurfacesDecodeErrors(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Write(root+"/bib/Broken.bib", []byte("@misc{Broken, title={x")))
	require.NoError(t, h.store.Write(root+"/meta/Broken.yaml", []byte("tags: []\n")))

	var errs int
	for _, err := range h.repo.AllPapers() {
		if err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestScenarioSinglePaperLifecycle(t *testing.T) {
	h := newHarness(t)
	assert.Empty(t, collect(t, h.repo))

	p := newPaper("Page99", "Page, Lawrence", "The PageRank Citation Ranking: Bringing Order to the Web", "1999")
	require.NoError(t, h.repo.Push(p, false))

	papers := collect(t, h.repo)
	require.Len(t, papers, 1)
	assert.Equal(t, "Page99", papers[0].Citekey)

	tags, err := h.repo.Tags()
	require.NoError(t, err)
	assert.Empty(t, tags)

	got := papers[0]
	got.Meta.AddTag("search")
	require.NoError(t, h.repo.Push(got, true))
	tags, err = h.repo.Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"search"}, tags)

	require.NoError(t, h.repo.Remove("Page99", true))
	assert.Empty(t, collect(t, h.repo))
}

func TestScenarioGeneratedCitekeyCollision(t *testing.T) {
	h := newHarness(t)

	first := newPaper("", "Doe, John", "On Things", "2013")
	k1, err := h.repo.GenerateCitekey(first.Bib)
	require.NoError(t, err)
	first.Citekey = k1
	require.NoError(t, h.repo.Push(first, false))

	second := newPaper("", "Doe, Jane", "On Other Things", "2013")
	k2, err := h.repo.GenerateCitekey(second.Bib)
	require.NoError(t, err)
	second.Citekey = k2
	require.NoError(t, h.repo.Push(second, false))

	assert.Equal(t, "Doe2013", k1)
	assert.Equal(t, "Doe2013a", k2)
	assert.True(t, h.repo.Contains("Doe2013"))
	assert.True(t, h.repo.Contains("Doe2013a"))

	a, err := h.repo.Pull("Doe2013")
	require.NoError(t, err)
	b, err := h.repo.Pull("Doe2013a")
	require.NoError(t, err)
	assert.False(t, a.Bib.Equal(b.Bib))
}

// reopen returns a repository with a cold cache over the same files.
func (h *harness) reopen() *Repository {
	fb := broker.NewFileBroker(h.store, root)
	return New(datacache.New(fb),
		broker.NewDocBroker(h.store, "docsdir", root+"/doc", ""),
		broker.NewDocBroker(h.store, "notesdir", root+"/notes", "md"))
}

func TestPushPullRoundTripWithColdCache(t *testing.T) {
	h := newHarness(t)
	p := newPaper("Doe2013", "Doe, John", "Sets like a } b", "2013")
	p.Bib.Set("abstract", "First paragraph.\n\nSecond  paragraph.")
	p.Bib.Set("note", `He said "hi" {twice}`)
	require.NoError(t, h.repo.Push(p, false))

	warm, err := h.repo.Pull("Doe2013")
	require.NoError(t, err)

	cold := h.reopen()
	got, err := cold.Pull("Doe2013")
	require.NoError(t, err)
	assert.True(t, p.Bib.Equal(got.Bib), "cold: %v", got.Bib.Fields)
	assert.True(t, warm.Bib.Equal(got.Bib))
	assert.Equal(t, warm.Meta, got.Meta)

	papers := collect(t, cold)
	require.Len(t, papers, 1)
	tags, err := cold.Tags()
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestPushRejectsUnencodableEntry(t *testing.T) {
	h := newHarness(t)
	p := newPaper("Doe2013", "Doe, John", `a } "b"`, "2013")
	err := h.repo.Push(p, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrEncode)
	assert.False(t, h.repo.Contains("Doe2013"))
	assert.Empty(t, h.events)

	assert.False(t, h.store.Exists(root+"/meta/Doe2013.yaml"), "nothing is written when encoding fails")
}

func TestRenameRejectsUnencodableEntryBeforeMovingAttachments(t *testing.T) {
	h := newHarness(t)
	p := newPaper("Doe2013", "Doe, John", "Fine", "2013")
	require.NoError(t, h.repo.Push(p, false))
	require.NoError(t, h.store.Write(root+"/notes/Doe2013.md", []byte("note")))

	p.Bib.Set("title", `a } "b"`)
	_, err := h.repo.Rename(p, "Doe2014", "Doe2013")
	assert.ErrorIs(t, err, codec.ErrEncode)
	assert.True(t, h.repo.Contains("Doe2013"))
	assert.False(t, h.repo.Contains("Doe2014"))
	assert.True(t, h.store.Exists(root+"/notes/Doe2013.md"))
}

func TestCloseFlushesCache(t *testing.T) {
	store := content.New(afero.NewMemMapFs())
	fb := broker.NewFileBroker(store, root)
	persister := &datacache.MemPersister{}
	cache := datacache.New(fb, datacache.WithPersister(persister))
	repo := New(cache,
		broker.NewDocBroker(store, "docsdir", root+"/doc", ""),
		broker.NewDocBroker(store, "notesdir", root+"/notes", "md"))
	require.NoError(t, repo.Init())

	require.NoError(t, repo.Push(newPaper("A2000", "A, B", "x", "2000"), false))
	require.NoError(t, repo.Close())
	assert.Equal(t, 1, persister.Saves)
	require.Contains(t, persister.Snapshot.Bib, "A2000")
}
