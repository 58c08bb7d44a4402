// Package repository is the authority on citekeys. It sequences the writes
// to the bibliography, metadata, document and note stores so that each
// operation looks atomic to its caller, and announces changes to subscribers.
//
// The repository never prints or prompts; every failure is returned.
package repository

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aidanlsb/pubs/internal/broker"
	"github.com/aidanlsb/pubs/internal/citekey"
	"github.com/aidanlsb/pubs/internal/codec"
	"github.com/aidanlsb/pubs/internal/datacache"
	"github.com/aidanlsb/pubs/internal/paper"
)

// Repository manages the papers stored under one root directory.
type Repository struct {
	cache  *datacache.Cache
	docs   *broker.DocBroker
	notes  *broker.DocBroker
	logger *log.Logger
	now    func() time.Time

	citekeys    map[string]struct{}
	subscribers []Subscriber
}

// Option configures a Repository.
type Option func(*Repository)

func WithLogger(logger *log.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// WithNow sets the clock used for the "added" timestamp.
func WithNow(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New returns a repository over cache, with docs and notes managing the
// attachment directories.
func New(cache *datacache.Cache, docs, notes *broker.DocBroker, opts ...Option) *Repository {
	r := &Repository{
		cache:  cache,
		docs:   docs,
		notes:  notes,
		logger: log.New(io.Discard),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init creates the on-disk layout.
func (r *Repository) Init() error {
	if err := r.cache.Broker().Init(); err != nil {
		return err
	}
	if err := r.docs.Init(); err != nil {
		return err
	}
	return r.notes.Init()
}

// Root returns the repository directory.
func (r *Repository) Root() string { return r.cache.Broker().Root() }

// Subscribe registers s for all future events.
func (r *Repository) Subscribe(s Subscriber) {
	r.subscribers = append(r.subscribers, s)
}

func (r *Repository) notify(e Event) {
	for _, s := range r.subscribers {
		if err := s.Handle(e); err != nil {
			r.logger.Warn("event handler failed", "event", e.Kind(), "citekey", e.Citekey(), "err", err)
		}
	}
}

// Close persists the cache.
func (r *Repository) Close() error {
	return r.cache.Flush(false)
}

func (r *Repository) loadCitekeys() error {
	if r.citekeys != nil {
		return nil
	}
	keys, err := r.cache.Citekeys()
	if err != nil {
		return fmt.Errorf("listing citekeys: %w", err)
	}
	r.citekeys = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		r.citekeys[k] = struct{}{}
	}
	return nil
}

func (r *Repository) member(k string) bool {
	_, ok := r.citekeys[k]
	return ok
}

// Contains reports whether both the bibliography and metadata files exist.
func (r *Repository) Contains(k string) bool {
	return r.cache.Exists(k, true)
}

// Citekeys returns every citekey, sorted.
func (r *Repository) Citekeys() ([]string, error) {
	if err := r.loadCitekeys(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(r.citekeys))
	for k := range r.citekeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// CitekeysWithPrefix returns the sorted citekeys starting with prefix.
func (r *Repository) CitekeysWithPrefix(prefix string) ([]string, error) {
	keys, err := r.Citekeys()
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Pull reads a paper. A missing metadata file reads as empty metadata.
func (r *Repository) Pull(k string) (*paper.Paper, error) {
	if err := r.loadCitekeys(); err != nil {
		return nil, err
	}
	if !r.member(k) {
		return nil, &NotFoundError{Citekey: k}
	}
	bib, err := r.cache.PullBib(k)
	if err != nil {
		if errors.Is(err, broker.ErrNotFound) {
			delete(r.citekeys, k)
			return nil, &NotFoundError{Citekey: k}
		}
		return nil, err
	}
	meta, err := r.cache.PullMeta(k)
	if err != nil {
		if !errors.Is(err, broker.ErrNotFound) {
			return nil, err
		}
		meta = paper.NewMetadata()
	}
	return &paper.Paper{Citekey: k, Bib: bib, Meta: meta}, nil
}

// Push stores p. Without overwrite an existing bibliography or metadata file
// under p.Citekey is a collision. An unset "added" timestamp is set to now.
func (r *Repository) Push(p *paper.Paper, overwrite bool) error {
	return r.push(p, overwrite, true)
}

func (r *Repository) push(p *paper.Paper, overwrite, event bool) error {
	if !citekey.Valid(p.Citekey) {
		return fmt.Errorf("%w: %q", ErrInvalidCitekey, p.Citekey)
	}
	if p.Bib == nil {
		return fmt.Errorf("paper %s has no bibliography entry", p.Citekey)
	}
	if err := r.loadCitekeys(); err != nil {
		return err
	}
	existed := r.member(p.Citekey) || r.cache.Exists(p.Citekey, false)
	if existed && !overwrite {
		return &CollisionError{Citekey: p.Citekey}
	}

	if p.Meta == nil {
		p.Meta = paper.NewMetadata()
	}
	if p.Meta.Added.IsZero() {
		p.Meta.Added = r.now().UTC().Truncate(time.Second)
	}
	if err := r.cache.Push(p.Citekey, p.Bib, p.Meta); err != nil {
		return err
	}
	r.citekeys[p.Citekey] = struct{}{}
	r.logger.Debug("paper pushed", "citekey", p.Citekey, "overwrite", existed)

	if event {
		if existed {
			r.notify(Modified{Paper: p.Clone()})
		} else {
			r.notify(Added{Paper: p.Clone()})
		}
	}
	return nil
}

// Remove deletes a paper with its note and, when removeDoc is set, its
// managed document. External documents are never deleted. Removing an absent
// citekey is a no-op.
func (r *Repository) Remove(k string, removeDoc bool) error {
	if err := r.loadCitekeys(); err != nil {
		return err
	}
	wasMember := r.member(k)

	meta, err := r.cache.PullMeta(k)
	switch {
	case err == nil:
	case errors.Is(err, broker.ErrNotFound):
		meta = paper.NewMetadata()
	default:
		return err
	}

	var last *paper.Paper
	if bib, err := r.cache.PullBib(k); err == nil {
		last = &paper.Paper{Citekey: k, Bib: bib, Meta: meta}
	}

	if removeDoc && meta.DocPath != "" {
		if err := r.docs.Remove(meta.DocPath, true); err != nil {
			return fmt.Errorf("removing document of %s: %w", k, err)
		}
	}
	if err := r.notes.Remove(r.notes.Path(k), true); err != nil {
		r.logger.Debug("note cleanup failed", "citekey", k, "err", err)
	}

	if err := r.removeRecords(k); err != nil {
		return err
	}
	r.logger.Debug("paper removed", "citekey", k)

	if wasMember {
		r.notify(Removed{Key: k, Paper: last})
	}
	return nil
}

func (r *Repository) removeRecords(k string) error {
	delete(r.citekeys, k)
	return r.cache.Remove(k)
}

// Rename moves p from oldKey (p.Citekey when empty) to newKey, carrying its
// managed document and note along. It reports whether the citekey changed;
// renaming to the same key is a plain overwrite.
func (r *Repository) Rename(p *paper.Paper, newKey, oldKey string) (bool, error) {
	if oldKey == "" {
		oldKey = p.Citekey
	}
	if oldKey == newKey {
		p.Citekey = newKey
		return false, r.push(p, true, true)
	}
	if !citekey.Valid(newKey) {
		return false, fmt.Errorf("%w: %q", ErrInvalidCitekey, newKey)
	}
	if err := r.loadCitekeys(); err != nil {
		return false, err
	}
	if r.member(newKey) || r.cache.Exists(newKey, false) {
		return false, &CollisionError{Citekey: newKey}
	}
	if p.Meta == nil {
		p.Meta = paper.NewMetadata()
	}
	if p.Bib != nil {
		if _, err := codec.EncodeBib(newKey, p.Bib); err != nil {
			return false, fmt.Errorf("%s: %w", oldKey, err)
		}
	}

	// Attachments move first so a failure leaves the old records intact.
	if doc := p.Meta.DocPath; doc != "" && r.docs.Manages(doc) {
		newDoc, err := r.docs.Rename(doc, newKey)
		if err != nil {
			return false, fmt.Errorf("renaming document of %s: %w", oldKey, err)
		}
		p.Meta.DocPath = newDoc
	}
	if oldNote := r.notes.Path(oldKey); r.notes.Exists(oldNote) {
		if _, err := r.notes.Rename(oldNote, newKey); err != nil {
			r.logger.Debug("note rename failed", "citekey", oldKey, "err", err)
		}
	}

	p.Citekey = newKey
	if err := r.push(p, false, false); err != nil {
		return false, err
	}
	if err := r.removeRecords(oldKey); err != nil {
		return false, err
	}
	r.logger.Debug("paper renamed", "from", oldKey, "to", newKey)

	r.notify(Renamed{Paper: p.Clone(), OldKey: oldKey})
	return true, nil
}

// UniqueCitekey returns base, or base followed by the first free suffix
// (a, b, ..., z, aa, ...). The result depends only on current membership.
func (r *Repository) UniqueCitekey(base string) (string, error) {
	if err := r.loadCitekeys(); err != nil {
		return "", err
	}
	return citekey.Unique(base, func(k string) bool {
		return r.member(k) || r.cache.Exists(k, false)
	}), nil
}

// GenerateCitekey derives a free citekey from the entry's authors and year.
func (r *Repository) GenerateCitekey(e *paper.Entry) (string, error) {
	base, err := citekey.Generate(e)
	if err != nil {
		return "", err
	}
	return r.UniqueCitekey(base)
}

// AllPapers yields every paper in citekey order. Each iteration re-reads
// the current membership.
func (r *Repository) AllPapers() iter.Seq2[*paper.Paper, error] {
	return func(yield func(*paper.Paper, error) bool) {
		keys, err := r.Citekeys()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, k := range keys {
			p, err := r.Pull(k)
			if err != nil && errors.Is(err, ErrNotFound) {
				continue
			}
			if !yield(p, err) {
				return
			}
		}
	}
}

// Tags returns the sorted union of all tags.
func (r *Repository) Tags() ([]string, error) {
	set := map[string]struct{}{}
	for p, err := range r.AllPapers() {
		if err != nil {
			return nil, err
		}
		for _, t := range p.Tags() {
			set[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

// DocMode selects how PushDoc attaches a file.
type DocMode string

const (
	DocCopy DocMode = "copy"
	DocMove DocMode = "move"
	DocLink DocMode = "link"
)

// ParseDocMode validates a mode name from config or flags.
func ParseDocMode(s string) (DocMode, error) {
	switch m := DocMode(strings.ToLower(strings.TrimSpace(s))); m {
	case DocCopy, DocMove, DocLink:
		return m, nil
	default:
		return "", fmt.Errorf("unknown document mode %q (want copy, move or link)", s)
	}
}

// PushDoc attaches source as the document of citekey k and returns the
// stored path. A previously managed document is replaced.
func (r *Repository) PushDoc(k, source string, mode DocMode) (string, error) {
	p, err := r.Pull(k)
	if err != nil {
		return "", err
	}
	store := r.cache.Broker().Store()
	src := r.docs.Resolve(source)
	if !store.Exists(src) {
		return "", fmt.Errorf("document %s: %w", source, fs.ErrNotExist)
	}

	var docPath string
	switch mode {
	case DocLink:
		docPath = src
	case DocCopy, DocMove, "":
		docPath, err = r.docs.Add(k, source, true)
		if err != nil {
			return "", err
		}
		if mode == DocMove && r.docs.Resolve(docPath) != src {
			if err := store.Remove(src); err != nil {
				return "", fmt.Errorf("moving document %s: %w", source, err)
			}
		}
	default:
		return "", fmt.Errorf("unknown document mode %q", mode)
	}

	if old := p.Meta.DocPath; old != "" && r.docs.Manages(old) && r.docs.Resolve(old) != r.docs.Resolve(docPath) {
		if err := r.docs.Remove(old, true); err != nil {
			return "", fmt.Errorf("removing previous document of %s: %w", k, err)
		}
	}

	p.Meta.DocPath = docPath
	if err := r.push(p, true, true); err != nil {
		return "", err
	}
	return docPath, nil
}

// RemoveDoc detaches the document of k, deleting it when it is managed.
// It reports whether a document was attached.
func (r *Repository) RemoveDoc(k string) (bool, error) {
	p, err := r.Pull(k)
	if err != nil {
		return false, err
	}
	doc := p.Meta.DocPath
	if doc == "" {
		return false, nil
	}
	if r.docs.Manages(doc) {
		if err := r.docs.Remove(doc, false); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	p.Meta.DocPath = ""
	return true, r.push(p, true, true)
}

// DocRealPath resolves the document path of p on disk, "" when none.
func (r *Repository) DocRealPath(p *paper.Paper) string {
	if p.Meta == nil || p.Meta.DocPath == "" {
		return ""
	}
	return r.docs.Resolve(p.Meta.DocPath)
}

// NotePath returns the virtual note path of k.
func (r *Repository) NotePath(k string) string {
	return r.notes.Path(k)
}

// NoteRealPath returns the on-disk note path of k.
func (r *Repository) NoteRealPath(k string) string {
	return r.notes.Resolve(r.notes.Path(k))
}
