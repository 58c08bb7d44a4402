// Package datacache keeps decoded bibliography entries and metadata records
// in memory, validated against file modification times, and persists them
// between invocations.
package datacache

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aidanlsb/pubs/internal/broker"
	"github.com/aidanlsb/pubs/internal/buildinfo"
	"github.com/aidanlsb/pubs/internal/codec"
	"github.com/aidanlsb/pubs/internal/paper"
)

// Codec encodes and decodes the two stores. The default uses package codec.
type Codec interface {
	DecodeBib(data []byte) (*paper.Entry, error)
	EncodeBib(citekey string, e *paper.Entry) ([]byte, error)
	DecodeMeta(data []byte) (*paper.Metadata, error)
	EncodeMeta(m *paper.Metadata) ([]byte, error)
}

type defaultCodec struct{}

func (defaultCodec) DecodeBib(data []byte) (*paper.Entry, error) { return codec.DecodeBib(data) }

func (defaultCodec) EncodeBib(k string, e *paper.Entry) ([]byte, error) { return codec.EncodeBib(k, e) }

func (defaultCodec) DecodeMeta(data []byte) (*paper.Metadata, error) { return codec.DecodeMeta(data) }

func (defaultCodec) EncodeMeta(m *paper.Metadata) ([]byte, error) { return codec.EncodeMeta(m) }

type entry[T any] struct {
	data T
	ts   time.Time
}

// Cache is a read-through, write-through cache over a FileBroker.
type Cache struct {
	broker    *broker.FileBroker
	codec     Codec
	persister Persister
	logger    *log.Logger
	now       func() time.Time
	grace     *time.Duration
	version   string

	bib    map[string]entry[*paper.Entry]
	meta   map[string]entry[*paper.Metadata]
	loaded bool
	dirty  bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithPersister sets where the cache is saved between invocations. Without
// one the cache lives only in memory.
func WithPersister(p Persister) Option {
	return func(c *Cache) {
		c.persister = p
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithNow sets the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMtimeGrace fixes the freshness grace window instead of deriving it
// from each file's mtime resolution.
func WithMtimeGrace(d time.Duration) Option {
	return func(c *Cache) {
		c.grace = &d
	}
}

func WithCodec(cd Codec) Option {
	return func(c *Cache) {
		c.codec = cd
	}
}

// WithVersion overrides the version tag written to and expected from the
// persisted snapshot.
func WithVersion(v string) Option {
	return func(c *Cache) {
		c.version = v
	}
}

// New returns a cache over b.
func New(b *broker.FileBroker, opts ...Option) *Cache {
	c := &Cache{
		broker:  b,
		codec:   defaultCodec{},
		logger:  log.New(io.Discard),
		now:     time.Now,
		version: buildinfo.CacheVersion(),
		bib:     make(map[string]entry[*paper.Entry]),
		meta:    make(map[string]entry[*paper.Metadata]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// graceFor returns the window added to mtime before a cached timestamp counts
// as fresh. A whole-second mtime suggests a filesystem that cannot tell a
// fresh write from a cached one within the same second.
func (c *Cache) graceFor(mtime time.Time) time.Duration {
	if c.grace != nil {
		return *c.grace
	}
	if mtime.Nanosecond() == 0 {
		return time.Second
	}
	return 0
}

func (c *Cache) fresh(ts, mtime time.Time) bool {
	return !ts.Before(mtime.Add(c.graceFor(mtime)))
}

func (c *Cache) stamp(mtime time.Time) time.Time {
	now := c.now()
	if mtime.After(now) {
		return mtime
	}
	return now
}

// Load reads the persisted snapshot. A missing, unreadable or outdated
// snapshot leaves the cache empty; it is never an error.
func (c *Cache) Load() {
	c.loaded = true
	if c.persister == nil {
		return
	}
	snap, err := c.persister.Load()
	if err != nil {
		c.logger.Debug("cache load failed, starting cold", "err", err)
		return
	}
	if snap == nil {
		return
	}
	if snap.Version != c.version {
		c.logger.Debug("cache version mismatch, starting cold", "have", snap.Version, "want", c.version)
		return
	}
	bib, meta, err := c.decodeSnapshot(snap)
	if err != nil {
		c.logger.Debug("cache records unreadable, starting cold", "err", err)
		return
	}
	c.bib, c.meta = bib, meta
	c.logger.Debug("cache loaded", "bib", len(c.bib), "meta", len(c.meta))
}

func (c *Cache) ensureLoaded() {
	if !c.loaded {
		c.Load()
	}
}

// Flush persists the cache if it changed since the last flush, or always
// when force is set.
func (c *Cache) Flush(force bool) error {
	if c.persister == nil || (!c.dirty && !force) {
		return nil
	}
	snap, err := c.encodeSnapshot()
	if err != nil {
		return err
	}
	if err := c.persister.Save(snap); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}
	c.dirty = false
	c.logger.Debug("cache flushed", "bib", len(c.bib), "meta", len(c.meta))
	return nil
}

// Dirty reports whether there are unflushed changes.
func (c *Cache) Dirty() bool { return c.dirty }

// PullBib returns the decoded entry for citekey. Missing files surface as
// broker.ErrNotFound.
func (c *Cache) PullBib(citekey string) (*paper.Entry, error) {
	c.ensureLoaded()
	mtime, err := c.broker.MtimeBib(citekey)
	if err != nil {
		evictMissing(c, c.bib, citekey, err)
		return nil, err
	}
	if e, ok := c.bib[citekey]; ok && c.fresh(e.ts, mtime) {
		return e.data.Clone(), nil
	}

	data, err := c.broker.PullBib(citekey)
	if err != nil {
		return nil, err
	}
	decoded, err := c.codec.DecodeBib(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", citekey, err)
	}
	c.bib[citekey] = entry[*paper.Entry]{data: decoded, ts: c.stamp(mtime)}
	c.dirty = true
	c.logger.Debug("bib decoded", "citekey", citekey)
	return decoded.Clone(), nil
}

// PullMeta returns the decoded metadata for citekey.
func (c *Cache) PullMeta(citekey string) (*paper.Metadata, error) {
	c.ensureLoaded()
	mtime, err := c.broker.MtimeMeta(citekey)
	if err != nil {
		evictMissing(c, c.meta, citekey, err)
		return nil, err
	}
	if e, ok := c.meta[citekey]; ok && c.fresh(e.ts, mtime) {
		return e.data.Clone(), nil
	}

	data, err := c.broker.PullMeta(citekey)
	if err != nil {
		return nil, err
	}
	decoded, err := c.codec.DecodeMeta(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", citekey, err)
	}
	c.meta[citekey] = entry[*paper.Metadata]{data: decoded, ts: c.stamp(mtime)}
	c.dirty = true
	c.logger.Debug("meta decoded", "citekey", citekey)
	return decoded.Clone(), nil
}

func evictIfPresent[T any](m map[string]entry[T], citekey string) bool {
	if _, ok := m[citekey]; ok {
		delete(m, citekey)
		return true
	}
	return false
}

// evictMissing drops a cached record whose backing file is gone.
func evictMissing[T any](c *Cache, m map[string]entry[T], citekey string, err error) {
	if errors.Is(err, broker.ErrNotFound) && evictIfPresent(m, citekey) {
		c.dirty = true
	}
}

// Pull returns both records of a citekey.
func (c *Cache) Pull(citekey string) (*paper.Entry, *paper.Metadata, error) {
	bib, err := c.PullBib(citekey)
	if err != nil {
		return nil, nil, err
	}
	meta, err := c.PullMeta(citekey)
	if err != nil {
		return nil, nil, err
	}
	return bib, meta, nil
}

// Push writes both records through to the broker and refreshes the cache
// with the post-write mtimes. Nothing is written when either record fails to
// encode.
func (c *Cache) Push(citekey string, bib *paper.Entry, meta *paper.Metadata) error {
	c.ensureLoaded()
	bibData, err := c.codec.EncodeBib(citekey, bib)
	if err != nil {
		return fmt.Errorf("%s: %w", citekey, err)
	}
	metaData, err := c.codec.EncodeMeta(meta)
	if err != nil {
		return fmt.Errorf("%s: %w", citekey, err)
	}

	if err := c.broker.Push(citekey, metaData, bibData); err != nil {
		return err
	}

	bibMtime, err := c.broker.MtimeBib(citekey)
	if err != nil {
		return err
	}
	metaMtime, err := c.broker.MtimeMeta(citekey)
	if err != nil {
		return err
	}
	c.bib[citekey] = entry[*paper.Entry]{data: bib.Clone(), ts: c.selfStamp(bibMtime)}
	c.meta[citekey] = entry[*paper.Metadata]{data: meta.Clone(), ts: c.selfStamp(metaMtime)}
	c.dirty = true
	return nil
}

// selfStamp marks an entry we just wrote as fresh regardless of mtime
// resolution.
func (c *Cache) selfStamp(mtime time.Time) time.Time {
	ts := c.stamp(mtime)
	if floor := mtime.Add(c.graceFor(mtime)); ts.Before(floor) {
		return floor
	}
	return ts
}

// Remove deletes both files and evicts the cached records.
func (c *Cache) Remove(citekey string) error {
	c.ensureLoaded()
	if err := c.broker.Remove(citekey); err != nil {
		return err
	}
	if evictIfPresent(c.bib, citekey) {
		c.dirty = true
	}
	if evictIfPresent(c.meta, citekey) {
		c.dirty = true
	}
	return nil
}

// Exists delegates to the broker; see broker.FileBroker.Exists.
func (c *Cache) Exists(citekey string, requireBoth bool) bool {
	return c.broker.Exists(citekey, requireBoth)
}

// Citekeys lists the citekeys that have a bibliography file.
func (c *Cache) Citekeys() ([]string, error) {
	bibKeys, _, err := c.broker.List()
	return bibKeys, err
}

// Broker exposes the underlying file broker.
func (c *Cache) Broker() *broker.FileBroker { return c.broker }
