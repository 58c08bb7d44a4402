package datacache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/aidanlsb/pubs/internal/paper"
)

var (
	bucketBib  = []byte("bib")
	bucketMeta = []byte("meta")
	bucketInfo = []byte("info")
	keyVersion = []byte("version")
)

// Record is one persisted cache entry.
type Record struct {
	TS   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// Snapshot is the persisted form of a cache.
type Snapshot struct {
	Version string
	Bib     map[string]Record
	Meta    map[string]Record
}

// Persister stores snapshots between invocations. Load returns (nil, nil)
// when nothing has been saved yet.
type Persister interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// BoltPersister keeps the snapshot in a bbolt file. The file is opened only
// for the duration of a Load or Save.
type BoltPersister struct {
	path    string
	timeout time.Duration
}

func NewBoltPersister(path string) *BoltPersister {
	return &BoltPersister{path: path, timeout: time.Second}
}

func (p *BoltPersister) open(readOnly bool) (*bbolt.DB, error) {
	db, err := bbolt.Open(p.path, 0o600, &bbolt.Options{Timeout: p.timeout, ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	return db, nil
}

func (p *BoltPersister) Load() (*Snapshot, error) {
	if _, err := os.Stat(p.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	db, err := p.open(true)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	snap := &Snapshot{Bib: map[string]Record{}, Meta: map[string]Record{}}
	err = db.View(func(tx *bbolt.Tx) error {
		info := tx.Bucket(bucketInfo)
		if info == nil {
			return nil
		}
		snap.Version = string(info.Get(keyVersion))
		if err := readBucket(tx, bucketBib, snap.Bib); err != nil {
			return err
		}
		return readBucket(tx, bucketMeta, snap.Meta)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func readBucket(tx *bbolt.Tx, name []byte, into map[string]Record) error {
	b := tx.Bucket(name)
	if b == nil {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		var rec Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("cache record %s/%s: %w", name, k, err)
		}
		into[string(k)] = rec
		return nil
	})
}

// Save replaces the stored snapshot in a single transaction.
func (p *BoltPersister) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := p.open(false)
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return err
		}
		// An unreadable cache file is rebuilt from scratch.
		_ = os.Remove(p.path)
		if db, err = p.open(false); err != nil {
			return err
		}
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBib, bucketMeta, bucketInfo} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return fmt.Errorf("clearing bucket %s: %w", name, err)
				}
			}
		}
		if err := writeBucket(tx, bucketBib, snap.Bib); err != nil {
			return err
		}
		if err := writeBucket(tx, bucketMeta, snap.Meta); err != nil {
			return err
		}
		info, err := tx.CreateBucket(bucketInfo)
		if err != nil {
			return fmt.Errorf("creating bucket %s: %w", bucketInfo, err)
		}
		return info.Put(keyVersion, []byte(snap.Version))
	})
}

func writeBucket(tx *bbolt.Tx, name []byte, records map[string]Record) error {
	b, err := tx.CreateBucket(name)
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", name, err)
	}
	for k, rec := range records {
		v, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding cache record %s: %w", k, err)
		}
		if err := b.Put([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// MemPersister keeps the snapshot in memory. Used by tests and by callers
// that want a per-process cache only.
type MemPersister struct {
	Snapshot *Snapshot
	Saves    int
}

func (m *MemPersister) Load() (*Snapshot, error) { return m.Snapshot, nil }

func (m *MemPersister) Save(s *Snapshot) error {
	m.Snapshot = s
	m.Saves++
	return nil
}

type entryRecord struct {
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields"`
}

// Metadata is snapshotted in its on-disk YAML form so that a warm start
// yields exactly what decoding the file would.
func (c *Cache) encodeSnapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Version: c.version,
		Bib:     make(map[string]Record, len(c.bib)),
		Meta:    make(map[string]Record, len(c.meta)),
	}
	for k, e := range c.bib {
		data, err := json.Marshal(entryRecord{Type: e.data.Type, Fields: e.data.Fields})
		if err != nil {
			return nil, fmt.Errorf("encoding cached entry %s: %w", k, err)
		}
		snap.Bib[k] = Record{TS: e.ts, Data: data}
	}
	for k, e := range c.meta {
		yml, err := c.codec.EncodeMeta(e.data)
		if err != nil {
			return nil, fmt.Errorf("encoding cached metadata %s: %w", k, err)
		}
		data, err := json.Marshal(string(yml))
		if err != nil {
			return nil, fmt.Errorf("encoding cached metadata %s: %w", k, err)
		}
		snap.Meta[k] = Record{TS: e.ts, Data: data}
	}
	return snap, nil
}

func (c *Cache) decodeSnapshot(snap *Snapshot) (map[string]entry[*paper.Entry], map[string]entry[*paper.Metadata], error) {
	bib := make(map[string]entry[*paper.Entry], len(snap.Bib))
	for k, rec := range snap.Bib {
		var er entryRecord
		if err := json.Unmarshal(rec.Data, &er); err != nil {
			return nil, nil, fmt.Errorf("cached entry %s: %w", k, err)
		}
		e := paper.NewEntry(er.Type)
		for f, v := range er.Fields {
			e.Set(f, v)
		}
		bib[k] = entry[*paper.Entry]{data: e, ts: rec.TS}
	}

	meta := make(map[string]entry[*paper.Metadata], len(snap.Meta))
	for k, rec := range snap.Meta {
		var yml string
		if err := json.Unmarshal(rec.Data, &yml); err != nil {
			return nil, nil, fmt.Errorf("cached metadata %s: %w", k, err)
		}
		m, err := c.codec.DecodeMeta([]byte(yml))
		if err != nil {
			return nil, nil, fmt.Errorf("cached metadata %s: %w", k, err)
		}
		meta[k] = entry[*paper.Metadata]{data: m, ts: rec.TS}
	}
	return bib, meta, nil
}
