package paper

import (
	"slices"
	"strings"
	"time"
)

// Metadata is the repository-side record kept next to each bibliography
// entry. Extra carries keys this version does not know about, so they
// survive a read-modify-write cycle.
type Metadata struct {
	DocPath string
	Tags    []string
	Added   time.Time
	Extra   map[string]any
}

// NewMetadata returns an empty metadata record.
func NewMetadata() *Metadata {
	return &Metadata{}
}

// SetTags replaces the tag set. Tags are trimmed, de-duplicated and sorted.
func (m *Metadata) SetTags(tags []string) {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.Sort(out)
	if len(out) == 0 {
		out = nil
	}
	m.Tags = out
}

// AddTag adds a tag; adding an existing tag is a no-op.
func (m *Metadata) AddTag(tag string) {
	m.SetTags(append(slices.Clone(m.Tags), tag))
}

// RemoveTag removes a tag if present.
func (m *Metadata) RemoveTag(tag string) {
	tag = strings.TrimSpace(tag)
	m.SetTags(slices.DeleteFunc(slices.Clone(m.Tags), func(t string) bool { return t == tag }))
}

// HasTag reports whether the tag is in the set.
func (m *Metadata) HasTag(tag string) bool {
	_, found := slices.BinarySearch(m.Tags, tag)
	return found
}

// Clone returns a deep copy, including nested maps and lists in Extra.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	var extra map[string]any
	if m.Extra != nil {
		extra = cloneValue(m.Extra).(map[string]any)
	}
	return &Metadata{
		DocPath: m.DocPath,
		Tags:    slices.Clone(m.Tags),
		Added:   m.Added,
		Extra:   extra,
	}
}

// cloneValue copies the container shapes YAML decoding produces. Scalars
// are values already.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case map[any]any:
		if t == nil {
			return t
		}
		out := make(map[any]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// Paper ties a citekey to its bibliography entry and metadata.
type Paper struct {
	Citekey string
	Bib     *Entry
	Meta    *Metadata
}

// New returns a paper with empty metadata.
func New(citekey string, bib *Entry) *Paper {
	return &Paper{Citekey: citekey, Bib: bib, Meta: NewMetadata()}
}

// Clone returns a deep copy of the paper.
func (p *Paper) Clone() *Paper {
	if p == nil {
		return nil
	}
	return &Paper{Citekey: p.Citekey, Bib: p.Bib.Clone(), Meta: p.Meta.Clone()}
}

// Tags is a shorthand for the metadata tag set.
func (p *Paper) Tags() []string {
	if p.Meta == nil {
		return nil
	}
	return p.Meta.Tags
}
