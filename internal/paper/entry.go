// Package paper defines the bibliography records managed by a pubs repository.
package paper

import (
	"maps"
	"strings"
)

// Entry is one bibliographic record. Field names and the entry type are
// lower-case; the citekey is not part of the entry, it belongs to the Paper.
type Entry struct {
	Type   string
	Fields map[string]string
}

// NewEntry returns an empty entry of the given type.
func NewEntry(entryType string) *Entry {
	return &Entry{
		Type:   strings.ToLower(strings.TrimSpace(entryType)),
		Fields: make(map[string]string),
	}
}

// Get returns the value of a field, or "" when unset.
func (e *Entry) Get(field string) string {
	if e == nil || e.Fields == nil {
		return ""
	}
	return e.Fields[strings.ToLower(field)]
}

// Set assigns a field. An empty value removes it.
func (e *Entry) Set(field, value string) {
	field = strings.ToLower(strings.TrimSpace(field))
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if value == "" {
		delete(e.Fields, field)
		return
	}
	e.Fields[field] = value
}

func (e *Entry) Title() string { return e.Get("title") }

func (e *Entry) Year() string { return e.Get("year") }

// Authors splits the author field on the BibTeX "and" separator.
func (e *Entry) Authors() []string {
	return SplitNames(e.Get("author"))
}

// Editors splits the editor field on the BibTeX "and" separator.
func (e *Entry) Editors() []string {
	return SplitNames(e.Get("editor"))
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	return &Entry{Type: e.Type, Fields: maps.Clone(e.Fields)}
}

// Equal reports whether two entries carry the same type and fields.
func (e *Entry) Equal(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Type != other.Type || len(e.Fields) != len(other.Fields) {
		return false
	}
	return maps.Equal(e.Fields, other.Fields)
}

// SplitNames splits a BibTeX name list ("Page, Lawrence and Brin, Sergey").
// The separator is matched case-insensitively at brace depth zero.
func SplitNames(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var names []string
	depth := 0
	start := 0
	lower := strings.ToLower(s)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ' ', '\t', '\n':
			if depth == 0 && strings.HasPrefix(lower[i+1:], "and") && i+4 < len(s) && isSpace(s[i+4]) {
				if name := strings.TrimSpace(s[start:i]); name != "" {
					names = append(names, name)
				}
				start = i + 4
				i += 3
			}
		}
	}
	if name := strings.TrimSpace(s[start:]); name != "" {
		names = append(names, name)
	}
	return names
}

// LastName extracts the family name from "Last, First" or "First Last".
// Braces are removed.
func LastName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.Index(name, ","); idx >= 0 {
		return stripBraces(strings.TrimSpace(name[:idx]))
	}
	// A fully braced name ("{World Health Organization}") is a single unit.
	if strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}") {
		return stripBraces(name)
	}
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	return stripBraces(parts[len(parts)-1])
}

func stripBraces(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(s)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
