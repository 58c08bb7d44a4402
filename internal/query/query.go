// Package query filters and orders papers for listing and export.
//
// A query is a list of terms that must all match. A term is either a bare
// word, matched against citekey, title and authors, or "field:value":
//
//	author:turing title:machinery year:1950-1960 tag:ai citekey:Tur type:article
//
// Any other field name matches the bibliography field of the same name.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"

	"github.com/aidanlsb/pubs/internal/paper"
)

// Options controls text comparison. By default matching is smart-case:
// case-insensitive unless the term has an upper-case letter. Diacritics are
// folded unless Strict is set.
type Options struct {
	// IgnoreCase always compares case-insensitively.
	IgnoreCase bool
	// Strict compares case-sensitively and without diacritic folding.
	Strict bool
}

type termKind int

const (
	kindAny termKind = iota
	kindAuthor
	kindTitle
	kindYear
	kindTag
	kindCitekey
	kindType
	kindField
)

var fieldKinds = map[string]termKind{
	"author":  kindAuthor,
	"a":       kindAuthor,
	"title":   kindTitle,
	"t":       kindTitle,
	"year":    kindYear,
	"y":       kindYear,
	"tag":     kindTag,
	"tags":    kindTag,
	"citekey": kindCitekey,
	"key":     kindCitekey,
	"type":    kindType,
}

type term struct {
	kind          termKind
	field         string
	value         string
	caseSensitive bool
	strict        bool
	fromYear      int
	toYear        int
}

// Filter is a parsed query. The zero Filter matches everything.
type Filter struct {
	terms []term
}

// Parse builds a filter from command-line terms.
func Parse(terms []string, opts Options) (Filter, error) {
	var f Filter
	for _, raw := range terms {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		t := term{kind: kindAny, value: raw}
		if name, value, ok := strings.Cut(raw, ":"); ok && name != "" && !strings.Contains(name, " ") {
			name = strings.ToLower(name)
			if k, known := fieldKinds[name]; known {
				t.kind = k
			} else {
				t.kind = kindField
				t.field = name
			}
			t.value = value
		}
		if t.value == "" {
			return Filter{}, fmt.Errorf("empty value in query term %q", raw)
		}

		t.strict = opts.Strict
		t.caseSensitive = opts.Strict || (!opts.IgnoreCase && hasUpper(t.value))

		if t.kind == kindYear {
			from, to, err := parseYearRange(t.value)
			if err != nil {
				return Filter{}, err
			}
			t.fromYear, t.toYear = from, to
		}
		f.terms = append(f.terms, t)
	}
	return f, nil
}

// Empty reports whether the filter has no terms.
func (f Filter) Empty() bool { return len(f.terms) == 0 }

// Match reports whether p satisfies every term.
func (f Filter) Match(p *paper.Paper) bool {
	for _, t := range f.terms {
		if !t.match(p) {
			return false
		}
	}
	return true
}

func (t term) norm(s string) string {
	s = strings.NewReplacer("{", "", "}", "").Replace(s)
	if !t.strict {
		s = unidecode.Unidecode(s)
	}
	if !t.caseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

func (t term) contains(s string) bool {
	return strings.Contains(t.norm(s), t.norm(t.value))
}

func (t term) match(p *paper.Paper) bool {
	switch t.kind {
	case kindAuthor:
		return t.matchNames(p)
	case kindTitle:
		return t.contains(p.Bib.Title())
	case kindYear:
		y, err := strconv.Atoi(strings.TrimSpace(p.Bib.Year()))
		if err != nil {
			return false
		}
		return y >= t.fromYear && y <= t.toYear
	case kindTag:
		want := t.norm(t.value)
		for _, tag := range p.Tags() {
			if t.norm(tag) == want {
				return true
			}
		}
		return false
	case kindCitekey:
		return t.contains(p.Citekey)
	case kindType:
		return strings.EqualFold(p.Bib.Type, t.value)
	case kindField:
		return t.contains(p.Bib.Get(t.field))
	default:
		return t.contains(p.Citekey) || t.contains(p.Bib.Title()) || t.matchNames(p)
	}
}

func (t term) matchNames(p *paper.Paper) bool {
	names := append(p.Bib.Authors(), p.Bib.Editors()...)
	for _, n := range names {
		if t.contains(n) {
			return true
		}
	}
	return false
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

const (
	minYear = -1 << 31
	maxYear = 1<<31 - 1
)

// parseYearRange accepts "1999", "1990-2000", "1990-" and "-2000".
func parseYearRange(s string) (int, int, error) {
	from, to, isRange := strings.Cut(s, "-")
	if !isRange {
		y, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", s)
		}
		return y, y, nil
	}
	lo, hi := minYear, maxYear
	var err error
	if from != "" {
		if lo, err = strconv.Atoi(from); err != nil {
			return 0, 0, fmt.Errorf("invalid year range %q", s)
		}
	}
	if to != "" {
		if hi, err = strconv.Atoi(to); err != nil {
			return 0, 0, fmt.Errorf("invalid year range %q", s)
		}
	}
	if from == "" && to == "" {
		return 0, 0, fmt.Errorf("invalid year range %q", s)
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("year range %q is reversed", s)
	}
	return lo, hi, nil
}
