// Package citekey derives and validates paper identifiers.
package citekey

import (
	"errors"
	"strings"

	"github.com/aidanlsb/pubs/internal/paper"
	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
)

// ErrNoSource is returned when an entry has neither authors, editors nor a title.
var ErrNoSource = errors.New("cannot generate citekey: entry has no author, editor or title")

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "on": true, "of": true, "in": true,
	"and": true, "for": true, "to": true, "with": true, "at": true, "by": true,
}

// Generate builds the base citekey for an entry: first author (or editor)
// surname followed by the year. Without names the first significant title
// word is used instead.
func Generate(e *paper.Entry) (string, error) {
	names := e.Authors()
	if len(names) == 0 {
		names = e.Editors()
	}
	year := Sanitize(e.Year())

	if len(names) > 0 {
		if surname := Sanitize(paper.LastName(names[0])); surname != "" {
			return surname + year, nil
		}
	}

	if word := titleWord(e.Title()); word != "" {
		return word + year, nil
	}
	return "", ErrNoSource
}

func titleWord(title string) string {
	words := strings.Split(slug.Make(title), "-")
	for _, w := range words {
		if w == "" || stopWords[w] {
			continue
		}
		w = Sanitize(w)
		if w == "" {
			continue
		}
		return strings.ToUpper(w[:1]) + w[1:]
	}
	return ""
}

// Sanitize folds s to ASCII and drops every character that is not allowed
// in a citekey.
func Sanitize(s string) string {
	s = unidecode.Unidecode(s)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if allowed(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Valid reports whether k is a non-empty string of allowed characters.
func Valid(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		if !allowed(k[i]) {
			return false
		}
	}
	return true
}

func allowed(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-' || c == ':':
		return true
	}
	return false
}

// Suffix returns the n-th disambiguation suffix in bijective base 26:
// 0 → "", 1 → "a", 26 → "z", 27 → "aa", 28 → "ab".
func Suffix(n int) string {
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('a'+n%26))
		n /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// Unique returns the first of base, base+"a", base+"b", ... for which taken
// reports false.
func Unique(base string, taken func(string) bool) string {
	for n := 0; ; n++ {
		if k := base + Suffix(n); !taken(k) {
			return k
		}
	}
}
