// Package codec converts bibliography entries and metadata records to and
// from their on-disk text: BibTeX for entries, YAML for metadata.
package codec

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aidanlsb/pubs/internal/paper"
)

var (
	// ErrDecode is matched by every decoding failure.
	ErrDecode = errors.New("decode error")
	// ErrEncode is matched when an entry holds a value no BibTeX delimiter can
	// carry back unchanged.
	ErrEncode = errors.New("encode error")
)

// DecodeError reports malformed bibliography or metadata text.
type DecodeError struct {
	Kind string // "bibtex" or "yaml"
	Line int    // 1-based, 0 when unknown
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind)
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDecode, e.Err}
	}
	return []error{ErrDecode}
}

// EncodeError names the field whose value cannot be written.
type EncodeError struct {
	Field string
	Value string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("field %q cannot be written with braces or quotes: %q", e.Field, e.Value)
}

func (e *EncodeError) Unwrap() error { return ErrEncode }

// Record is one entry of a BibTeX document together with the key it was
// declared under.
type Record struct {
	Key   string
	Entry *paper.Entry
}

// fieldOrder fixes the position of common fields on encode; the rest follow
// alphabetically.
var fieldOrder = []string{
	"author", "editor", "title", "booktitle", "journal", "year", "month",
	"volume", "number", "pages", "publisher", "address", "edition", "series",
	"school", "institution", "organization", "howpublished", "doi", "isbn",
	"issn", "eprint", "archiveprefix", "primaryclass", "url", "urldate",
	"keywords", "abstract", "note",
}

var fieldRank = func() map[string]int {
	m := make(map[string]int, len(fieldOrder))
	for i, f := range fieldOrder {
		m[f] = i
	}
	return m
}()

// EncodeBib renders a single entry under key. The output is deterministic.
// Values are braced when their braces balance and quoted otherwise; a value
// that fits neither form is an *EncodeError.
func EncodeBib(key string, e *paper.Entry) ([]byte, error) {
	var sb strings.Builder
	entryType := e.Type
	if entryType == "" {
		entryType = "misc"
	}
	fmt.Fprintf(&sb, "@%s{%s,\n", entryType, key)

	for _, f := range orderedFields(e) {
		v := e.Fields[f]
		switch {
		case braceSafe(v):
			fmt.Fprintf(&sb, "  %s = {%s},\n", f, v)
		case quoteSafe(v):
			fmt.Fprintf(&sb, "  %s = \"%s\",\n", f, v)
		default:
			return nil, &EncodeError{Field: f, Value: v}
		}
	}
	sb.WriteString("}\n")
	return []byte(sb.String()), nil
}

func orderedFields(e *paper.Entry) []string {
	fields := make([]string, 0, len(e.Fields))
	for f, v := range e.Fields {
		if v != "" {
			fields = append(fields, f)
		}
	}
	sort.Slice(fields, func(i, j int) bool {
		ri, iok := fieldRank[fields[i]]
		rj, jok := fieldRank[fields[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return fields[i] < fields[j]
		}
	})
	return fields
}

// braceSafe reports whether {v} reads back as v: no '}' closes early and
// every '{' is closed.
func braceSafe(v string) bool {
	depth := 0
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return false
			}
			depth--
		}
	}
	return depth == 0
}

// quoteSafe reports whether "v" reads back as v. Stray '}' are tolerated
// inside quotes, but a '"' outside braces ends the value.
func quoteSafe(v string) bool {
	depth := 0
	for i := 0; i < len(v); i++ {
		switch c := v[i]; {
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case c == '"' && depth == 0:
			return false
		}
	}
	return depth == 0
}

// EncodeBibs renders several records, separated by blank lines.
func EncodeBibs(records []Record) ([]byte, error) {
	var sb strings.Builder
	for i, r := range records {
		if i > 0 {
			sb.WriteString("\n")
		}
		data, err := EncodeBib(r.Key, r.Entry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Key, err)
		}
		sb.Write(data)
	}
	return []byte(sb.String()), nil
}

// DecodeBib decodes a document holding exactly one entry.
func DecodeBib(data []byte) (*paper.Entry, error) {
	records, err := ParseBibTeX(data)
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, &DecodeError{Kind: "bibtex", Msg: fmt.Sprintf("expected exactly one entry, found %d", len(records))}
	}
	return records[0].Entry, nil
}

// ParseBibTeX decodes every entry in data. @string macros are expanded,
// @comment and @preamble blocks are skipped, text outside entries is ignored.
// Values are kept verbatim, line breaks included; see Tidy.
func ParseBibTeX(data []byte) ([]Record, error) {
	p := &bibParser{src: string(data), line: 1, macros: defaultMacros()}
	return p.parse()
}

func defaultMacros() map[string]string {
	months := []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	names := []string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
	m := make(map[string]string, len(months))
	for i, k := range months {
		m[k] = names[i]
	}
	return m
}

type bibParser struct {
	src    string
	pos    int
	line   int
	macros map[string]string
}

func (p *bibParser) errorf(format string, args ...any) error {
	return &DecodeError{Kind: "bibtex", Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *bibParser) eof() bool { return p.pos >= len(p.src) }

func (p *bibParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *bibParser) next() byte {
	c := p.src[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
	}
	return c
}

func (p *bibParser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\r', '\n':
			p.next()
		default:
			return
		}
	}
}

func (p *bibParser) expect(c byte) error {
	p.skipSpace()
	if p.eof() {
		return p.errorf("unexpected end of input, expected %q", c)
	}
	if got := p.peek(); got != c {
		return p.errorf("expected %q, found %q", c, got)
	}
	p.next()
	return nil
}

func (p *bibParser) parse() ([]Record, error) {
	var records []Record
	seen := make(map[string]bool)
	for {
		// Anything before '@' is a comment.
		for !p.eof() && p.peek() != '@' {
			p.next()
		}
		if p.eof() {
			return records, nil
		}
		p.next()

		entryType := strings.ToLower(p.ident())
		if entryType == "" {
			return nil, p.errorf("missing entry type after '@'")
		}

		switch entryType {
		case "comment":
			if err := p.skipBlock(); err != nil {
				return nil, err
			}
			continue
		case "preamble":
			if err := p.skipBlock(); err != nil {
				return nil, err
			}
			continue
		case "string":
			if err := p.parseString(); err != nil {
				return nil, err
			}
			continue
		}

		rec, err := p.parseEntry(entryType)
		if err != nil {
			return nil, err
		}
		if rec.Key != "" {
			if seen[rec.Key] {
				return nil, p.errorf("duplicate key %q", rec.Key)
			}
			seen[rec.Key] = true
		}
		records = append(records, rec)
	}
}

func (p *bibParser) open() (byte, error) {
	p.skipSpace()
	if p.eof() {
		return 0, p.errorf("unexpected end of input")
	}
	switch c := p.next(); c {
	case '{':
		return '}', nil
	case '(':
		return ')', nil
	default:
		return 0, p.errorf("expected '{' or '(', found %q", c)
	}
}

func (p *bibParser) skipBlock() error {
	closer, err := p.open()
	if err != nil {
		return err
	}
	depth := 0
	for !p.eof() {
		c := p.next()
		switch {
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case c == closer && depth == 0:
			return nil
		}
	}
	return p.errorf("unterminated block")
}

func (p *bibParser) parseString() error {
	closer, err := p.open()
	if err != nil {
		return err
	}
	p.skipSpace()
	name := strings.ToLower(p.ident())
	if name == "" {
		return p.errorf("missing @string name")
	}
	if err := p.expect('='); err != nil {
		return err
	}
	value, err := p.value()
	if err != nil {
		return err
	}
	p.macros[name] = value
	return p.expect(closer)
}

func (p *bibParser) parseEntry(entryType string) (Record, error) {
	closer, err := p.open()
	if err != nil {
		return Record{}, err
	}
	p.skipSpace()
	// The key may be empty; callers generate one.
	key := p.key()

	entry := paper.NewEntry(entryType)
	for {
		p.skipSpace()
		if p.eof() {
			return Record{}, p.errorf("unterminated entry %q", key)
		}
		c := p.peek()
		if c == closer {
			p.next()
			return Record{Key: key, Entry: entry}, nil
		}
		if c != ',' {
			return Record{}, p.errorf("expected ',' or %q in entry %q, found %q", closer, key, c)
		}
		p.next()
		p.skipSpace()
		if p.peek() == closer {
			continue
		}

		field := strings.ToLower(p.ident())
		if field == "" {
			return Record{}, p.errorf("missing field name in entry %q", key)
		}
		if err := p.expect('='); err != nil {
			return Record{}, err
		}
		value, err := p.value()
		if err != nil {
			return Record{}, err
		}
		entry.Set(field, value)
	}
}

// value reads a (possibly '#'-concatenated) field value.
func (p *bibParser) value() (string, error) {
	var parts []string
	for {
		p.skipSpace()
		if p.eof() {
			return "", p.errorf("unexpected end of input in value")
		}
		var part string
		switch c := p.peek(); {
		case c == '{':
			p.next()
			s, err := p.braced()
			if err != nil {
				return "", err
			}
			part = s
		case c == '"':
			p.next()
			s, err := p.quoted()
			if err != nil {
				return "", err
			}
			part = s
		case isDigit(c):
			start := p.pos
			for !p.eof() && isDigit(p.peek()) {
				p.next()
			}
			part = p.src[start:p.pos]
		default:
			name := strings.ToLower(p.ident())
			if name == "" {
				return "", p.errorf("invalid value start %q", c)
			}
			expanded, ok := p.macros[name]
			if !ok {
				return "", p.errorf("undefined macro %q", name)
			}
			part = expanded
		}
		parts = append(parts, part)

		p.skipSpace()
		if p.peek() != '#' {
			return strings.Join(parts, ""), nil
		}
		p.next()
	}
}

// braced reads until the matching '}' and returns the inner text verbatim.
func (p *bibParser) braced() (string, error) {
	start := p.pos
	depth := 0
	for !p.eof() {
		c := p.next()
		switch c {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return p.src[start : p.pos-1], nil
			}
			depth--
		}
	}
	return "", p.errorf("unterminated '{'")
}

func (p *bibParser) quoted() (string, error) {
	start := p.pos
	depth := 0
	for !p.eof() {
		c := p.next()
		switch {
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case c == '"' && depth == 0:
			return p.src[start : p.pos-1], nil
		}
	}
	return "", p.errorf("unterminated '\"'")
}

func (p *bibParser) ident() string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if isSpace(c) || strings.IndexByte("{}(),=\"#@%", c) >= 0 {
			break
		}
		p.next()
	}
	return p.src[start:p.pos]
}

func (p *bibParser) key() string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if isSpace(c) || c == ',' || c == '}' || c == ')' {
			break
		}
		p.next()
	}
	return p.src[start:p.pos]
}

// Tidy collapses the whitespace that line wrapping leaves in hand-written
// BibTeX. Blank lines separating paragraphs are kept as a single "\n\n".
func Tidy(e *paper.Entry) {
	for f, v := range e.Fields {
		e.Set(f, tidyValue(v))
	}
}

func tidyValue(v string) string {
	var paras []string
	for _, para := range blankLine.Split(v, -1) {
		if p := strings.Join(strings.Fields(para), " "); p != "" {
			paras = append(paras, p)
		}
	}
	return strings.Join(paras, "\n\n")
}

var blankLine = regexp.MustCompile(`\n[ \t\r]*\n\s*`)

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }
