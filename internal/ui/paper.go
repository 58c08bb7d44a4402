package ui

import (
	"strings"

	"github.com/aidanlsb/pubs/internal/paper"
)

// PaperLine formats p on one line:
//
//	[Page99] Page and Brin "The PageRank Citation Ranking" (1999) | search
//
// maxAuthors caps the listed surnames; zero lists them all.
func PaperLine(p *paper.Paper, maxAuthors int) string {
	var sb strings.Builder
	sb.WriteString(Citekey(p.Citekey))

	if names := authorSummary(p.Bib, maxAuthors); names != "" {
		sb.WriteString(" ")
		sb.WriteString(Muted.Render(names))
	}
	if title := cleanTitle(p.Bib.Title()); title != "" {
		sb.WriteString(" \"")
		sb.WriteString(Bold.Render(title))
		sb.WriteString("\"")
	}
	if venue := venueOf(p.Bib); venue != "" {
		sb.WriteString(" ")
		sb.WriteString(Italic.Render(venue))
	}
	if year := p.Bib.Year(); year != "" {
		sb.WriteString(" (" + year + ")")
	}
	if tags := p.Tags(); len(tags) > 0 {
		sb.WriteString(Muted.Render(" | " + strings.Join(tags, ",")))
	}
	return sb.String()
}

func authorSummary(e *paper.Entry, maxAuthors int) string {
	names := e.Authors()
	suffix := ""
	if len(names) == 0 {
		names = e.Editors()
		suffix = " (eds)"
	}
	if len(names) == 0 {
		return ""
	}

	last := make([]string, len(names))
	for i, n := range names {
		last[i] = paper.LastName(n)
	}
	switch {
	case maxAuthors > 0 && len(last) > maxAuthors:
		return strings.Join(last[:maxAuthors], ", ") + " et al." + suffix
	case len(last) == 1:
		return last[0] + suffix
	default:
		return strings.Join(last[:len(last)-1], ", ") + " and " + last[len(last)-1] + suffix
	}
}

func venueOf(e *paper.Entry) string {
	for _, f := range []string{"journal", "booktitle", "publisher", "institution", "school"} {
		if v := e.Get(f); v != "" {
			return v
		}
	}
	return ""
}

func cleanTitle(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(s)
}
