package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/aidanlsb/pubs/internal/paper"
)

// Response is the standard JSON envelope for all CLI output.
type Response struct {
	OK       bool       `json:"ok"`
	Data     any        `json:"data,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
	Warnings []Warning  `json:"warnings,omitempty"`
	Meta     *Meta      `json:"meta,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Warning represents a non-fatal warning.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Citekey string `json:"citekey,omitempty"`
}

// Meta contains metadata about the response.
type Meta struct {
	Count       int   `json:"count,omitempty"`
	QueryTimeMs int64 `json:"query_time_ms,omitempty"`
}

// PaperJSON is the JSON form of a paper.
type PaperJSON struct {
	Citekey string            `json:"citekey"`
	Type    string            `json:"type"`
	Fields  map[string]string `json:"fields"`
	Tags    []string          `json:"tags"`
	Added   *time.Time        `json:"added,omitempty"`
	DocFile string            `json:"docfile,omitempty"`
	Extra   map[string]any    `json:"extra,omitempty"`
}

func paperJSON(p *paper.Paper) PaperJSON {
	out := PaperJSON{
		Citekey: p.Citekey,
		Type:    p.Bib.Type,
		Fields:  p.Bib.Fields,
		Tags:    p.Tags(),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if p.Meta != nil {
		if !p.Meta.Added.IsZero() {
			added := p.Meta.Added
			out.Added = &added
		}
		out.DocFile = p.Meta.DocPath
		out.Extra = p.Meta.Extra
	}
	return out
}

func writeJSON(w io.Writer, resp Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
