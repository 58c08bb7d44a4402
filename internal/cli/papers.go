package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aidanlsb/pubs/internal/citekey"
	"github.com/aidanlsb/pubs/internal/codec"
	"github.com/aidanlsb/pubs/internal/paper"
	"github.com/aidanlsb/pubs/internal/repository"
)

const bibTemplate = `% Fill in the entry, save and quit. Leave it unchanged to abort.
@article{,
  author = {},
  title = {},
  journal = {},
  year = {},
}
`

// readSource reads a file, or stdin for "-".
func readSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// resolveCitekey picks the key for a new paper. An explicit key must be free.
// Otherwise the declared key (or one generated from the entry) gets the first
// free suffix. changed reports whether the result differs from declared.
func resolveCitekey(repo *repository.Repository, explicit, declared string, e *paper.Entry) (key string, changed bool, err error) {
	if explicit != "" {
		if !citekey.Valid(explicit) {
			return "", false, fmt.Errorf("%w: %q", repository.ErrInvalidCitekey, explicit)
		}
		if repo.Contains(explicit) {
			return "", false, &repository.CollisionError{Citekey: explicit}
		}
		return explicit, explicit != declared, nil
	}

	base := citekey.Sanitize(declared)
	if base == "" {
		if base, err = citekey.Generate(e); err != nil {
			return "", false, fmt.Errorf("cannot derive a citekey: %w", err)
		}
	}
	key, err = repo.UniqueCitekey(base)
	if err != nil {
		return "", false, err
	}
	return key, key != declared, nil
}

// parseEdited decodes an edited single-entry document. An entry that could
// not be written back unchanged is refused here, while the text can still be
// fixed.
func parseEdited(text string) (codec.Record, error) {
	records, err := codec.ParseBibTeX([]byte(text))
	if err != nil {
		return codec.Record{}, err
	}
	if len(records) != 1 {
		return codec.Record{}, &codec.DecodeError{Kind: "bibtex", Msg: fmt.Sprintf("expected exactly one entry, found %d", len(records))}
	}
	rec := records[0]
	if _, err := codec.EncodeBib(rec.Key, rec.Entry); err != nil {
		return codec.Record{}, err
	}
	return rec, nil
}

// parseNew is parseEdited for entries coming from outside the repository,
// whose line wrapping is not worth keeping.
func parseNew(text string) (codec.Record, error) {
	rec, err := parseEdited(text)
	if err != nil {
		return codec.Record{}, err
	}
	codec.Tidy(rec.Entry)
	return rec, nil
}

// tagOps applies "+tag" / "-tag" / "tag" operations, comma separated.
func tagOps(m *paper.Metadata, ops []string) {
	for _, op := range splitList(ops) {
		switch {
		case strings.HasPrefix(op, "-"):
			m.RemoveTag(strings.TrimPrefix(op, "-"))
		default:
			m.AddTag(strings.TrimPrefix(op, "+"))
		}
	}
}

func cleanBraces(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(s)
}
