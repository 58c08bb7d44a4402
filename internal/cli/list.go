package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aidanlsb/pubs/internal/paper"
	"github.com/aidanlsb/pubs/internal/query"
	"github.com/aidanlsb/pubs/internal/ui"
)

// queryFlags are shared by the commands that select papers.
type queryFlags struct {
	ignoreCase bool
	strict     bool
	sortBy     string
	reverse    bool
}

func (q *queryFlags) register(fs *pflag.FlagSet) {
	fs.BoolVarP(&q.ignoreCase, "ignore-case", "i", false, "Always match case-insensitively")
	fs.BoolVar(&q.strict, "strict", false, "Match case and diacritics exactly")
	fs.StringVar(&q.sortBy, "sort", "", "Sort by citekey, added or year")
	fs.BoolVarP(&q.reverse, "reverse", "r", false, "Reverse the order")
}

// selectPapers returns the papers matching terms, sorted.
func (q *queryFlags) selectPapers(s *state, terms []string) ([]*paper.Paper, error) {
	filter, err := query.Parse(terms, query.Options{IgnoreCase: q.ignoreCase, Strict: q.strict})
	if err != nil {
		return nil, fail(ErrInvalidInput, err, "")
	}
	by, err := query.ParseSortKey(q.sortBy)
	if err != nil {
		return nil, fail(ErrInvalidInput, err, "")
	}

	var out []*paper.Paper
	for p, err := range s.app.Repo.AllPapers() {
		if err != nil {
			return nil, fail("", err, "")
		}
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	query.Sort(out, by)
	if q.reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func newListCmd(s *state) *cobra.Command {
	var (
		q        queryFlags
		keysOnly bool
	)

	cmd := &cobra.Command{
		Use:     "list [query]...",
		Aliases: []string{"ls"},
		Short:   "List papers",
		Long: `Lists the papers matching every query term. A term is a bare word,
matched against citekey, title and authors, or field:value.

Fields: author (a), title (t), year (y), tag, citekey (key), type, or any
BibTeX field name. Years accept ranges: year:1990-2000, year:1990-, year:-2000.
Matching is case-insensitive unless the term has an upper-case letter.

Examples:
  pubs list
  pubs list author:turing year:1950
  pubs list tag:ai --sort added -r`,
		RunE: func(cmd *cobra.Command, args []string) error {
			papers, err := q.selectPapers(s, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				items := make([]PaperJSON, len(papers))
				for i, p := range papers {
					items[i] = paperJSON(p)
				}
				return s.success(out, map[string]any{"papers": items}, len(items))
			}
			for _, p := range papers {
				if keysOnly {
					fmt.Fprintln(out, p.Citekey)
					continue
				}
				fmt.Fprintln(out, ui.PaperLine(p, s.app.Config.Main.MaxAuthors))
			}
			return nil
		},
	}

	q.register(cmd.Flags())
	cmd.Flags().BoolVarP(&keysOnly, "keys", "k", false, "Print citekeys only")
	return cmd
}
