package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/ui"
)

// TagSummary is one row of `pubs tag` without arguments.
type TagSummary struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func newTagCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag [citekey] [+tag|-tag]...",
		Short: "Show or change tags",
		Long: `Without arguments, lists every tag with the number of papers carrying it.
With a citekey, shows that paper's tags. Further arguments add (+tag or tag)
or remove (-tag) tags; several may be joined with commas. Global flags
go before the citekey.

Examples:
  pubs tag
  pubs tag Page99
  pubs tag Page99 +search,graphs -unread
  pubs --json tag Page99`,
		ValidArgsFunction: s.completeCitekeys(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listTags(s, cmd)
			}
			repo := s.app.Repo
			p, err := repo.Pull(args[0])
			if err != nil {
				return fail("", err, "")
			}

			if ops := args[1:]; len(ops) > 0 {
				tagOps(p.Meta, ops)
				if err := repo.Push(p, true); err != nil {
					return fail("", err, "")
				}
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				return s.success(out, map[string]any{"citekey": p.Citekey, "tags": nonNil(p.Tags())}, 0)
			}
			tags := p.Tags()
			if len(tags) == 0 {
				fmt.Fprintln(out, ui.Hint(p.Citekey+" has no tags"))
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", ui.Citekey(p.Citekey), ui.Tags(tags))
			return nil
		},
	}
	// "-tag" after the citekey is an argument, not a flag.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func listTags(s *state, cmd *cobra.Command) error {
	counts := make(map[string]int)
	for p, err := range s.app.Repo.AllPapers() {
		if err != nil {
			return fail("", err, "")
		}
		for _, t := range p.Tags() {
			counts[t]++
		}
	}
	items := make([]TagSummary, 0, len(counts))
	for t, n := range counts {
		items = append(items, TagSummary{Tag: t, Count: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Tag < items[j].Tag
	})

	out := cmd.OutOrStdout()
	if s.jsonOut() {
		return s.success(out, map[string]any{"tags": items}, len(items))
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No tags found.")
		return nil
	}
	fmt.Fprintf(out, "%s %s\n\n", ui.Header("Tags"), ui.Count(len(items), "tag", "tags"))
	tbl := ui.NewTable(2)
	for _, it := range items {
		tbl.AddRow(ui.Accent.Render(it.Tag), ui.Muted.Render(strconv.Itoa(it.Count)))
	}
	fmt.Fprint(out, tbl.String())
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
