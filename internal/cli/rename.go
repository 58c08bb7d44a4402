package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/ui"
)

func newRenameCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <citekey> <new-citekey>",
		Short: "Change a paper's citekey",
		Long: `Moves a paper to a new citekey. A managed document and the note follow
the paper. The new citekey must be free.

Examples:
  pubs rename Page99 Page1999`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: s.completeCitekeys(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := s.app.Repo
			oldKey, newKey := args[0], args[1]

			p, err := repo.Pull(oldKey)
			if err != nil {
				return fail("", err, "")
			}
			renamed, err := repo.Rename(p, newKey, oldKey)
			if err != nil {
				return fail("", err, "")
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				return s.success(out, map[string]any{
					"from":    oldKey,
					"to":      newKey,
					"renamed": renamed,
					"paper":   paperJSON(p),
				}, 0)
			}
			if !renamed {
				fmt.Fprintln(out, ui.Infof("%s already has that citekey", oldKey))
				return nil
			}
			fmt.Fprintln(out, ui.Successf("Renamed %s to %s", oldKey, ui.Citekey(newKey)))
			return nil
		},
	}
}
