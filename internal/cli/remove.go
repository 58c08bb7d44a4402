package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/repository"
	"github.com/aidanlsb/pubs/internal/ui"
)

func newRemoveCmd(s *state) *cobra.Command {
	var (
		yes     bool
		keepDoc bool
	)

	cmd := &cobra.Command{
		Use:     "remove <citekey>...",
		Aliases: []string{"rm"},
		Short:   "Remove papers",
		Long: `Removes papers together with their notes and managed documents.
Documents outside the repository are never deleted.

Examples:
  pubs remove Page99
  pubs remove Doe2013 Doe2013a --yes --keep-doc`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: s.completeCitekeys(-1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := s.app.Repo
			for _, k := range args {
				if !repo.Contains(k) {
					return fail("", &repository.NotFoundError{Citekey: k}, "")
				}
			}

			if !yes && s.canPrompt() {
				prompt := ui.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				ok, err := prompt.Confirm(fmt.Sprintf("Remove %s?", strings.Join(args, ", ")), false)
				if err != nil {
					return fail("", err, "")
				}
				if !ok {
					return fail(ErrCancelled, errors.New("nothing removed"), "")
				}
			}

			for _, k := range args {
				if err := repo.Remove(k, !keepDoc); err != nil {
					return fail("", fmt.Errorf("removing %s: %w", k, err), "")
				}
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				return s.success(out, map[string]any{"removed": args}, len(args))
			}
			fmt.Fprintln(out, ui.Successf("Removed %s", strings.Join(args, ", ")))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&keepDoc, "keep-doc", false, "Keep the managed document file")
	return cmd
}
