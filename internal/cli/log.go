package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/audit"
	"github.com/aidanlsb/pubs/internal/ui"
)

func newLogCmd(s *state) *cobra.Command {
	var (
		since time.Duration
		limit int
	)

	cmd := &cobra.Command{
		Use:   "log [citekey]",
		Short: "Show the history of changes",
		Long: `Shows the changes recorded by the audit plugin, oldest first. With a
citekey only its history is shown, including renames away from it.

Examples:
  pubs log
  pubs log Page99
  pubs log --since 168h`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: s.completeCitekeys(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			au, ok := s.app.Audit()
			if !ok {
				return fail(ErrConfigInvalid, errors.New("the audit plugin is not active"), `Add "audit" to [plugins] active in the config`)
			}

			var (
				entries []audit.Entry
				err     error
			)
			switch {
			case len(args) == 1:
				entries, err = au.Log().ReadForCitekey(args[0])
			case since > 0:
				entries, err = au.Log().ReadSince(time.Now().Add(-since))
			default:
				entries, err = au.Log().Read()
			}
			if err != nil {
				return fail("", err, "")
			}
			if len(args) == 1 && since > 0 {
				cutoff := time.Now().Add(-since)
				kept := entries[:0]
				for _, e := range entries {
					if !e.Timestamp.Before(cutoff) {
						kept = append(kept, e)
					}
				}
				entries = kept
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				if entries == nil {
					entries = []audit.Entry{}
				}
				return s.success(out, map[string]any{"entries": entries}, len(entries))
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No changes recorded.")
				return nil
			}
			tbl := ui.NewTable(4)
			for _, e := range entries {
				key := e.Citekey
				if e.From != "" {
					key = e.From + " → " + e.Citekey
				}
				tbl.AddRow(
					ui.Muted.Render(e.Timestamp.Local().Format("2006-01-02 15:04")),
					e.Operation,
					ui.AccentBold.Render(key),
					cleanBraces(e.Title),
				)
			}
			fmt.Fprint(out, tbl.String())
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "Only show changes newer than this (e.g. 72h)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many of the latest changes")
	return cmd
}
