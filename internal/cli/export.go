package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/atomicfile"
	"github.com/aidanlsb/pubs/internal/codec"
	"github.com/aidanlsb/pubs/internal/ui"
)

func newExportCmd(s *state) *cobra.Command {
	var (
		q      queryFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "export [query]...",
		Short: "Export papers as BibTeX",
		Long: `Writes the BibTeX entries of the papers matching the query (all papers
when none is given) to stdout or to --output.

Examples:
  pubs export > library.bib
  pubs export tag:thesis -o thesis.bib`,
		RunE: func(cmd *cobra.Command, args []string) error {
			papers, err := q.selectPapers(s, args)
			if err != nil {
				return err
			}

			records := make([]codec.Record, len(papers))
			for i, p := range papers {
				records[i] = codec.Record{Key: p.Citekey, Entry: p.Bib}
			}
			data, err := codec.EncodeBibs(records)
			if err != nil {
				return fail("", err, "")
			}

			if output == "" || output == "-" {
				if s.jsonOut() {
					return s.success(cmd.OutOrStdout(), map[string]any{"bibtex": string(data)}, len(records))
				}
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return fail("", err, "")
			}
			if err := atomicfile.WriteFile(s.app.Store.Fs(), output, data, 0o644); err != nil {
				return fail("", err, "")
			}
			if s.jsonOut() {
				return s.success(cmd.OutOrStdout(), map[string]any{"path": output}, len(records))
			}
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Successf("Exported %s to %s", ui.Count(len(records), "paper", "papers"), ui.FilePath(output)))
			return nil
		},
	}

	q.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}
