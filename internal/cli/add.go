package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/codec"
	"github.com/aidanlsb/pubs/internal/paper"
	"github.com/aidanlsb/pubs/internal/repository"
	"github.com/aidanlsb/pubs/internal/ui"
)

func newAddCmd(s *state) *cobra.Command {
	var (
		bibFile string
		key     string
		docFile string
		docMode string
		tags    []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a paper",
		Long: `Adds a paper from a BibTeX file holding one entry. Without --bibfile an
editor opens on a template.

The citekey is, in order: --citekey, the key in the BibTeX entry, or one
generated from the first author and year. A taken key gets a suffix
(Doe2013 becomes Doe2013a).

Examples:
  pubs add -b turing.bib -t ai,classic
  pubs add -b page.bib -d ~/Downloads/pagerank.pdf --doc-mode move
  curl -s https://doi.org/... | pubs add -b -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := s.app.Repo

			var record codec.Record
			switch {
			case bibFile != "":
				data, err := readSource(bibFile, cmd.InOrStdin())
				if err != nil {
					return fail(ErrFileNotFound, err, "")
				}
				if record, err = parseNew(string(data)); err != nil {
					return fail(inputCode(err), fmt.Errorf("%s: %w", bibFile, err), "")
				}
			case s.canPrompt():
				text, err := ui.EditText(s.app.Config.GetEditor(), bibTemplate, ".bib")
				if err != nil {
					return fail("", err, "")
				}
				if text == bibTemplate {
					return fail(ErrCancelled, errors.New("entry unchanged, nothing added"), "")
				}
				if record, err = parseNew(text); err != nil {
					return fail(inputCode(err), err, "")
				}
			default:
				return fail(ErrMissingArgument, errors.New("no entry given"), "Pass a BibTeX file with --bibfile (use - for stdin)")
			}

			k, changed, err := resolveCitekey(repo, key, record.Key, record.Entry)
			if err != nil {
				return fail("", err, "")
			}

			p := paper.New(k, record.Entry)
			p.Meta.SetTags(splitList(tags))
			if err := repo.Push(p, false); err != nil {
				return fail("", err, "")
			}

			var warnings []Warning
			if changed && record.Key != "" {
				warnings = append(warnings, Warning{
					Code:    WarnCitekeyChange,
					Message: fmt.Sprintf("citekey %s is taken or invalid, stored as %s", record.Key, k),
					Citekey: k,
				})
			}

			var docPath string
			if docFile != "" {
				mode := s.app.DocMode()
				if docMode != "" {
					if mode, err = repository.ParseDocMode(docMode); err != nil {
						return fail(ErrInvalidInput, err, "")
					}
				}
				if docPath, err = repo.PushDoc(k, docFile, mode); err != nil {
					return fail("", fmt.Errorf("paper %s added, but attaching the document failed: %w", k, err), "")
				}
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				stored, err := repo.Pull(k)
				if err != nil {
					return fail("", err, "")
				}
				return s.success(out, paperJSON(stored), 0, warnings...)
			}
			for _, w := range warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), ui.Warning(w.Message))
			}
			fmt.Fprintln(out, ui.Successf("Added %s", ui.PaperLine(p, s.app.Config.Main.MaxAuthors)))
			if docPath != "" {
				fmt.Fprintln(out, ui.Hint("  document: "+docPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&bibFile, "bibfile", "b", "", "BibTeX file with one entry (- for stdin)")
	cmd.Flags().StringVarP(&key, "citekey", "k", "", "Citekey to store the paper under")
	cmd.Flags().StringVarP(&docFile, "docfile", "d", "", "Document to attach")
	cmd.Flags().StringVarP(&docMode, "doc-mode", "m", "", "How to attach the document: copy, move or link (default from config)")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Comma-separated tags")
	_ = cmd.RegisterFlagCompletionFunc("doc-mode", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(repository.DocCopy), string(repository.DocMove), string(repository.DocLink)}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
