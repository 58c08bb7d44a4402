package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/codec"
	"github.com/aidanlsb/pubs/internal/paper"
	"github.com/aidanlsb/pubs/internal/ui"
)

func newEditCmd(s *state) *cobra.Command {
	var meta bool

	cmd := &cobra.Command{
		Use:   "edit <citekey>",
		Short: "Edit a paper's BibTeX entry or metadata",
		Long: `Opens the BibTeX entry (or, with --meta, the YAML metadata) of a paper in
the editor. Changing the key of the BibTeX entry renames the paper.

Examples:
  pubs edit Page99
  pubs edit Page99 --meta`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: s.completeCitekeys(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !s.canPrompt() {
				return fail(ErrInvalidInput, errors.New("edit needs an interactive terminal"), "")
			}
			repo := s.app.Repo
			p, err := repo.Pull(args[0])
			if err != nil {
				return fail("", err, "")
			}
			editor := s.app.Config.GetEditor()
			prompt := ui.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			out := cmd.OutOrStdout()

			if meta {
				original, err := codec.EncodeMeta(p.Meta)
				if err != nil {
					return fail("", err, "")
				}
				m, err := editUntilValid(prompt, editor, string(original), ".yaml", func(text string) (*paper.Metadata, error) {
					return codec.DecodeMeta([]byte(text))
				})
				if err != nil {
					return err
				}
				p.Meta = m
				if err := repo.Push(p, true); err != nil {
					return fail("", err, "")
				}
				fmt.Fprintln(out, ui.Successf("Updated metadata of %s", ui.Citekey(p.Citekey)))
				return nil
			}

			data, err := codec.EncodeBib(p.Citekey, p.Bib)
			if err != nil {
				return fail("", err, "")
			}
			original := string(data)
			rec, err := editUntilValid(prompt, editor, original, ".bib", parseEdited)
			if err != nil {
				return err
			}
			oldKey := p.Citekey
			newKey := rec.Key
			if newKey == "" {
				newKey = oldKey
			}
			p.Bib = rec.Entry
			renamed, err := repo.Rename(p, newKey, oldKey)
			if err != nil {
				return fail("", err, "")
			}
			if renamed {
				fmt.Fprintln(out, ui.Successf("Renamed %s to %s", oldKey, ui.Citekey(newKey)))
			} else {
				fmt.Fprintln(out, ui.Successf("Updated %s", ui.Citekey(newKey)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&meta, "meta", false, "Edit the metadata instead of the BibTeX entry")
	return cmd
}

// editUntilValid opens text in the editor until decode accepts the result or
// the user gives up.
func editUntilValid[T any](prompt *ui.Prompter, editor, text, suffix string, decode func(string) (T, error)) (T, error) {
	var zero T
	for {
		edited, err := ui.EditText(editor, text, suffix)
		if err != nil {
			return zero, fail("", err, "")
		}
		v, err := decode(edited)
		if err == nil {
			return v, nil
		}
		again, perr := prompt.Confirm(ui.Errorf("%v. Edit again?", err), true)
		if perr != nil || !again {
			return zero, fail(inputCode(err), err, "")
		}
		text = edited
	}
}
