package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/paper"
	"github.com/aidanlsb/pubs/internal/ui"
)

func noteTemplate(p *paper.Paper) string {
	title := p.Bib.Title()
	if title == "" {
		title = p.Citekey
	}
	return fmt.Sprintf("# %s\n\n", cleanBraces(title))
}

func newNoteCmd(s *state) *cobra.Command {
	var printNote bool

	cmd := &cobra.Command{
		Use:   "note <citekey>",
		Short: "Edit or print a paper's note",
		Long: `Opens the note of a paper in the editor, creating it from the title when
it does not exist yet. With --print the note is rendered to the terminal.

Examples:
  pubs note Page99
  pubs note Page99 --print`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: s.completeCitekeys(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := s.app.Repo
			store := s.app.Store
			p, err := repo.Pull(args[0])
			if err != nil {
				return fail("", err, "")
			}
			path := repo.NoteRealPath(p.Citekey)
			out := cmd.OutOrStdout()

			if printNote || s.jsonOut() {
				data, err := store.Read(path)
				if err != nil {
					if errors.Is(err, fs.ErrNotExist) {
						return fail(ErrFileNotFound, fmt.Errorf("%s has no note", p.Citekey), "Run 'pubs note "+p.Citekey+"' to write one")
					}
					return fail("", err, "")
				}
				if s.jsonOut() {
					return s.success(out, map[string]any{"citekey": p.Citekey, "path": path, "content": string(data)}, 0)
				}
				screen := ui.Stdout()
				rendered, err := ui.RenderMarkdown(string(data), screen.Width, screen.Color)
				if err != nil {
					return fail("", err, "")
				}
				fmt.Fprint(out, rendered)
				return nil
			}

			if !store.Exists(path) {
				if err := store.Write(path, []byte(noteTemplate(p))); err != nil {
					return fail("", err, "")
				}
			}
			if err := ui.EditFile(s.app.Config.GetEditor(), path); err != nil {
				return fail("", err, "")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&printNote, "print", "p", false, "Render the note instead of editing it")
	return cmd
}
