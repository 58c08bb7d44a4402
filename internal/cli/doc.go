package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/repository"
	"github.com/aidanlsb/pubs/internal/ui"
)

func newDocCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage attached documents",
		Long: `Attach, detach, open or export the document (PDF, ...) of a paper.
Attached documents are copied, moved or linked into the documents directory
depending on doc_add in the config or --mode.`,
	}
	cmd.AddCommand(
		newDocAddCmd(s),
		newDocRemoveCmd(s),
		newDocOpenCmd(s),
		newDocExportCmd(s),
	)
	return cmd
}

func newDocAddCmd(s *state) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "add <citekey> <file>",
		Short: "Attach a document",
		Long: `Attaches a file to a paper, replacing a previously managed document.

Examples:
  pubs doc add Page99 ~/Downloads/pagerank.pdf
  pubs doc add Page99 ~/papers/pagerank.pdf --mode link`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return s.completeCitekeys(1)(cmd, args, toComplete)
			}
			return nil, cobra.ShellCompDirectiveDefault
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			m := s.app.DocMode()
			if mode != "" {
				var err error
				if m, err = repository.ParseDocMode(mode); err != nil {
					return fail(ErrInvalidInput, err, "")
				}
			}
			path, err := s.app.Repo.PushDoc(args[0], args[1], m)
			if err != nil {
				return fail("", err, "")
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				return s.success(out, map[string]any{"citekey": args[0], "docfile": path, "mode": m}, 0)
			}
			fmt.Fprintln(out, ui.Successf("Attached %s to %s (%s)", ui.FilePath(path), ui.Citekey(args[0]), m))
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "copy, move or link (default from config)")
	return cmd
}

func newDocRemoveCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:               "remove <citekey>",
		Aliases:           []string{"rm"},
		Short:             "Detach a paper's document",
		Long:              `Detaches the document of a paper. Managed documents are deleted; linked ones are left in place.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: s.completeCitekeys(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			had, err := s.app.Repo.RemoveDoc(args[0])
			if err != nil {
				return fail("", err, "")
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				var warnings []Warning
				if !had {
					warnings = append(warnings, Warning{Code: WarnNoDocument, Message: "no document attached", Citekey: args[0]})
				}
				return s.success(out, map[string]any{"citekey": args[0], "removed": had}, 0, warnings...)
			}
			if !had {
				fmt.Fprintln(out, ui.Hint(args[0]+" has no document"))
				return nil
			}
			fmt.Fprintln(out, ui.Successf("Detached the document of %s", ui.Citekey(args[0])))
			return nil
		},
	}
}

// docPath returns the real path of k's document, failing when none exists.
func docPath(s *state, k string) (string, error) {
	p, err := s.app.Repo.Pull(k)
	if err != nil {
		return "", fail("", err, "")
	}
	path := s.app.Repo.DocRealPath(p)
	if path == "" {
		return "", fail(ErrFileNotFound, fmt.Errorf("%s has no document", k), "Attach one with 'pubs doc add'")
	}
	if !s.app.Store.Exists(path) {
		return "", fail(ErrFileNotFound, fmt.Errorf("document of %s is missing: %s", k, path), "")
	}
	return path, nil
}

func newDocOpenCmd(s *state) *cobra.Command {
	var with string

	cmd := &cobra.Command{
		Use:               "open <citekey>",
		Short:             "Open a paper's document",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: s.completeCitekeys(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := docPath(s, args[0])
			if err != nil {
				return err
			}
			if s.jsonOut() {
				return s.success(cmd.OutOrStdout(), map[string]any{"citekey": args[0], "path": path}, 0)
			}
			opener := with
			if opener == "" {
				opener = s.app.Config.Main.OpenCmd
			}
			if err := ui.OpenFile(opener, path); err != nil {
				return fail("", err, "")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&with, "with", "", "Program to open the document with (default open_cmd)")
	return cmd
}

func newDocExportCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "export <citekey> <directory>",
		Short: "Copy a paper's document out of the repository",
		Long: `Copies the document to <directory>/<citekey><ext>.

Examples:
  pubs doc export Page99 ~/Desktop`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return s.completeCitekeys(1)(cmd, args, toComplete)
			}
			return nil, cobra.ShellCompDirectiveFilterDirs
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			k := args[0]
			src, err := docPath(s, k)
			if err != nil {
				return err
			}
			dir := s.app.Store.Resolve(args[1])
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fail(ErrFileNotFound, errors.New("not a directory: "+args[1]), "")
			}
			dest := filepath.Join(dir, k+filepath.Ext(src))
			if s.app.Store.Exists(dest) {
				return fail(ErrFileExists, fmt.Errorf("%s already exists", dest), "")
			}

			data, err := s.app.Store.Read(src)
			if err != nil {
				return fail("", err, "")
			}
			if err := s.app.Store.Write(dest, data); err != nil {
				return fail("", err, "")
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				return s.success(out, map[string]any{"citekey": k, "path": dest}, 0)
			}
			fmt.Fprintln(out, ui.Successf("Exported %s", ui.FilePath(dest)))
			return nil
		},
	}
}
