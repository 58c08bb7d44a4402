// Package cli implements the pubs command-line interface.
package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/app"
	"github.com/aidanlsb/pubs/internal/ui"
)

// state is shared by every command of one invocation.
type state struct {
	opts app.Options
	app  *app.App

	// interactive reports whether prompts and editors may be used.
	interactive func() bool
	start       time.Time
}

// skipApp lists commands that run without an opened repository.
var skipApp = map[string]bool{
	"init": true, "version": true, "help": true, "completion": true,
	cobra.ShellCompRequestCmd: true, cobra.ShellCompNoDescRequestCmd: true,
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *state) {
	s := &state{interactive: ui.Interactive, start: time.Now()}

	root := &cobra.Command{
		Use:   "pubs",
		Short: "pubs - a flat-file bibliography manager",
		Long: `pubs keeps a bibliography as plain files: one BibTeX file and one YAML
metadata file per paper, plus optional documents and notes, all under a
single directory you can version, sync and edit by hand.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipApp[cmd.Name()] || (cmd.Parent() != nil && cmd.Parent().Name() == "completion") {
				return nil
			}
			return s.open(false)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.opts.ConfigPath, "config", "", "Path to config file (default $PUBS_CONFIG or ~/.config/pubs/config.toml)")
	flags.StringVar(&s.opts.RepoPath, "repo", "", "Repository directory (overrides pubsdir)")
	flags.BoolVar(&s.opts.JSON, "json", false, "Output in JSON format")
	flags.BoolVar(&s.opts.Debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newInitCmd(s),
		newAddCmd(s),
		newImportCmd(s),
		newExportCmd(s),
		newListCmd(s),
		newEditCmd(s),
		newTagCmd(s),
		newRenameCmd(s),
		newRemoveCmd(s),
		newDocCmd(s),
		newNoteCmd(s),
		newLogCmd(s),
		newVersionCmd(s),
	)
	return root, s
}

// Execute runs the CLI and reports a failure the way --json asks for.
func Execute() error {
	root, s := newRootCmd()
	cmd, err := execute(root, s)
	if err == nil {
		return nil
	}
	report(cmd, err)
	return err
}

// execute runs root and then closes the App, whether or not the command
// failed; cobra skips post-run hooks after an error.
func execute(root *cobra.Command, s *state) (*cobra.Command, error) {
	cmd, err := root.ExecuteC()
	if cerr := s.close(); err == nil {
		err = cerr
	}
	return cmd, err
}

func report(cmd *cobra.Command, err error) {
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		_ = writeJSON(cmd.OutOrStdout(), Response{
			OK: false,
			Error: &ErrorInfo{
				Code:       errorCode(err),
				Message:    err.Error(),
				Suggestion: suggestionFor(err),
			},
		})
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), ui.Error(err.Error()))
	if hint := suggestionFor(err); hint != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.Hint(hint))
	}
}

// open builds the App once. Completion functions call it lazily because
// cobra skips the pre-run hooks for them.
func (s *state) open(allowMissing bool) error {
	if s.app != nil {
		return nil
	}
	opts := s.opts
	opts.AllowMissing = allowMissing
	a, err := app.Load(opts)
	if err != nil {
		if errorCode(err) == ErrInternal {
			return fail(ErrConfigInvalid, err, "")
		}
		return err
	}
	s.app = a
	return nil
}

func (s *state) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	if err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}
	return nil
}

func (s *state) jsonOut() bool { return s.opts.JSON }

// canPrompt reports whether the user can be asked something.
func (s *state) canPrompt() bool {
	return !s.opts.JSON && s.interactive()
}

func (s *state) success(w io.Writer, data any, count int, warnings ...Warning) error {
	var meta *Meta
	if count > 0 {
		meta = &Meta{Count: count, QueryTimeMs: time.Since(s.start).Milliseconds()}
	}
	return writeJSON(w, Response{OK: true, Data: data, Warnings: warnings, Meta: meta})
}

// completeCitekeys completes citekey arguments up to position maxArgs; a
// negative maxArgs completes every position.
func (s *state) completeCitekeys(maxArgs int) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if maxArgs >= 0 && len(args) >= maxArgs {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		if err := s.open(false); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer s.close()
		keys, err := s.app.Repo.CitekeysWithPrefix(toComplete)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return keys, cobra.ShellCompDirectiveNoFileComp
	}
}

// splitList splits comma-separated flag values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
