package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/config"
	"github.com/aidanlsb/pubs/internal/ui"
)

func newInitCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a repository",
		Long: `Creates the repository layout (bib/, meta/, doc/, notes/, .cache/) in the
given directory, or in pubsdir from the config. A default config file is
written if none exists yet.

Examples:
  pubs init
  pubs init ~/papers`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := config.ResolvePath(s.opts.ConfigPath)
			if len(args) == 1 {
				dir, err := config.ExpandHome(args[0])
				if err != nil {
					return fail(ErrInvalidInput, err, "")
				}
				s.opts.RepoPath = dir
			}

			if err := s.open(true); err != nil {
				return err
			}
			repo := s.app.Repo
			existed := s.app.Files.IsRepository()
			if err := repo.Init(); err != nil {
				return fail(ErrInternal, err, "")
			}

			wroteConfig, err := config.CreateDefault(configPath, repo.Root())
			if err != nil {
				return fail(ErrConfigInvalid, err, "")
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				return s.success(out, map[string]any{
					"path":           repo.Root(),
					"created":        !existed,
					"config":         configPath,
					"config_created": wroteConfig,
				}, 0)
			}
			if existed {
				fmt.Fprintln(out, ui.Infof("Repository already exists at %s", ui.FilePath(repo.Root())))
			} else {
				fmt.Fprintln(out, ui.Successf("Initialized repository at %s", ui.FilePath(repo.Root())))
			}
			if wroteConfig {
				fmt.Fprintln(out, ui.Hint("Wrote config to "+configPath))
			} else if s.opts.RepoPath != "" && s.app.Config.Main.PubsDir != repo.Root() {
				fmt.Fprintln(out, ui.Hint(fmt.Sprintf("Set pubsdir = %q in %s to use it by default", repo.Root(), configPath)))
			}
			return nil
		},
	}
}
