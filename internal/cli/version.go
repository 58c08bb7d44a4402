package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/buildinfo"
)

func newVersionCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show pubs version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Current()
			out := cmd.OutOrStdout()
			if s.jsonOut() {
				return s.success(out, info, 0)
			}

			fmt.Fprintf(out, "pubs %s\n", info.Version)
			fmt.Fprintf(out, "module: %s\n", info.ModulePath)
			if info.Commit != "" {
				fmt.Fprintf(out, "commit: %s\n", info.Commit)
			}
			if info.CommitTime != "" {
				fmt.Fprintf(out, "commit_time: %s\n", info.CommitTime)
			}
			fmt.Fprintf(out, "go: %s\n", info.GoVersion)
			fmt.Fprintf(out, "platform: %s/%s\n", info.GOOS, info.GOARCH)
			fmt.Fprintf(out, "modified: %t\n", info.Modified)
			return nil
		},
	}
}
