package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/leakdesk/internal/version"
)

// NewVersionCmd creates the 'version' command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:  %s\n", version.Version)
			fmt.Fprintf(out, "Commit:   %s\n", version.Commit)
			fmt.Fprintf(out, "Built:    %s\n", version.BuildDate)
			fmt.Fprintf(out, "Go:       %s\n", version.GoVersion)
			return nil
		},
	}
}
