package cli

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/leakdesk/internal/version"
)

// NewRootCmd builds the leakdesk command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "leakdesk",
		Short: "Breach data dashboard API and Telegram bot",
		Long: `leakdesk fronts a leaked-accounts inventory API. Searches go to the
upstream API first and fall back to the backing database when it fails.

The same binary runs the dashboard API (serve) and the Telegram bot (bot).`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewBotCmd())
	root.AddCommand(NewVersionCmd())
	return root
}
