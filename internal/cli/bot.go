package cli

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/leakdesk/internal/app"
)

// NewBotCmd creates the 'bot' command
func NewBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Long: `Start the Telegram bot with the service monitor, the daily report
and the idle session sweeper. Needs LEAKDESK_BOT_TOKEN and
LEAKDESK_BOT_SECRET. Redis is used when reachable to keep sessions
and report subscriptions across restarts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.NewBotApp(cmd.Context())
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
}
