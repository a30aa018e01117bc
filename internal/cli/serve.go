package cli

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/leakdesk/internal/app"
)

// NewServeCmd creates the 'serve' command
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard JSON API",
		Long: `Start the HTTP server: login, fallback search, upstream proxies,
statistics, leak logs and the health probes. Requires the database,
the upstream API address and Redis for sessions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.NewDashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
}
