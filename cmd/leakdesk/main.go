/*
leakdesk serves the breach data dashboard API and runs the companion
Telegram bot.

Usage:

	leakdesk serve     run the dashboard JSON API
	leakdesk bot       run the Telegram bot and its background jobs
	leakdesk version   print build information

Configuration is read from LEAKDESK_* environment variables and an
optional .env file in the working directory.
*/
package main

import (
	"fmt"
	"os"

	"github.com/MrSnakeDoc/leakdesk/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ leakdesk: %v\n", err)
		os.Exit(1)
	}
}
