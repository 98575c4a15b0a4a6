package main // Entry point package

import (
	"os" // exit status

	"github.com/spf13/cobra" // command line interface
)

var rootCmd = &cobra.Command{
	Use:   "ggame-gateway",
	Short: "Session gateway between the ggame mini-app and the game backend",
	Long: `ggame-gateway resolves the player behind a mini-app launch, keeps the
credential the backend expects, and serves the view state the renderer draws.

Running it without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, resolveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
