package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "campuseats",
		Short: "Terminal client for the CampusEats marketplace",
		Long: `campuseats is a terminal client for the CampusEats food-delivery
marketplace. It drives the same client core the web dashboards use:
session and cart state persist under a state directory, and two
concurrent invocations stay in sync through it.

Configuration (flags override environment, .env is loaded if present):

  CAMPUSEATS_API_URL    REST base URL    (default http://localhost:18090/api/v1)
  CAMPUSEATS_WS_URL     websocket URL    (default ws://localhost:18090/api/v1/ws)
  CAMPUSEATS_STATE_DIR  state directory  (default ~/.campuseats)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(
		loginCmd(),
		registerCmd(),
		logoutCmd(),
		meCmd(),
		passwdCmd(),
		cartCmd(),
		themeCmd(),
		listenCmd(),
		mockapiCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
