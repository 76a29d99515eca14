// Command sessiond serves a small session-backed HTTP application on top of
// the session package. It doubles as a reference wiring of every store
// backend, the cache layer and the operational endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sessiond",
		Short: "Session-backed HTTP service",
		Long: `sessiond serves a visit counter backed by server-side sessions.

Sessions live in memory, Redis or PostgreSQL (SESSION_STORE) behind a
local read-through cache. Configuration is read from the environment and
an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(),
		keygenCmd(),
		versionCmd(),
	)

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sessiond %s (%s)\n", version, commit)
		},
	}
}
