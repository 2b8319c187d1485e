package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jasonsandlin/xbox-live-api-go/internal/commands"
)

var version = "dev" // Will be set during build

func main() {
	rootCmd := &cobra.Command{
		Use:   "xblcall",
		Short: "Issue Xbox services calls through the resilient call engine",
		Long: `Sends a single logical call to an Xbox services endpoint with the same
retry, backoff and throttling behavior the client library applies.

Configuration is read from config.yaml (or --config) and XBL_* environment
variables.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		commands.NewCallCommand(),
		commands.NewVersionCommand(version),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
