package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nishant-jng/shopify-backend-sub000/internal/cli"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "portalctl",
		Short:   "Operator tooling for the merchant portal",
		Version: version,
		Long: `portalctl runs schema migrations, manages per-buyer invoice series,
and signs back-office tokens. It reads the same environment as the server.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.SeriesCmd())
	rootCmd.AddCommand(cli.TokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
