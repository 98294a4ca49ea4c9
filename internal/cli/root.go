package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// NewRootCmd creates the root command for the portal
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "portal",
		Short: "portal - customer portal API over the CRM data platform",
		Long: `portal serves a customer's own CRM records to the customer portal frontend:
  1. Validates the customer's bearer token and required role
  2. Resolves the customer's contact record, linking it on first sign-in
  3. Queries the requested entity with a service identity, scoped to the contact

It also accepts the customer's project space selection and applies it after
checking that the project space belongs to the customer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: $PORTAL_CONFIG or ./configs/portal.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewCheckConfigCmd())
	rootCmd.AddCommand(NewFetchCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configPath resolves the config file path from the flag, the environment
// and the default, in that order
func configPath() string {
	if configFile != "" {
		return configFile
	}
	if path := os.Getenv("PORTAL_CONFIG"); path != "" {
		return path
	}
	return "./configs/portal.yaml"
}
