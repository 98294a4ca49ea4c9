package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prithuhomes/customerportal/internal/config"
	"github.com/prithuhomes/customerportal/internal/portal"
)

// NewCheckConfigCmd creates the check-config command
func NewCheckConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate configuration",
		Long: `Load configuration the way serve does, validate it, and print the entity
keys accepted by /customer/data. Nothing is contacted.`,
		RunE: runCheckConfig,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runCheckConfig(cmd *cobra.Command, args []string) error {
	path := configPath()
	cfg, err := loadConfig(path, cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dispatch, err := portal.NewDispatchTable(cfg.EntityKeys())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config:        %s\n", path)
	fmt.Fprintf(out, "data platform: %s\n", cfg.Dataverse.URL)
	fmt.Fprintf(out, "issuer:        %s\n", cfg.External.Issuer)
	if cfg.External.RequiredRole != "" {
		fmt.Fprintf(out, "required role: %s\n", cfg.External.RequiredRole)
	} else {
		fmt.Fprintln(out, "required role: (not checked)")
	}
	fmt.Fprintf(out, "entities:      %s\n", strings.Join(dispatch.SupportedKeys(), ", "))
	return nil
}
