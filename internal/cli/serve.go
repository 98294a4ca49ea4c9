package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/prithuhomes/customerportal/internal/config"
	"github.com/prithuhomes/customerportal/internal/server"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
		Long: `Start the portal HTTP server.

The server will:
  - Serve /api/customer/projects and /api/customer/data (also without /api)
  - Validate customer tokens against the configured identity provider
  - Query the data platform with the configured service identity
  - Load configuration from file, environment variables, and command-line flags

Configuration precedence (highest to lowest):
  1. Command-line flags
  2. Environment variables (PORTAL_*)
  3. Deployment environment variables (External_Issuer, Dataverse_Url, ...)
  4. Configuration file`,
		RunE: runServe,
	}

	cmd.Flags().String("fixtures", "", "answer outbound HTTP from a fixture file or directory (hermetic mode)")
	cmd.Flags().Duration("shutdown-timeout", 15*time.Second, "time allowed for in-flight requests on shutdown")
	config.RegisterFlags(cmd.Flags())

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration (file + env vars + flags)
	path := configPath()
	cfg, err := loadConfig(path, cmd)
	if err != nil {
		return err
	}

	if fixtures, _ := cmd.Flags().GetString("fixtures"); fixtures != "" {
		cfg.Fixtures = append(cfg.Fixtures, config.FixtureConfig{Type: "file", Path: fixtures})
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 2. Create provider to build all components from config
	provider := config.NewProvider(cfg)
	logger := provider.Logger()

	serverCfg, err := provider.ServerConfig()
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	// 3. Create and start server
	srv, err := server.New(serverCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("portal is running",
		"addr", srv.Addr(),
		"route_prefix", cfg.Server.RoutePrefix,
		"catalog_cache", cfg.CatalogCache.Type,
		"hermetic", len(cfg.Fixtures) > 0,
		"config", path,
	)

	// 4. Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Shutting down")

	// 5. Graceful shutdown
	timeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

func loadConfig(path string, cmd *cobra.Command) (*config.Config, error) {
	loader, err := config.NewLoaderWithFlags(path, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := loader.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
