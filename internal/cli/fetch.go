package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/prithuhomes/customerportal/internal/portalclient"
)

// NewFetchCmd creates the fetch command
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch entities from a running portal",
		Long: `Fetch entities from a running portal with a customer token and print them as
one JSON object keyed by entity. Without --entity every stock entity is loaded
concurrently.`,
		RunE: runFetch,
	}

	cmd.Flags().String("url", "http://localhost:8080/api", "portal base URL including the route prefix")
	cmd.Flags().String("token", "", "customer bearer token (default: $PORTAL_TOKEN)")
	cmd.Flags().StringSlice("entity", nil, "entity to fetch; repeatable")
	cmd.Flags().Duration("timeout", 30*time.Second, "request timeout")

	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	token, _ := cmd.Flags().GetString("token")
	entities, _ := cmd.Flags().GetStringSlice("entity")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if token == "" {
		token = os.Getenv("PORTAL_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("a token is required (--token or PORTAL_TOKEN)")
	}

	client := &portalclient.Client{BaseURL: baseURL}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	results, err := client.FetchAll(ctx, token, entities...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
