// Package portalclient is a Go client of the customer portal API, used by
// the CLI and by tests of a running portal.
package portalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultEntities are loaded by FetchAll when no entities are given. They
// match the stock entity keys.
var DefaultEntities = []string{
	"projects",
	"related",
	"customeragreements",
	"paymentmilestones",
	"paymenttransactions",
	"projectspaces",
	"productaccess",
	"productselection",
}

// DefaultSubmitEntity is the stock key of the project space selection update
const DefaultSubmitEntity = "projectspaceselection"

// maxConcurrentFetches bounds FetchAll
const maxConcurrentFetches = 4

// Client calls the portal API with a user's bearer token
type Client struct {
	// BaseURL is the portal origin plus route prefix,
	// e.g. "https://portal.example.com/api"
	BaseURL string

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client
}

// APIError is an error response of the portal
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal returned %d: %s", e.StatusCode, e.Message)
}

// Selection is the body of a project space selection update. ProductSetID
// is only sent with selection 2.
type Selection struct {
	ProjectSpaceID    string `json:"projectSpaceId"`
	CustomerSelection int    `json:"customerSelection"`
	ProductSetID      string `json:"productSetId,omitempty"`
}

// Fetch returns the raw JSON of one entity
func (c *Client) Fetch(ctx context.Context, token, entity string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, token, entity, nil)
}

// FetchAll loads the given entities concurrently, or DefaultEntities when
// none are given. The first failure cancels the remaining requests.
func (c *Client) FetchAll(ctx context.Context, token string, entities ...string) (map[string]json.RawMessage, error) {
	if len(entities) == 0 {
		entities = DefaultEntities
	}

	var mu sync.Mutex
	results := make(map[string]json.RawMessage, len(entities))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, entity := range entities {
		entity := entity
		g.Go(func() error {
			body, err := c.Fetch(ctx, token, entity)
			if err != nil {
				return fmt.Errorf("%s: %w", entity, err)
			}
			mu.Lock()
			results[entity] = body
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SubmitProjectSpaceSelection posts a selection update to entity, or to
// DefaultSubmitEntity when entity is blank
func (c *Client) SubmitProjectSpaceSelection(ctx context.Context, token, entity string, sel Selection) error {
	if entity == "" {
		entity = DefaultSubmitEntity
	}
	body, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, token, entity, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to decode update result: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("portal did not confirm the update")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, token, entity string, body []byte) (json.RawMessage, error) {
	target := strings.TrimRight(c.BaseURL, "/") + "/customer/data?entity=" + url.QueryEscape(entity)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return nil, apiErr
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("portal returned invalid JSON")
	}
	return json.RawMessage(data), nil
}
