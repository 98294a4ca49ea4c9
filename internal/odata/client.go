package odata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultAPIPath is the Web API path appended to the environment URL.
const DefaultAPIPath = "/api/data/v9.2"

// FormattedValuePreference asks the server to annotate coded columns with
// their display labels.
const FormattedValuePreference = `odata.include-annotations="OData.Community.Display.V1.FormattedValue"`

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 64 << 10

// ClientConfig configures a Client.
type ClientConfig struct {
	// URL is the environment URL, e.g. https://org.crm.dynamics.com
	URL string

	// APIPath defaults to DefaultAPIPath
	APIPath string

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client issues reads and partial updates against the data platform's OData
// endpoint. Every call carries the service identity token it is given.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the environment at cfg.URL.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("data platform url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid data platform url %q: %w", base, err)
	}

	apiPath := cfg.APIPath
	if apiPath == "" {
		apiPath = DefaultAPIPath
	}
	if !strings.HasPrefix(apiPath, "/") {
		apiPath = "/" + apiPath
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    base + strings.TrimRight(apiPath, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// URL returns the absolute URL q is sent to
func (c *Client) URL(q Query) string {
	u := c.baseURL + "/" + q.Table
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// Query runs q and returns its rows. A response without a "value" array is
// logged and treated as empty. A non-2xx status returns a *StatusError.
func (c *Client) Query(ctx context.Context, token string, q Query) (Rows, error) {
	requestURL := c.URL(q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, token)
	req.Header.Set("Prefer", FormattedValuePreference)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("query %s: failed to read response: %w", q.Table, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.ErrorContext(ctx, "Data platform GET failed",
			"url", requestURL,
			"status", resp.StatusCode,
			"error", truncate(body))
		return nil, &StatusError{
			Method:     http.MethodGet,
			URL:        requestURL,
			StatusCode: resp.StatusCode,
			Body:       truncate(body),
		}
	}

	rows, ok, err := decodeValue(body)
	if err != nil {
		return nil, fmt.Errorf("query %s: failed to decode response: %w", q.Table, err)
	}
	if !ok {
		c.logger.WarnContext(ctx, "Data platform payload missing value array",
			"table", q.Table,
			"url", requestURL)
	}
	return rows, nil
}

// Patch sends a partial update of the row with the given primary key.
func (c *Client) Patch(ctx context.Context, token, table, id string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal patch body: %w", err)
	}

	requestURL := c.baseURL + "/" + table + "(" + url.PathEscape(id) + ")"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, requestURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("patch %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     http.MethodPatch,
			URL:        requestURL,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("OData-MaxVersion", "4.0")
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}

// StatusError is returned when the data platform answers with a non-success
// status. Body holds the (possibly truncated) response body.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("data platform %s %s failed with status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
