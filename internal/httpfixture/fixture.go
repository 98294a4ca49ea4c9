// Package httpfixture answers outbound HTTP requests from canned responses.
// Tests use it to stand in for the identity provider and the data platform;
// `portal serve --fixtures` uses it to run without either.
package httpfixture

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Fixture defines an HTTP response to return for requests
type Fixture struct {
	StatusCode int               `json:"status" yaml:"status"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       string            `json:"body" yaml:"body"`
	Delay      *time.Duration    `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// FixtureProvider returns a fixture for a request, or nil if no fixture applies
type FixtureProvider interface {
	GetFixture(req *http.Request) *Fixture
}

// HTTPFixtureRule defines request criteria and corresponding response (for file-based fixtures)
type HTTPFixtureRule struct {
	Request  FixtureRequest `json:"request" yaml:"request"`
	Response Fixture        `json:"response" yaml:"response"`
}

// FixtureRequest defines request matching criteria. Empty criteria match
// anything.
type FixtureRequest struct {
	Method  string            `json:"method" yaml:"method"`                         // e.g., "GET", "PATCH", "*" for any
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`           // full URL, exact or pattern
	URLType string            `json:"url_type,omitempty" yaml:"url_type,omitempty"` // "exact" (default) or "pattern"
	Path    string            `json:"path,omitempty" yaml:"path,omitempty"`         // URL path suffix, e.g. "/contacts"
	Query   map[string]string `json:"query,omitempty" yaml:"query,omitempty"`       // decoded query parameters, e.g. "$filter"
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`   // optional header matching
}

// FixtureSet is a collection of fixture rules (for file loading)
type FixtureSet struct {
	Rules []HTTPFixtureRule `json:"fixtures" yaml:"fixtures"`
}

// JSON returns a fixture with the given status whose body is v encoded as JSON.
// It panics if v cannot be encoded, which only happens with test input.
func JSON(status int, v any) *Fixture {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("httpfixture: cannot encode body: %v", err))
	}
	return &Fixture{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       string(body),
	}
}
