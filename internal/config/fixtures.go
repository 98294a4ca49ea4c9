package config

import (
	"fmt"

	"github.com/prithuhomes/customerportal/internal/httpfixture"
)

// BuildFixtureProvider creates an HTTP fixture provider from fixture configurations
// Returns nil if no fixtures are configured (normal production mode).
// Inline http_rule fixtures are matched before fixture files, in order.
func BuildFixtureProvider(fixtures []FixtureConfig) (httpfixture.FixtureProvider, error) {
	if len(fixtures) == 0 {
		return nil, nil
	}

	var rules []httpfixture.HTTPFixtureRule
	var files httpfixture.Chain
	for _, f := range fixtures {
		switch f.Type {
		case "http_rule", "":
			rules = append(rules, httpfixture.HTTPFixtureRule{
				Request: httpfixture.FixtureRequest{
					Method:  f.Request.Method,
					URL:     f.Request.URL,
					URLType: f.Request.URLType,
					Path:    f.Request.Path,
					Query:   f.Request.Query,
					Headers: f.Request.Headers,
				},
				Response: httpfixture.Fixture{
					StatusCode: f.Response.StatusCode,
					Headers:    f.Response.Headers,
					Body:       f.Response.Body,
				},
			})
		case "file":
			loaded, err := httpfixture.Load(f.Path)
			if err != nil {
				return nil, err
			}
			files = append(files, loaded)
		default:
			return nil, fmt.Errorf("unknown fixture type %q (use http_rule or file)", f.Type)
		}
	}

	var chain httpfixture.Chain
	if len(rules) > 0 {
		chain = append(chain, httpfixture.NewRuleBasedProvider(rules))
	}
	chain = append(chain, files...)

	if len(chain) == 0 {
		return nil, nil
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}
