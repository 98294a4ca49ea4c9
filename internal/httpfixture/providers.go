package httpfixture

import (
	"net/http"
	"regexp"
	"strings"
)

// RuleBasedProvider matches requests against a set of rules. The first
// matching rule wins.
type RuleBasedProvider struct {
	rules    []HTTPFixtureRule
	patterns []*regexp.Regexp
}

// NewRuleBasedProvider creates a new rule-based fixture provider. Rules with
// an invalid URL pattern never match.
func NewRuleBasedProvider(rules []HTTPFixtureRule) *RuleBasedProvider {
	patterns := make([]*regexp.Regexp, len(rules))
	for i, rule := range rules {
		if rule.Request.URLType == "pattern" {
			patterns[i], _ = regexp.Compile(rule.Request.URL)
		}
	}
	return &RuleBasedProvider{rules: rules, patterns: patterns}
}

// Len returns the number of rules
func (p *RuleBasedProvider) Len() int {
	return len(p.rules)
}

// GetFixture returns a fixture for the given request if any rule matches
func (p *RuleBasedProvider) GetFixture(req *http.Request) *Fixture {
	for i := range p.rules {
		if p.matches(req, i) {
			return &p.rules[i].Response
		}
	}
	return nil
}

// matches checks if a request matches rule i
func (p *RuleBasedProvider) matches(req *http.Request, i int) bool {
	criteria := p.rules[i].Request

	if criteria.Method != "*" && criteria.Method != "" && !strings.EqualFold(req.Method, criteria.Method) {
		return false
	}

	if criteria.URL != "" {
		if criteria.URLType == "pattern" {
			if p.patterns[i] == nil || !p.patterns[i].MatchString(req.URL.String()) {
				return false
			}
		} else if req.URL.String() != criteria.URL {
			return false
		}
	}

	if criteria.Path != "" && !strings.HasSuffix(req.URL.Path, criteria.Path) {
		return false
	}

	if len(criteria.Query) > 0 {
		query := req.URL.Query()
		for key, value := range criteria.Query {
			if query.Get(key) != value {
				return false
			}
		}
	}

	for key, value := range criteria.Headers {
		if req.Header.Get(key) != value {
			return false
		}
	}

	return true
}

// FuncProvider uses a function to provide fixtures (most flexible)
type FuncProvider struct {
	fn func(*http.Request) *Fixture
}

// NewFuncProvider creates a new function-based fixture provider
func NewFuncProvider(fn func(*http.Request) *Fixture) *FuncProvider {
	return &FuncProvider{fn: fn}
}

// GetFixture returns a fixture by calling the provided function
func (p *FuncProvider) GetFixture(req *http.Request) *Fixture {
	return p.fn(req)
}

// Chain asks each provider in turn and returns the first fixture found
type Chain []FixtureProvider

// GetFixture implements FixtureProvider
func (c Chain) GetFixture(req *http.Request) *Fixture {
	for _, p := range c {
		if f := p.GetFixture(req); f != nil {
			return f
		}
	}
	return nil
}
