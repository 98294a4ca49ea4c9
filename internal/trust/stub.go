package trust

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prithuhomes/customerportal/internal/claims"
)

// StubValidator is a simple stub validator for testing.
// It maps tokens to fixed results; unknown tokens are rejected.
type StubValidator struct {
	mu      sync.RWMutex
	results map[string]*Result
	err     error
}

// NewStubValidator creates a new stub validator
func NewStubValidator() *StubValidator {
	return &StubValidator{
		results: make(map[string]*Result),
	}
}

// WithToken registers the claims returned for token
func (v *StubValidator) WithToken(token string, c claims.Claims) *StubValidator {
	v.mu.Lock()
	defer v.mu.Unlock()
	result := NewResult(c)
	result.ExpiresAt = time.Now().Add(time.Hour)
	v.results[token] = result
	return v
}

// WithError configures the stub to return an error for every token
func (v *StubValidator) WithError(err error) *StubValidator {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err
	return v
}

// Validate implements the Validator interface
func (v *StubValidator) Validate(ctx context.Context, token string) (*Result, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.err != nil {
		return nil, v.err
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	result, ok := v.results[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown stub token", ErrInvalidToken)
	}
	cp := *result
	cp.Claims = result.Claims.Copy()
	return &cp, nil
}
