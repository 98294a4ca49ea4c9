package servicetoken

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
)

// StubSource is a Source for testing. It hands out numbered tokens
// ("stub-token-1", "stub-token-2", ...) that expire after TTL.
type StubSource struct {
	TTL time.Duration
	Now func() time.Time

	calls atomic.Int32

	mu  sync.Mutex
	err error
}

// NewStubSource creates a stub whose tokens live for ttl
func NewStubSource(ttl time.Duration) *StubSource {
	return &StubSource{TTL: ttl, Now: time.Now}
}

// WithError makes every fetch fail with err (wrapped in ErrUnavailable)
func (s *StubSource) WithError(err error) *StubSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Calls returns how many tokens have been requested
func (s *StubSource) Calls() int {
	return int(s.calls.Load())
}

// FetchToken implements Source
func (s *StubSource) FetchToken(ctx context.Context) (*oauth2.Token, error) {
	n := s.calls.Add(1)

	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tok := &oauth2.Token{
		AccessToken: fmt.Sprintf("stub-token-%d", n),
		TokenType:   "Bearer",
	}
	if s.TTL > 0 {
		tok.Expiry = s.Now().Add(s.TTL)
	}
	return tok, nil
}

// Token implements Acquirer
func (s *StubSource) Token(ctx context.Context) (string, error) {
	tok, err := s.FetchToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
