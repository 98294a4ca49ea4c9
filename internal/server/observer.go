package server

import "context"

// RequestInfo describes an incoming portal request
type RequestInfo struct {
	RequestID string
	Method    string
	Path      string
	Entity    string
}

// Observer is notified of every portal request and returns a probe scoped
// to it. Implementations must be safe for concurrent use.
type Observer interface {
	RequestStarted(ctx context.Context, info RequestInfo) (context.Context, RequestProbe)
}

// RequestProbe receives the pipeline events of a single request
type RequestProbe interface {
	// TokenRejected is called when the bearer token is absent or invalid
	TokenRejected(reason string, err error)
	RoleMissing(role string)
	IdentityMissing()
	ServiceTokenFailed(err error)
	ContactResolved(objectID, contactID string)
	ContactNotFound(objectID string)
	// EntityServed is called once the entity handler succeeded
	EntityServed(entity string, count int)
	// RequestFailed is called for every error response past authentication
	RequestFailed(status int, err error)
	End()
}

// NoopObserver discards all events
type NoopObserver struct{}

func (NoopObserver) RequestStarted(ctx context.Context, _ RequestInfo) (context.Context, RequestProbe) {
	return ctx, noopProbe{}
}

type noopProbe struct{}

func (noopProbe) TokenRejected(string, error) {}
func (noopProbe) RoleMissing(string) {}
func (noopProbe) IdentityMissing() {}
func (noopProbe) ServiceTokenFailed(error) {}
func (noopProbe) ContactResolved(string, string) {}
func (noopProbe) ContactNotFound(string) {}
func (noopProbe) EntityServed(string, int) {}
func (noopProbe) RequestFailed(int, error) {}
func (noopProbe) End() {}
