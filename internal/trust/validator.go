package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prithuhomes/customerportal/internal/claims"
)

// Common validation errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")

	// ErrPolicyMismatch means the token was issued under a different sign-in policy
	ErrPolicyMismatch = errors.New("token policy mismatch")

	// ErrRoleMissing means the token is valid but lacks the required role
	ErrRoleMissing = errors.New("required role missing")

	// ErrMissingIdentity means no object id could be derived from the token
	ErrMissingIdentity = errors.New("token has no identity claim")
)

// Validator validates an end-user bearer token and returns claims about the authenticated subject
type Validator interface {
	// Validate checks signature, issuer, audience, lifetime and policy.
	// Role and identity requirements are checked separately with RequireRole
	// and RequireIdentity so callers can report them differently.
	Validate(ctx context.Context, token string) (*Result, error)
}

// Result contains the validated information about the subject
type Result struct {
	// Subject is the "sub" claim
	Subject string

	// ObjectID is the first non-blank of the object id claims. It may be
	// empty; see RequireIdentity.
	ObjectID string

	// Email is the first non-blank email-like claim, or empty
	Email string

	// Policy is the "tfp" claim, falling back to "acr"
	Policy string

	// Issuer is the issuer of the token
	Issuer string

	// Audience is the intended audience of the token
	Audience []string

	// Claims are all claims from the token
	Claims claims.Claims

	// ExpiresAt is when the token expires
	ExpiresAt time.Time

	// IssuedAt is when the token was issued
	IssuedAt time.Time
}

// NewResult derives the identity fields of a Result from a claim set.
func NewResult(c claims.Claims) *Result {
	return &Result{
		Subject:  c.GetString(claims.Subject),
		ObjectID: c.FirstString(claims.ObjectIDClaims...),
		Email:    c.FirstString(claims.EmailClaims...),
		Policy:   c.FirstString(claims.PolicyClaims...),
		Claims:   c,
	}
}

// Roles returns the flattened role values of the token
func (r *Result) Roles() []string {
	set := r.Claims.RoleSet()
	roles := make([]string, 0, len(set))
	for role := range set {
		roles = append(roles, role)
	}
	return roles
}

// RequireRole returns ErrRoleMissing unless the result carries role. Roles
// compare case-insensitively and a blank role always passes.
func RequireRole(r *Result, role string) error {
	if r == nil || !r.Claims.HasRole(role) {
		return fmt.Errorf("%w: %s", ErrRoleMissing, role)
	}
	return nil
}

// RequireIdentity returns ErrMissingIdentity when the result has no object id.
func RequireIdentity(r *Result) error {
	if r == nil || r.ObjectID == "" {
		return ErrMissingIdentity
	}
	return nil
}
