package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/prithuhomes/customerportal/internal/claims"
	"github.com/prithuhomes/customerportal/internal/clock"
)

// DefaultClockSkew is the tolerance applied to exp, nbf and iat
const DefaultClockSkew = 5 * time.Minute

// JWTValidatorConfig contains configuration for JWT validation
type JWTValidatorConfig struct {
	// Issuer is the expected "iss" value
	Issuer string

	// Audience is the expected "aud" value, the client id of the portal app
	Audience string

	// ExpectedPolicy, when set, must equal the token's policy claim
	// (tfp, falling back to acr), ignoring case
	ExpectedPolicy string

	// ClockSkew defaults to DefaultClockSkew
	ClockSkew time.Duration

	// Keys supplies signing keys
	Keys *OIDCConfigCache

	Clock clock.Clock
}

// JWTValidator validates JWT tokens using keys from an OIDCConfigCache
type JWTValidator struct {
	issuer         string
	audience       string
	expectedPolicy string
	skew           time.Duration
	keys           *OIDCConfigCache
	clock          clock.Clock
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg JWTValidatorConfig) (*JWTValidator, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if cfg.Audience == "" {
		return nil, fmt.Errorf("audience is required")
	}
	if cfg.Keys == nil {
		return nil, fmt.Errorf("key source is required")
	}

	skew := cfg.ClockSkew
	if skew == 0 {
		skew = DefaultClockSkew
	}

	return &JWTValidator{
		issuer:         cfg.Issuer,
		audience:       cfg.Audience,
		expectedPolicy: strings.TrimSpace(cfg.ExpectedPolicy),
		skew:           skew,
		keys:           cfg.Keys,
		clock:          clock.OrSystem(cfg.Clock),
	}, nil
}

// Validate implements the Validator interface
func (v *JWTValidator) Validate(ctx context.Context, token string) (*Result, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	oidc, err := v.keys.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}

	// Keys rotate; an unknown kid gets one refetch before failing
	if kid := keyID(token); kid != "" && !oidc.HasKey(kid) {
		oidc, err = v.keys.RefreshForKey(ctx, kid)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh signing keys: %w", err)
		}
	}

	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKeySet(oidc.Keys, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithClock(jwt.ClockFunc(v.clock.Now)),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	raw, err := parsed.AsMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read claims: %v", ErrInvalidToken, err)
	}

	result := NewResult(claims.Claims(raw))
	result.Issuer = parsed.Issuer()
	result.Audience = parsed.Audience()
	result.ExpiresAt = parsed.Expiration()
	result.IssuedAt = parsed.IssuedAt()

	if v.expectedPolicy != "" && !strings.EqualFold(result.Policy, v.expectedPolicy) {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrPolicyMismatch, v.expectedPolicy, result.Policy)
	}

	return result, nil
}

// keyID returns the kid of the first signature without verifying anything
func keyID(token string) string {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return ""
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return ""
	}
	return sigs[0].ProtectedHeaders().KeyID()
}
