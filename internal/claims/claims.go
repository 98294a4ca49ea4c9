package claims

import (
	"maps"
	"strings"
)

// Claims represents the claim set of a validated end-user token as key-value pairs.
// Values keep the JSON shape they had in the token: strings, numbers, bools,
// []any for arrays.
type Claims map[string]any

// Well-known claim names used to derive the portal identity.
const (
	ObjectID           = "oid"
	ObjectIdentifierV1 = "http://schemas.microsoft.com/identity/claims/objectidentifier"
	Subject            = "sub"
	NameIdentifier     = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"

	Email             = "email"
	EmailAddress      = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	Emails            = "emails"
	PreferredUsername = "preferred_username"
	UPN               = "upn"

	Roles = "roles"

	TrustFrameworkPolicy = "tfp"
	AuthContextClass     = "acr"
)

// ObjectIDClaims lists the claims consulted, in order, for the user's object id
var ObjectIDClaims = []string{ObjectID, ObjectIdentifierV1, Subject, NameIdentifier}

// EmailClaims lists the claims consulted, in order, for the user's email
var EmailClaims = []string{Email, EmailAddress, Emails, PreferredUsername, UPN}

// PolicyClaims lists the claims consulted, in order, for the sign-in policy
var PolicyClaims = []string{TrustFrameworkPolicy, AuthContextClass}

// Copy creates a shallow copy of the claims
func (c Claims) Copy() Claims {
	if c == nil {
		return nil
	}
	result := make(Claims, len(c))
	maps.Copy(result, c)
	return result
}

// GetString returns the value as a string, or empty string if not present or not a string.
// For array values the first string element is returned, which covers B2C's "emails" claim.
func (c Claims) GetString(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				return s
			}
		}
	}
	return ""
}

// FirstString returns the first non-blank string value among keys
func (c Claims) FirstString(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(c.GetString(key)); v != "" {
			return v
		}
	}
	return ""
}

// Has returns true if the key exists in the claims
func (c Claims) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Values returns every string carried by key, whether the claim is a single
// string or an array of strings.
func (c Claims) Values(key string) []string {
	switch v := c[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// RoleSet collects role values from the "roles" claim. Entra may emit roles as
// an array or as one space/comma delimited string; both are flattened. Keys
// are lower-cased.
func (c Claims) RoleSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, raw := range c.Values(Roles) {
		for _, role := range strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' }) {
			set[strings.ToLower(role)] = struct{}{}
		}
	}
	return set
}

// HasRole reports whether role is present, ignoring case. A blank role always passes.
func (c Claims) HasRole(role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return true
	}
	_, ok := c.RoleSet()[strings.ToLower(role)]
	return ok
}
