package portal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProjectSpaceNotFound means the project space to update does not exist
	ErrProjectSpaceNotFound = errors.New("project space not found")

	// ErrProjectSpaceUnlinked means the project space has no parent project
	ErrProjectSpaceUnlinked = errors.New("project space is not linked to a project")

	// ErrNotAuthorized means the project space does not belong to one of the
	// contact's projects
	ErrNotAuthorized = errors.New("not authorized to update this project space")

	// ErrInvalidRequest is wrapped by every request body validation failure
	ErrInvalidRequest = errors.New("invalid request")
)

// MethodNotAllowedError is returned for a method the entity does not accept
type MethodNotAllowedError struct {
	Method string
	Entity string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("HTTP method '%s' is not supported for entity '%s'.", e.Method, e.Entity)
}

// UnsupportedEntityError is returned for an entity name with no handler
type UnsupportedEntityError struct {
	Entity    string
	Supported []string
}

func (e *UnsupportedEntityError) Error() string {
	return fmt.Sprintf("Unsupported entity '%s'. Supported entities: %s.", e.Entity, strings.Join(e.Supported, ", "))
}

// ValidationError describes a malformed write request
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets callers match ErrInvalidRequest
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// QueryError wraps a failed data platform read with the table it targeted
type QueryError struct {
	Table string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to query %s: %v", e.Table, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
