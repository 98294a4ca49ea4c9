// Package contact maps an authenticated end user to their CRM contact record.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prithuhomes/customerportal/internal/odata"
)

var (
	// ErrNotFound means neither the object id nor the email matched a contact
	ErrNotFound = errors.New("contact not found")

	// ErrLinkFailed means the contact was found by email but recording the
	// object id on it failed
	ErrLinkFailed = errors.New("failed to link contact to object id")
)

// DataClient is the subset of the data platform client used by the resolver
type DataClient interface {
	Query(ctx context.Context, token string, q odata.Query) (odata.Rows, error)
	Patch(ctx context.Context, token, table, id string, body any) error
}

// Config names the contact table and its columns
type Config struct {
	Table         string
	IDField       odata.Field
	ObjectIDField odata.Field
	EmailField    odata.Field
}

// DefaultConfig returns the stock column names
func DefaultConfig() Config {
	return Config{
		Table:         "contacts",
		IDField:       "contactid",
		ObjectIDField: "prithu_b2cobjectid",
		EmailField:    "emailaddress1",
	}
}

// Resolver resolves contacts by object id, falling back to email
type Resolver struct {
	client DataClient
	config Config
	logger *slog.Logger
}

// NewResolver creates a resolver. Empty config fields take their defaults.
func NewResolver(client DataClient, cfg Config, logger *slog.Logger) *Resolver {
	def := DefaultConfig()
	if cfg.Table == "" {
		cfg.Table = def.Table
	}
	if cfg.IDField == "" {
		cfg.IDField = def.IDField
	}
	if cfg.ObjectIDField == "" {
		cfg.ObjectIDField = def.ObjectIDField
	}
	if cfg.EmailField == "" {
		cfg.EmailField = def.EmailField
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, config: cfg, logger: logger}
}

// Resolve returns the contact id for the user. A contact matched only by
// email is linked by writing objectID onto it before its id is returned; if
// that write fails the resolution fails with ErrLinkFailed. When more than
// one row matches, the first is used.
func (r *Resolver) Resolve(ctx context.Context, token, objectID, email string) (string, error) {
	if objectID == "" {
		return "", fmt.Errorf("object id is required")
	}

	id, err := r.lookup(ctx, token, r.config.ObjectIDField, objectID)
	if err != nil {
		return "", fmt.Errorf("failed to look up contact by object id: %w", err)
	}
	if id != "" {
		r.logger.InfoContext(ctx, "Contact found by object id", "oid", objectID, "contact_id", id)
		return id, nil
	}

	email = strings.TrimSpace(email)
	if email == "" {
		r.logger.WarnContext(ctx, "Contact not found by object id and no email to fall back to", "oid", objectID)
		return "", ErrNotFound
	}

	id, err = r.lookup(ctx, token, r.config.EmailField, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up contact by email: %w", err)
	}
	if id == "" {
		return "", ErrNotFound
	}

	patch := map[string]string{string(r.config.ObjectIDField): objectID}
	if err := r.client.Patch(ctx, token, r.config.Table, id, patch); err != nil {
		r.logger.ErrorContext(ctx, "Failed to link contact to object id",
			"oid", objectID,
			"contact_id", id,
			"error", err)
		return "", fmt.Errorf("%w: %w", ErrLinkFailed, err)
	}

	r.logger.InfoContext(ctx, "Contact found by email and linked to object id", "oid", objectID, "contact_id", id)
	return id, nil
}

func (r *Resolver) lookup(ctx context.Context, token string, field odata.Field, value string) (string, error) {
	rows, err := r.client.Query(ctx, token, odata.Query{
		Table:  r.config.Table,
		Filter: odata.Eq(field, value),
		Select: []odata.Field{r.config.IDField},
	})
	if err != nil {
		return "", err
	}
	ids := rows.Strings(r.config.IDField)
	if len(ids) == 0 {
		return "", nil
	}
	if len(ids) > 1 {
		r.logger.WarnContext(ctx, "Multiple contacts matched, using the first",
			"field", string(field),
			"count", len(ids))
	}
	return ids[0], nil
}
