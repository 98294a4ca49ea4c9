package portal

import (
	"context"
	"strings"

	"github.com/prithuhomes/customerportal/internal/cel"
	"github.com/prithuhomes/customerportal/internal/odata"
)

// productAccessTop caps how many projects the access check scans
const productAccessTop = 50

// AccessResult is the product access response body
type AccessResult struct {
	HasAccess bool `json:"hasAccess"`
}

// productAccess reports whether any of the contact's projects grants access
// to product selection. Query and rule failures are logged and reported as
// no access rather than returned.
func (q *querier) productAccess(ctx context.Context, token, contactID string, rule *cel.RowRule) AccessResult {
	projects, access := q.tables.Projects, q.tables.ProductAccess

	query := odata.Query{
		Table:  projects.Table,
		Filter: odata.Eq(projects.CustomerLookupField, contactID),
		Select: []odata.Field{access.Field},
		Top:    productAccessTop,
	}
	if rule != nil {
		query.Select = nil
	}

	rows, err := q.query(ctx, token, query)
	if err != nil {
		q.logger.WarnContext(ctx, "Project-level access check failed, returning no access",
			"field", string(access.Field),
			"table", projects.Table,
			"error", err)
		return AccessResult{HasAccess: false}
	}

	hasAccess := false
	for i := 0; i < rows.Len() && !hasAccess; i++ {
		if rule == nil {
			value, ok := rows.Scalar(i, access.Field)
			hasAccess = ok && strings.EqualFold(value, access.AllowedValue)
			continue
		}

		row, err := rows.Decode(i)
		if err != nil {
			q.logger.WarnContext(ctx, "Skipping undecodable project row in access check", "error", err)
			continue
		}
		matched, err := rule.Eval(row)
		if err != nil {
			q.logger.WarnContext(ctx, "Access rule evaluation failed",
				"rule", rule.String(),
				"error", err)
			continue
		}
		hasAccess = matched
	}

	q.logger.InfoContext(ctx, "Resolved product access",
		"contact_id", contactID,
		"has_access", hasAccess)
	return AccessResult{HasAccess: hasAccess}
}
