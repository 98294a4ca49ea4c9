package portal

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prithuhomes/customerportal/internal/odata"
)

// DataClient is the subset of the data platform client the portal uses
type DataClient interface {
	Query(ctx context.Context, token string, q odata.Query) (odata.Rows, error)
	Patch(ctx context.Context, token, table, id string, body any) error
}

// querier runs the contact-scoped reads. Each child table is reached by
// resolving the ids of its parent level first; an empty parent id set ends
// the chain with an empty result and no further query.
type querier struct {
	client DataClient
	tables Tables
	logger *slog.Logger
}

func (q *querier) query(ctx context.Context, token string, query odata.Query) (odata.Rows, error) {
	rows, err := q.client.Query(ctx, token, query)
	if err != nil {
		return nil, &QueryError{Table: query.Table, Err: err}
	}
	return rows, nil
}

// projects returns the contact's projects
func (q *querier) projects(ctx context.Context, token, contactID string) (odata.Rows, error) {
	t := q.tables.Projects
	rows, err := q.query(ctx, token, odata.Query{
		Table:  t.Table,
		Filter: odata.Eq(t.CustomerLookupField, contactID),
		Select: t.Select,
	})
	if err != nil {
		return nil, err
	}
	q.logger.InfoContext(ctx, "Retrieved projects",
		"table", t.Table,
		"lookup_field", string(t.CustomerLookupField),
		"contact_id", contactID,
		"record_count", rows.Len())
	return rows, nil
}

// projectIDs returns the ids of the contact's projects
func (q *querier) projectIDs(ctx context.Context, token, contactID string) ([]string, error) {
	t := q.tables.Projects
	rows, err := q.query(ctx, token, odata.Query{
		Table:  t.Table,
		Filter: odata.Eq(t.CustomerLookupField, contactID),
		Select: []odata.Field{t.IDField},
	})
	if err != nil {
		return nil, err
	}
	return rows.Strings(t.IDField), nil
}

// secondary returns the secondary table rows, scoped either directly by
// contact or through the contact's projects
func (q *querier) secondary(ctx context.Context, token, contactID string) (odata.Rows, error) {
	t := q.tables.Secondary
	table, err := require(t.Table, "dataverse.secondary.table")
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(string(t.Mode), string(SecondaryProjectLookup)) {
		lookup, err := require(t.ProjectLookupField, "dataverse.secondary.project_lookup_field")
		if err != nil {
			return nil, err
		}
		projectIDs, err := q.projectIDs(ctx, token, contactID)
		if err != nil {
			return nil, err
		}
		if len(projectIDs) == 0 {
			q.logger.InfoContext(ctx, "No projects found for secondary project lookup", "contact_id", contactID)
			return odata.Rows{}, nil
		}
		rows, err := q.query(ctx, token, odata.Query{
			Table:  table,
			Filter: odata.AnyEq(lookup, projectIDs),
			Select: t.Select,
		})
		if err != nil {
			return nil, err
		}
		q.logger.InfoContext(ctx, "Retrieved secondary records by project lookup",
			"table", table,
			"contact_id", contactID,
			"parent_count", len(projectIDs),
			"record_count", rows.Len())
		return rows, nil
	}

	lookup, err := require(t.CustomerLookupField, "dataverse.secondary.customer_lookup_field")
	if err != nil {
		return nil, err
	}
	rows, err := q.query(ctx, token, odata.Query{
		Table:  table,
		Filter: odata.Eq(lookup, contactID),
		Select: t.Select,
	})
	if err != nil {
		return nil, err
	}
	q.logger.InfoContext(ctx, "Retrieved secondary records by customer lookup",
		"table", table,
		"contact_id", contactID,
		"record_count", rows.Len())
	return rows, nil
}

// third returns the third table rows joined to the contact's projects
func (q *querier) third(ctx context.Context, token, contactID string) (odata.Rows, error) {
	t := q.tables.Third
	table, err := require(t.Table, "dataverse.third.table")
	if err != nil {
		return nil, err
	}
	lookup, err := require(t.ProjectLookupField, "dataverse.third.project_lookup_field")
	if err != nil {
		return nil, err
	}

	projectIDs, err := q.projectIDs(ctx, token, contactID)
	if err != nil {
		return nil, err
	}
	if len(projectIDs) == 0 {
		q.logger.InfoContext(ctx, "No projects found for third table lookup", "contact_id", contactID)
		return odata.Rows{}, nil
	}

	rows, err := q.query(ctx, token, odata.Query{
		Table:  table,
		Filter: odata.AnyEq(lookup, projectIDs),
		Select: t.Select,
	})
	if err != nil {
		return nil, err
	}
	q.logger.InfoContext(ctx, "Retrieved third table records",
		"table", table,
		"contact_id", contactID,
		"parent_count", len(projectIDs),
		"record_count", rows.Len())
	return rows, nil
}

// thirdIDs returns the ids of the third table rows under the contact's
// projects. Unset third table settings fall back to the secondary table.
func (q *querier) thirdIDs(ctx context.Context, token, contactID string) ([]string, error) {
	third, secondary := q.tables.Third, q.tables.Secondary

	table := third.Table
	if strings.TrimSpace(table) == "" {
		var err error
		if table, err = require(secondary.Table, "dataverse.secondary.table"); err != nil {
			return nil, err
		}
	}
	lookup := third.ProjectLookupField
	if strings.TrimSpace(string(lookup)) == "" {
		var err error
		if lookup, err = require(secondary.ProjectLookupField, "dataverse.secondary.project_lookup_field"); err != nil {
			return nil, err
		}
	}
	idField := firstNonBlank(third.IDField, secondary.IDField)

	projectIDs, err := q.projectIDs(ctx, token, contactID)
	if err != nil {
		return nil, err
	}
	if len(projectIDs) == 0 {
		return nil, nil
	}

	rows, err := q.query(ctx, token, odata.Query{
		Table:  table,
		Filter: odata.AnyEq(lookup, projectIDs),
		Select: []odata.Field{idField},
	})
	if err != nil {
		return nil, err
	}
	return rows.Strings(idField), nil
}

// fourth returns the fourth table rows joined to the contact's third table rows
func (q *querier) fourth(ctx context.Context, token, contactID string) (odata.Rows, error) {
	t := q.tables.Fourth
	table, err := require(t.Table, "dataverse.fourth.table")
	if err != nil {
		return nil, err
	}
	lookup, err := require(t.ThirdLookupField, "dataverse.fourth.third_lookup_field")
	if err != nil {
		return nil, err
	}

	thirdIDs, err := q.thirdIDs(ctx, token, contactID)
	if err != nil {
		return nil, err
	}
	if len(thirdIDs) == 0 {
		q.logger.InfoContext(ctx, "No third table records found for fourth table lookup", "contact_id", contactID)
		return odata.Rows{}, nil
	}

	rows, err := q.query(ctx, token, odata.Query{
		Table:  table,
		Filter: odata.AnyEq(lookup, thirdIDs),
		Select: t.Select,
	})
	if err != nil {
		return nil, err
	}
	q.logger.InfoContext(ctx, "Retrieved fourth table records",
		"table", table,
		"contact_id", contactID,
		"parent_count", len(thirdIDs),
		"record_count", rows.Len())
	return rows, nil
}

// fourthIDs returns the ids of the fourth table rows under the contact's
// third table rows
func (q *querier) fourthIDs(ctx context.Context, token, contactID string) ([]string, error) {
	t := q.tables.Fourth
	table, err := require(t.Table, "dataverse.fourth.table")
	if err != nil {
		return nil, err
	}
	lookup, err := require(t.ThirdLookupField, "dataverse.fourth.third_lookup_field")
	if err != nil {
		return nil, err
	}

	thirdIDs, err := q.thirdIDs(ctx, token, contactID)
	if err != nil {
		return nil, err
	}
	if len(thirdIDs) == 0 {
		return nil, nil
	}

	rows, err := q.query(ctx, token, odata.Query{
		Table:  table,
		Filter: odata.AnyEq(lookup, thirdIDs),
		Select: []odata.Field{t.IDField},
	})
	if err != nil {
		return nil, err
	}
	return rows.Strings(t.IDField), nil
}

// fifth returns the fifth table rows joined to either the third or the
// fourth table, depending on the configured lookup level
func (q *querier) fifth(ctx context.Context, token, contactID string) (odata.Rows, error) {
	t := q.tables.Fifth
	table, err := require(t.Table, "dataverse.fifth.table")
	if err != nil {
		return nil, err
	}

	var (
		parentIDs []string
		lookup    odata.Field
		level     LookupLevel
	)
	if strings.EqualFold(string(t.LookupLevel), string(LookupFourth)) {
		level = LookupFourth
		if lookup, err = require(t.FourthLookupField, "dataverse.fifth.fourth_lookup_field"); err != nil {
			return nil, err
		}
		if parentIDs, err = q.fourthIDs(ctx, token, contactID); err != nil {
			return nil, err
		}
	} else {
		level = LookupThird
		if parentIDs, err = q.thirdIDs(ctx, token, contactID); err != nil {
			return nil, err
		}
		lookup = firstNonBlank(t.ThirdLookupField, t.FourthLookupField, DefaultFifthThirdLookupField)
	}

	if len(parentIDs) == 0 {
		q.logger.InfoContext(ctx, "No parent records found for fifth table lookup",
			"contact_id", contactID,
			"parent_level", string(level))
		return odata.Rows{}, nil
	}

	rows, err := q.query(ctx, token, odata.Query{
		Table:  table,
		Filter: odata.AnyEq(lookup, parentIDs),
		Select: t.Select,
	})
	if err != nil {
		return nil, err
	}
	q.logger.InfoContext(ctx, "Retrieved fifth table records",
		"table", table,
		"contact_id", contactID,
		"parent_level", string(level),
		"parent_count", len(parentIDs),
		"record_count", rows.Len())
	return rows, nil
}

// sixth returns the project spaces of the contact's projects. A configured
// select list always includes the product set lookup so the frontend can
// show the current selection.
func (q *querier) sixth(ctx context.Context, token, contactID string) (odata.Rows, error) {
	t := q.tables.Sixth
	table, err := require(t.Table, "dataverse.sixth.table")
	if err != nil {
		return nil, err
	}
	lookup, err := require(t.ProjectLookupField, "dataverse.sixth.project_lookup_field")
	if err != nil {
		return nil, err
	}
	selected := t.Select
	if len(selected) > 0 {
		selected = odata.EnsureSelected(selected, t.ProductSetLookupField)
	}

	projectIDs, err := q.projectIDs(ctx, token, contactID)
	if err != nil {
		return nil, err
	}
	if len(projectIDs) == 0 {
		q.logger.InfoContext(ctx, "No projects found for sixth table lookup", "contact_id", contactID)
		return odata.Rows{}, nil
	}

	rows, err := q.query(ctx, token, odata.Query{
		Table:  table,
		Filter: odata.AnyEq(lookup, projectIDs),
		Select: selected,
	})
	if err != nil {
		return nil, err
	}
	q.logger.InfoContext(ctx, "Retrieved sixth table records",
		"table", table,
		"contact_id", contactID,
		"parent_count", len(projectIDs),
		"record_count", rows.Len())
	return rows, nil
}
