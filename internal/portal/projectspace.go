package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prithuhomes/customerportal/internal/odata"
)

// MaxSelectionBodyBytes bounds the project space selection request body
const MaxSelectionBodyBytes = 64 << 10

// SelectionWithProductSet is the customer selection code that links a
// product set to the project space. Other codes clear the link.
const SelectionWithProductSet = 2

// ProjectSpaceSelection is a validated project space selection update
type ProjectSpaceSelection struct {
	ProjectSpaceID    string
	CustomerSelection int
	// ProductSetID is only set when CustomerSelection is SelectionWithProductSet
	ProductSetID string
}

// UpdateResult is the response body of a successful update
type UpdateResult struct {
	Success bool `json:"success"`
}

// ParseProjectSpaceSelection reads and validates an update request body.
// customerSelection may be a JSON integer or a string holding one.
func ParseProjectSpaceSelection(body io.Reader) (ProjectSpaceSelection, error) {
	var sel ProjectSpaceSelection
	if body == nil {
		return sel, &ValidationError{Message: "Request body is required."}
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxSelectionBodyBytes+1))
	if err != nil {
		return sel, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(data) > MaxSelectionBodyBytes {
		return sel, &ValidationError{Message: fmt.Sprintf("Request body exceeds %d bytes.", MaxSelectionBodyBytes)}
	}

	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return sel, &ValidationError{Message: "Request body must be a JSON object."}
	}

	projectSpaceID, ok := rawString(fields["projectSpaceId"])
	if !ok || strings.TrimSpace(projectSpaceID) == "" {
		return sel, &ValidationError{Message: "projectSpaceId is required."}
	}
	sel.ProjectSpaceID = projectSpaceID

	selection, ok := rawInt32(fields["customerSelection"])
	if !ok {
		return sel, &ValidationError{Message: "customerSelection is required."}
	}
	sel.CustomerSelection = selection

	if raw, present := fields["productSetId"]; present && !isNull(raw) {
		productSetID, ok := rawString(raw)
		if !ok {
			return sel, &ValidationError{Message: "productSetId must be a string."}
		}
		if selection == SelectionWithProductSet && strings.TrimSpace(productSetID) != "" {
			sel.ProductSetID = productSetID
		}
	}
	return sel, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// rawInt32 accepts a JSON integer or a string holding one, within int32
func rawInt32(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	text := string(bytes.TrimSpace(raw))
	if s, ok := rawString(raw); ok {
		text = strings.TrimSpace(s)
	}
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// updateProjectSpaceSelection checks that the project space belongs to one
// of the contact's projects and then writes the selection. No write is
// issued unless both ownership checks pass.
func (q *querier) updateProjectSpaceSelection(ctx context.Context, token, contactID string, sel ProjectSpaceSelection) (UpdateResult, error) {
	spaces, projects := q.tables.Sixth, q.tables.Projects

	rows, err := q.query(ctx, token, odata.Query{
		Table:  spaces.Table,
		Filter: odata.Eq(spaces.IDField, sel.ProjectSpaceID),
		Select: []odata.Field{spaces.ProjectLookupField},
	})
	if err != nil {
		return UpdateResult{}, err
	}
	if rows.Len() == 0 {
		q.logger.WarnContext(ctx, "Project space not found",
			"contact_id", contactID,
			"project_space_id", sel.ProjectSpaceID)
		return UpdateResult{}, ErrProjectSpaceNotFound
	}
	projectID, ok := rows.Scalar(0, spaces.ProjectLookupField)
	if !ok || strings.TrimSpace(projectID) == "" {
		q.logger.WarnContext(ctx, "Project space is not linked to a project",
			"contact_id", contactID,
			"project_space_id", sel.ProjectSpaceID)
		return UpdateResult{}, ErrProjectSpaceUnlinked
	}

	owned, err := q.query(ctx, token, odata.Query{
		Table: projects.Table,
		Filter: odata.And(
			odata.Eq(projects.IDField, projectID),
			odata.Eq(projects.CustomerLookupField, contactID),
		),
		Select: []odata.Field{projects.IDField},
	})
	if err != nil {
		return UpdateResult{}, err
	}
	if owned.Len() == 0 {
		q.logger.WarnContext(ctx, "Project space update rejected, project not owned by contact",
			"contact_id", contactID,
			"project_space_id", sel.ProjectSpaceID,
			"project_id", projectID)
		return UpdateResult{}, ErrNotAuthorized
	}

	var bind any
	if sel.ProductSetID != "" {
		bind = "/" + q.tables.ProductSets.Table + "(" + sel.ProductSetID + ")"
	}
	patch := map[string]any{
		string(spaces.CustomerSelectionField): sel.CustomerSelection,
		spaces.ProductSetBindField:            bind,
	}
	if err := q.client.Patch(ctx, token, spaces.Table, sel.ProjectSpaceID, patch); err != nil {
		return UpdateResult{}, fmt.Errorf("failed to update project space selection: %w", err)
	}

	q.logger.InfoContext(ctx, "Project space selection updated",
		"contact_id", contactID,
		"project_space_id", sel.ProjectSpaceID,
		"customer_selection", sel.CustomerSelection,
		"product_set_id", sel.ProductSetID)
	return UpdateResult{Success: true}, nil
}
