// Package portal serves the customer data exposed by the portal: the fan-out
// queries scoped to a contact's projects, the product access flag, the
// product catalog, and the project space selection update.
package portal

import (
	"fmt"
	"strings"
)

// ProjectsKey is the fixed entity name of the projects query. It is also
// what an empty entity name resolves to.
const ProjectsKey = "projects"

// EntityKind identifies one of the datasets the portal serves
type EntityKind int

const (
	EntityProjects EntityKind = iota
	EntitySecondary
	EntityThird
	EntityFourth
	EntityFifth
	EntitySixth
	EntityProductAccess
	EntityProductSelection
	EntityProjectSpaceSelection
)

var entityKindNames = [...]string{
	EntityProjects:              "projects",
	EntitySecondary:             "secondary",
	EntityThird:                 "third",
	EntityFourth:                "fourth",
	EntityFifth:                 "fifth",
	EntitySixth:                 "sixth",
	EntityProductAccess:         "product_access",
	EntityProductSelection:      "product_selection",
	EntityProjectSpaceSelection: "project_space_selection",
}

func (k EntityKind) String() string {
	if k < 0 || int(k) >= len(entityKindNames) {
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
	return entityKindNames[k]
}

// EntityKeys are the request-facing names of each configurable entity.
// Blank keys take their default.
type EntityKeys struct {
	Secondary             string
	Third                 string
	Fourth                string
	Fifth                 string
	Sixth                 string
	ProductAccess         string
	ProductSelection      string
	ProjectSpaceSelection string
}

// DefaultEntityKeys returns the stock entity names
func DefaultEntityKeys() EntityKeys {
	return EntityKeys{
		Secondary:             "related",
		Third:                 "customeragreements",
		Fourth:                "paymentmilestones",
		Fifth:                 "paymenttransactions",
		Sixth:                 "projectspaces",
		ProductAccess:         "productaccess",
		ProductSelection:      "productselection",
		ProjectSpaceSelection: "projectspaceselection",
	}
}

// DispatchTable maps normalized entity names to entity kinds. It is built
// once from configuration and is read-only afterwards.
type DispatchTable struct {
	kinds map[string]EntityKind
	keys  []string // indexed by EntityKind
}

// NewDispatchTable builds the table. Keys are trimmed and lower-cased; a key
// used for more than one entity is an error.
func NewDispatchTable(keys EntityKeys) (*DispatchTable, error) {
	def := DefaultEntityKeys()
	ordered := []struct {
		kind  EntityKind
		key   string
		def   string
		field string
	}{
		{EntityProjects, ProjectsKey, ProjectsKey, ""},
		{EntitySecondary, keys.Secondary, def.Secondary, "secondary"},
		{EntityThird, keys.Third, def.Third, "third"},
		{EntityFourth, keys.Fourth, def.Fourth, "fourth"},
		{EntityFifth, keys.Fifth, def.Fifth, "fifth"},
		{EntitySixth, keys.Sixth, def.Sixth, "sixth"},
		{EntityProductAccess, keys.ProductAccess, def.ProductAccess, "product_access"},
		{EntityProductSelection, keys.ProductSelection, def.ProductSelection, "product_selection"},
		{EntityProjectSpaceSelection, keys.ProjectSpaceSelection, def.ProjectSpaceSelection, "project_space_selection"},
	}

	t := &DispatchTable{
		kinds: make(map[string]EntityKind, len(ordered)),
		keys:  make([]string, len(ordered)),
	}
	for _, e := range ordered {
		key := strings.ToLower(strings.TrimSpace(e.key))
		if key == "" {
			key = e.def
		}
		if existing, dup := t.kinds[key]; dup {
			return nil, fmt.Errorf("entity key %q for %s is already used by %s", key, e.field, existing)
		}
		t.kinds[key] = e.kind
		t.keys[e.kind] = key
	}
	return t, nil
}

// NormalizeEntity trims and lower-cases a requested entity name. An empty
// name means the projects entity.
func NormalizeEntity(entity string) string {
	entity = strings.ToLower(strings.TrimSpace(entity))
	if entity == "" {
		return ProjectsKey
	}
	return entity
}

// Lookup resolves a requested entity name
func (t *DispatchTable) Lookup(entity string) (EntityKind, bool) {
	kind, ok := t.kinds[NormalizeEntity(entity)]
	return kind, ok
}

// Key returns the configured name of kind
func (t *DispatchTable) Key(kind EntityKind) string {
	if kind < 0 || int(kind) >= len(t.keys) {
		return ""
	}
	return t.keys[kind]
}

// SupportedKeys lists every entity name, projects first, in a fixed order
func (t *DispatchTable) SupportedKeys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}
