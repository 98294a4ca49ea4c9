package portal

import (
	"fmt"
	"strings"

	"github.com/prithuhomes/customerportal/internal/odata"
)

// SecondaryMode selects how the secondary table is scoped to a contact
type SecondaryMode string

const (
	// SecondaryCustomerLookup filters the secondary table on a contact lookup
	SecondaryCustomerLookup SecondaryMode = "CustomerLookup"
	// SecondaryProjectLookup filters the secondary table on the contact's projects
	SecondaryProjectLookup SecondaryMode = "ProjectLookup"
)

// LookupLevel selects the parent table of the fifth table
type LookupLevel string

const (
	LookupThird  LookupLevel = "Third"
	LookupFourth LookupLevel = "Fourth"
)

// ProjectsTable is the table of projects owned by contacts
type ProjectsTable struct {
	Table               string
	IDField             odata.Field
	CustomerLookupField odata.Field
	Select              []odata.Field
}

// SecondaryTable is either owned by the contact or joined to projects
type SecondaryTable struct {
	Table               string
	Mode                SecondaryMode
	CustomerLookupField odata.Field
	ProjectLookupField  odata.Field
	IDField             odata.Field
	Select              []odata.Field
}

// ThirdTable is joined to projects. When Table or ProjectLookupField is
// blank, id resolution for the fourth and fifth tables falls back to the
// secondary table settings.
type ThirdTable struct {
	Table              string
	ProjectLookupField odata.Field
	IDField            odata.Field
	Select             []odata.Field
}

// FourthTable is joined to the third table
type FourthTable struct {
	Table            string
	ThirdLookupField odata.Field
	IDField          odata.Field
	Select           []odata.Field
}

// FifthTable is joined to the third or fourth table depending on LookupLevel
type FifthTable struct {
	Table             string
	LookupLevel       LookupLevel
	ThirdLookupField  odata.Field
	FourthLookupField odata.Field
	Select            []odata.Field
}

// SixthTable holds project spaces, joined to projects. It is also the table
// the project space selection update writes to.
type SixthTable struct {
	Table                  string
	ProjectLookupField     odata.Field
	IDField                odata.Field
	ProductSetLookupField  odata.Field
	CustomerSelectionField odata.Field
	ProductSetBindField    string
	Select                 []odata.Field
}

// ProductAccess configures the product access check
type ProductAccess struct {
	Field        odata.Field
	AllowedValue string
	// Rule is an optional CEL expression evaluated per project row. When set
	// it replaces the comparison of Field against AllowedValue.
	Rule string
}

// ProductSets is the top of the catalog hierarchy
type ProductSets struct {
	Table   string
	IDField odata.Field
	Select  []odata.Field
}

// ProductSetItems link product sets to product masters
type ProductSetItems struct {
	Table             string
	SetLookupField    odata.Field
	MasterLookupField odata.Field
	Select            []odata.Field
}

// ProductMasters is the bottom of the catalog hierarchy
type ProductMasters struct {
	Table   string
	IDField odata.Field
	Select  []odata.Field
}

// Tables names every table and column the portal reads or writes
type Tables struct {
	Projects        ProjectsTable
	Secondary       SecondaryTable
	Third           ThirdTable
	Fourth          FourthTable
	Fifth           FifthTable
	Sixth           SixthTable
	ProductAccess   ProductAccess
	ProductSets     ProductSets
	ProductSetItems ProductSetItems
	ProductMasters  ProductMasters
}

// DefaultFifthThirdLookupField joins the fifth table to the third when no
// lookup field is configured
const DefaultFifthThirdLookupField odata.Field = "_sgr_customeragreement_value"

// DefaultTables returns the stock table and column names. Tables without a
// sensible default are left blank and must be configured before the entity
// that reads them is requested.
func DefaultTables() Tables {
	return Tables{
		Projects: ProjectsTable{
			Table:               "sgr_projects",
			IDField:             "sgr_projectid",
			CustomerLookupField: "_sgr_customer_value",
		},
		Secondary: SecondaryTable{
			Mode:    SecondaryCustomerLookup,
			IDField: "sgr_customeragreementid",
		},
		Fourth: FourthTable{
			IDField: "sgr_paymentmilestoneid",
		},
		Fifth: FifthTable{
			LookupLevel: LookupThird,
		},
		Sixth: SixthTable{
			Table:                  "sgr_projectspaces",
			ProjectLookupField:     "_sgr_project_value",
			IDField:                "sgr_projectspaceid",
			ProductSetLookupField:  "_sgr_productset_value",
			CustomerSelectionField: "sgr_customerselection",
			ProductSetBindField:    "sgr_productset@odata.bind",
		},
		ProductAccess: ProductAccess{
			Field:        "sgr_stage",
			AllowedValue: "1",
		},
		ProductSets: ProductSets{
			Table:   "sgr_productsets",
			IDField: "sgr_productsetid",
		},
		ProductMasters: ProductMasters{
			IDField: "sgr_productmasterid",
		},
	}
}

// MissingConfigError reports a setting that an entity needs but that is not
// configured. Key is the configuration key, e.g. "dataverse.third.table".
type MissingConfigError struct {
	Key string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("Required configuration '%s' is not configured.", e.Key)
}

// require returns value or a *MissingConfigError naming key
func require[T ~string](value T, key string) (T, error) {
	if strings.TrimSpace(string(value)) == "" {
		return value, &MissingConfigError{Key: key}
	}
	return value, nil
}

// firstNonBlank returns the first value that is not blank
func firstNonBlank[T ~string](values ...T) T {
	for _, v := range values {
		if strings.TrimSpace(string(v)) != "" {
			return v
		}
	}
	var zero T
	return zero
}
