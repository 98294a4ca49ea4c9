package config

import (
	"github.com/prithuhomes/customerportal/internal/odata"
	"github.com/prithuhomes/customerportal/internal/portal"
)

// Tables converts the data platform settings to the portal's table map
func (c *Config) Tables() portal.Tables {
	d := c.Dataverse
	return portal.Tables{
		Projects: portal.ProjectsTable{
			Table:               d.Projects.Table,
			IDField:             odata.Field(d.Projects.IDField),
			CustomerLookupField: odata.Field(d.Projects.CustomerLookupField),
			Select:              odata.ParseSelect(d.Projects.Select),
		},
		Secondary: portal.SecondaryTable{
			Table:               d.Secondary.Table,
			Mode:                portal.SecondaryMode(d.Secondary.Mode),
			CustomerLookupField: odata.Field(d.Secondary.CustomerLookupField),
			ProjectLookupField:  odata.Field(d.Secondary.ProjectLookupField),
			IDField:             odata.Field(d.Secondary.IDField),
			Select:              odata.ParseSelect(d.Secondary.Select),
		},
		Third: portal.ThirdTable{
			Table:              d.Third.Table,
			ProjectLookupField: odata.Field(d.Third.ProjectLookupField),
			IDField:            odata.Field(d.Third.IDField),
			Select:             odata.ParseSelect(d.Third.Select),
		},
		Fourth: portal.FourthTable{
			Table:            d.Fourth.Table,
			ThirdLookupField: odata.Field(d.Fourth.ThirdLookupField),
			IDField:          odata.Field(d.Fourth.IDField),
			Select:           odata.ParseSelect(d.Fourth.Select),
		},
		Fifth: portal.FifthTable{
			Table:             d.Fifth.Table,
			LookupLevel:       portal.LookupLevel(d.Fifth.LookupLevel),
			ThirdLookupField:  odata.Field(d.Fifth.ThirdLookupField),
			FourthLookupField: odata.Field(d.Fifth.FourthLookupField),
			Select:            odata.ParseSelect(d.Fifth.Select),
		},
		Sixth: portal.SixthTable{
			Table:                  d.Sixth.Table,
			ProjectLookupField:     odata.Field(d.Sixth.ProjectLookupField),
			IDField:                odata.Field(d.Sixth.IDField),
			ProductSetLookupField:  odata.Field(d.Sixth.ProductSetLookupField),
			CustomerSelectionField: odata.Field(d.Sixth.CustomerSelectionField),
			ProductSetBindField:    d.Sixth.ProductSetBindField,
			Select:                 odata.ParseSelect(d.Sixth.Select),
		},
		ProductAccess: portal.ProductAccess{
			Field:        odata.Field(d.ProductAccess.Field),
			AllowedValue: d.ProductAccess.AllowedValue,
			Rule:         d.ProductAccess.Rule,
		},
		ProductSets: portal.ProductSets{
			Table:   d.ProductSets.Table,
			IDField: odata.Field(d.ProductSets.IDField),
			Select:  odata.ParseSelect(d.ProductSets.Select),
		},
		ProductSetItems: portal.ProductSetItems{
			Table:             d.ProductSetItems.Table,
			SetLookupField:    odata.Field(d.ProductSetItems.ProductSetLookupField),
			MasterLookupField: odata.Field(d.ProductSetItems.ProductMasterLookupField),
			Select:            odata.ParseSelect(d.ProductSetItems.Select),
		},
		ProductMasters: portal.ProductMasters{
			Table:   d.ProductMasters.Table,
			IDField: odata.Field(d.ProductMasters.IDField),
			Select:  odata.ParseSelect(d.ProductMasters.Select),
		},
	}
}

// EntityKeys returns the configured entity names
func (c *Config) EntityKeys() portal.EntityKeys {
	e := c.Entities
	return portal.EntityKeys{
		Secondary:             e.Secondary,
		Third:                 e.Third,
		Fourth:                e.Fourth,
		Fifth:                 e.Fifth,
		Sixth:                 e.Sixth,
		ProductAccess:         e.ProductAccess,
		ProductSelection:      e.ProductSelection,
		ProjectSpaceSelection: e.ProjectSpaceSelection,
	}
}
