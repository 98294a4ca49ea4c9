package portal

import (
	"context"

	"github.com/prithuhomes/customerportal/internal/odata"
)

// Selection is the product selection response body
type Selection struct {
	ProductSets     odata.Rows `json:"productSets"`
	ProductSetItems odata.Rows `json:"productSetItems"`
	ProductMasters  odata.Rows `json:"productMasters"`
}

// Count returns the total number of rows across the three levels
func (s Selection) Count() int {
	return s.ProductSets.Len() + s.ProductSetItems.Len() + s.ProductMasters.Len()
}

// productSelection loads the catalog: every product set, the items of
// those sets, and the masters those items reference. The chain stops with
// empty levels as soon as a level yields no ids.
func (q *querier) productSelection(ctx context.Context, token, contactID string, catalog CatalogSource) (Selection, error) {
	t := q.tables
	for _, setting := range []struct {
		value string
		key   string
	}{
		{t.ProductSets.Table, "dataverse.product_sets.table"},
		{t.ProductSetItems.Table, "dataverse.product_set_items.table"},
		{string(t.ProductSetItems.SetLookupField), "dataverse.product_set_items.product_set_lookup_field"},
		{string(t.ProductSetItems.MasterLookupField), "dataverse.product_set_items.product_master_lookup_field"},
		{t.ProductMasters.Table, "dataverse.product_masters.table"},
	} {
		if _, err := require(setting.value, setting.key); err != nil {
			return Selection{}, err
		}
	}

	sets, err := catalog.Load(ctx, token, CatalogKey{Step: CatalogProductSets})
	if err != nil {
		return Selection{}, err
	}
	setIDs := sets.UniqueStrings(t.ProductSets.IDField)
	if len(setIDs) == 0 {
		q.logger.InfoContext(ctx, "No product sets found", "contact_id", contactID)
		return Selection{ProductSets: odata.Rows{}, ProductSetItems: odata.Rows{}, ProductMasters: odata.Rows{}}, nil
	}

	items, err := catalog.Load(ctx, token, CatalogKey{Step: CatalogProductSetItems, IDs: setIDs})
	if err != nil {
		return Selection{}, err
	}
	masterIDs := items.UniqueStrings(t.ProductSetItems.MasterLookupField)
	if len(masterIDs) == 0 {
		q.logger.InfoContext(ctx, "No product masters linked to product set items",
			"contact_id", contactID,
			"product_set_count", len(setIDs))
		return Selection{ProductSets: sets, ProductSetItems: items, ProductMasters: odata.Rows{}}, nil
	}

	masters, err := catalog.Load(ctx, token, CatalogKey{Step: CatalogProductMasters, IDs: masterIDs})
	if err != nil {
		return Selection{}, err
	}

	q.logger.InfoContext(ctx, "Retrieved product selection payload",
		"contact_id", contactID,
		"product_set_count", len(setIDs),
		"product_set_item_count", items.Len(),
		"product_master_count", masters.Len())
	return Selection{ProductSets: sets, ProductSetItems: items, ProductMasters: masters}, nil
}
