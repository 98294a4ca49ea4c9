package config

// legacyEnv maps the environment variable names of existing deployments to
// config paths. PORTAL_ variables take precedence over these.
var legacyEnv = map[string]string{
	"External_Issuer":       "external.issuer",
	"External_ClientId":     "external.client_id",
	"External_MetadataUrl":  "external.metadata_url",
	"External_Policy":       "external.policy",
	"External_RequiredRole": "external.required_role",

	"Internal_ClientId":     "internal.client_id",
	"Internal_ClientSecret": "internal.client_secret",
	"Internal_TenantId":     "internal.tenant_id",

	"Dataverse_Url": "dataverse.url",

	"Dataverse_ContactsTable":           "dataverse.contacts.table",
	"Dataverse_ContactIdField":          "dataverse.contacts.id_field",
	"Dataverse_ContactB2cObjectIdField": "dataverse.contacts.object_id_field",
	"Dataverse_ContactEmailField":       "dataverse.contacts.email_field",

	"Dataverse_ProjectsTable":               "dataverse.projects.table",
	"Dataverse_ProjectsIdField":             "dataverse.projects.id_field",
	"Dataverse_ProjectsCustomerLookupField": "dataverse.projects.customer_lookup_field",
	"Dataverse_ProjectsSelectFields":        "dataverse.projects.select",

	"Dataverse_SecondaryTable":               "dataverse.secondary.table",
	"Dataverse_SecondaryMode":                "dataverse.secondary.mode",
	"Dataverse_SecondaryCustomerLookupField": "dataverse.secondary.customer_lookup_field",
	"Dataverse_SecondaryProjectLookupField":  "dataverse.secondary.project_lookup_field",
	"Dataverse_SecondaryIdField":             "dataverse.secondary.id_field",
	"Dataverse_SecondarySelectFields":        "dataverse.secondary.select",
	"Dataverse_SecondaryEntityKey":           "entities.secondary",

	"Dataverse_3rdTable":              "dataverse.third.table",
	"Dataverse_3rdProjectLookupField": "dataverse.third.project_lookup_field",
	"Dataverse_3rdIdField":            "dataverse.third.id_field",
	"Dataverse_3rdSelectFields":       "dataverse.third.select",
	"Dataverse_3rdEntityKey":          "entities.third",

	"Dataverse_4thTable":            "dataverse.fourth.table",
	"Dataverse_4thThirdLookupField": "dataverse.fourth.third_lookup_field",
	"Dataverse_4thIdField":          "dataverse.fourth.id_field",
	"Dataverse_4thSelectFields":     "dataverse.fourth.select",
	"Dataverse_4thEntityKey":        "entities.fourth",

	"Dataverse_5thTable":             "dataverse.fifth.table",
	"Dataverse_5thLookupLevel":       "dataverse.fifth.lookup_level",
	"Dataverse_5thThirdLookupField":  "dataverse.fifth.third_lookup_field",
	"Dataverse_5thFourthLookupField": "dataverse.fifth.fourth_lookup_field",
	"Dataverse_5thSelectFields":      "dataverse.fifth.select",
	"Dataverse_5thEntityKey":         "entities.fifth",

	"Dataverse_6thTable":              "dataverse.sixth.table",
	"Dataverse_6thProjectLookupField": "dataverse.sixth.project_lookup_field",
	"Dataverse_6thSelectFields":       "dataverse.sixth.select",
	"Dataverse_6thEntityKey":          "entities.sixth",

	"Dataverse_ProjectSpaceIdField":                   "dataverse.sixth.id_field",
	"Dataverse_ProjectSpaceCustomerSelectionField":    "dataverse.sixth.customer_selection_field",
	"Dataverse_ProjectSpaceProductSetLookupField":     "dataverse.sixth.product_set_lookup_field",
	"Dataverse_ProjectSpaceProductSetLookupBindField": "dataverse.sixth.product_set_bind_field",
	"Dataverse_ProjectSpaceSubmitEntityKey":           "entities.project_space_selection",

	"Dataverse_ProductAccessField":        "dataverse.product_access.field",
	"Dataverse_ProductAccessAllowedValue": "dataverse.product_access.allowed_value",
	"Dataverse_ProductAccessEntityKey":    "entities.product_access",

	"Dataverse_ProductSelectionEntityKey": "entities.product_selection",

	"Dataverse_ProductSetsTable":        "dataverse.product_sets.table",
	"Dataverse_ProductSetsIdField":      "dataverse.product_sets.id_field",
	"Dataverse_ProductSetsSelectFields": "dataverse.product_sets.select",

	"Dataverse_ProductSetItemsTable":                    "dataverse.product_set_items.table",
	"Dataverse_ProductSetItemsProductSetLookupField":    "dataverse.product_set_items.product_set_lookup_field",
	"Dataverse_ProductSetItemsProductMasterLookupField": "dataverse.product_set_items.product_master_lookup_field",
	"Dataverse_ProductSetItemsSelectFields":             "dataverse.product_set_items.select",

	"Dataverse_ProductMastersTable":        "dataverse.product_masters.table",
	"Dataverse_ProductMastersIdField":      "dataverse.product_masters.id_field",
	"Dataverse_ProductMastersSelectFields": "dataverse.product_masters.select",
}
