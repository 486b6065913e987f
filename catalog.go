package main

import "slices"

// Canonical decision-support table set, alphabetical. Registration order
// only affects timing-log readability, not correctness.
var decisionSupportTables = []string{
	"call_center",
	"catalog_page",
	"catalog_returns",
	"catalog_sales",
	"customer",
	"customer_address",
	"customer_demographics",
	"date_dim",
	"dbgen_version",
	"household_demographics",
	"income_band",
	"inventory",
	"item",
	"promotion",
	"reason",
	"ship_mode",
	"store",
	"store_returns",
	"store_sales",
	"time_dim",
	"warehouse",
	"web_page",
	"web_returns",
	"web_sales",
	"web_site",
}

func DefaultCatalog() []string {
	return slices.Clone(decisionSupportTables)
}

func CatalogFromConfig(config Config) []string {
	if len(config.Tables) > 0 {
		return slices.Clone(config.Tables)
	}
	return DefaultCatalog()
}
