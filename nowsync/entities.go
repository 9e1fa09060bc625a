package nowsync

// Entity registry: one spec per mirrored ServiceNow entity. Table names are
// the remote system's; collections are the local mirror's.

var (
	Account = EntitySpec{
		Name:       "account",
		Collection: "accounts",
		Table:      "customer_account",
		Dependents: []DependentSpec{
			{Entity: "contact", Field: "account"},
			{Entity: "location", Field: "account"},
		},
	}

	Contact = EntitySpec{
		Name:       "contact",
		Collection: "contacts",
		Table:      "customer_contact",
		Refs:       []RefSpec{{Field: "account", Entity: "account"}},
	}

	Location = EntitySpec{
		Name:       "location",
		Collection: "locations",
		Table:      "cmn_location",
		Refs:       []RefSpec{{Field: "account", Entity: "account"}},
	}

	Opportunity = EntitySpec{
		Name:       "opportunity",
		Collection: "opportunities",
		Table:      "sn_opty_mgmt_core_opportunity",
		Refs: []RefSpec{
			{Field: "account", Entity: "account"},
			{Field: "price_list", Entity: "priceList"},
		},
		Dependents: []DependentSpec{{Entity: "quote", Field: "opportunity"}},
	}

	Quote = EntitySpec{
		Name:       "quote",
		Collection: "quotes",
		Table:      "sn_quote_mgmt_core_quote",
		Refs: []RefSpec{
			{Field: "account", Entity: "account"},
			{Field: "opportunity", Entity: "opportunity"},
		},
		Dependents: []DependentSpec{{Entity: "quoteLine", Field: "quote"}},
	}

	QuoteLine = EntitySpec{
		Name:       "quoteLine",
		Collection: "quote_lines",
		Table:      "sn_quote_mgmt_core_quote_line",
		Refs: []RefSpec{
			{Field: "quote", Entity: "quote"},
			{Field: "product_offering", Entity: "productOffering"},
		},
	}

	PriceList = EntitySpec{
		Name:       "priceList",
		Collection: "price_lists",
		Table:      "sn_prd_pm_price_list",
	}

	ProductOffering = EntitySpec{
		Name:       "productOffering",
		Collection: "product_offerings",
		Table:      "sn_prd_pm_product_offering",
		Refs:       []RefSpec{{Field: "price_list", Entity: "priceList"}},
		Dependents: []DependentSpec{{Entity: "catalogCategoryRelation", Field: "source"}},
	}

	ProductOfferingCategory = EntitySpec{
		Name:       "productOfferingCategory",
		Collection: "product_offering_categories",
		Table:      "sn_prd_pm_category",
		Dependents: []DependentSpec{{Entity: "catalogCategoryRelation", Field: "target"}},
	}

	Contract = EntitySpec{
		Name:       "contract",
		Collection: "contracts",
		Table:      "ast_contract",
		Refs: []RefSpec{
			{Field: "account", Entity: "account"},
			{Field: "quote", Entity: "quote"},
		},
	}

	Order = EntitySpec{
		Name:       "order",
		Collection: "orders",
		Table:      "sn_ind_tmt_orm_order",
		Refs: []RefSpec{
			{Field: "account", Entity: "account"},
			{Field: "quote", Entity: "quote"},
		},
	}

	// CatalogCategoryRelation is the join record binding a product offering
	// to a category. Never mutated standalone from a route; only through the
	// relationship synchronizer as a sub-step of the parent's mutation.
	CatalogCategoryRelation = EntitySpec{
		Name:       "catalogCategoryRelation",
		Collection: "catalog_category_relations",
		Table:      "sn_prd_pm_catalog_category_relation",
		Refs: []RefSpec{
			{Field: "source", Entity: "productOffering"},
			{Field: "target", Entity: "productOfferingCategory"},
		},
	}
)

// Registry maps entity names to specs; the resolver uses it to find the
// collection a ref field points into.
var Registry = map[string]EntitySpec{
	Account.Name:                 Account,
	Contact.Name:                 Contact,
	Location.Name:                Location,
	Opportunity.Name:             Opportunity,
	Quote.Name:                   Quote,
	QuoteLine.Name:               QuoteLine,
	PriceList.Name:               PriceList,
	ProductOffering.Name:         ProductOffering,
	ProductOfferingCategory.Name: ProductOfferingCategory,
	Contract.Name:                Contract,
	Order.Name:                   Order,
	CatalogCategoryRelation.Name: CatalogCategoryRelation,
}

func CollectionFor(entity string) string {
	if spec, ok := Registry[entity]; ok {
		return spec.Collection
	}
	return entity
}
