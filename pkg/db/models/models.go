package models

// All lists every model in dependency order, for AutoMigrate on non-Postgres drivers.
func All() []any {
	return []any{
		&Store{},
		&User{},
		&ProductVariation{},
		&Widget{},
		&PriceList{},
		&PriceListItem{},
		&PriceListItemRef{},
	}
}
