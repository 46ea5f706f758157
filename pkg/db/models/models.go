package models

// All lists every persisted model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&Ingredient{},
		&Recipe{},
		&RecipeItem{},
		&Order{},
		&OrderLineItem{},
		&LowStockAlert{},
		&ReceivingLog{},
		&ReceivingLogItem{},
	}
}
