package alerts

import (
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// DefaultRatio is the share of the threshold below which stock counts as low.
var DefaultRatio = decimal.RequireFromString("0.1")

// Threshold returns the level stock is measured against: par when set, else
// the minimum stock level. ok is false when the ingredient is never flagged.
func Threshold(ingredient models.Ingredient) (decimal.Decimal, bool) {
	if ingredient.ParLevel.Sign() > 0 {
		return ingredient.ParLevel, true
	}
	if ingredient.MinStockLevel.Valid && ingredient.MinStockLevel.Decimal.Sign() > 0 {
		return ingredient.MinStockLevel.Decimal, true
	}
	return decimal.Zero, false
}

// IsLow reports whether stock sits below ratio of the ingredient threshold.
// Stock and threshold are both compared in base units.
func IsLow(ingredient models.Ingredient, ratio decimal.Decimal) bool {
	threshold, ok := Threshold(ingredient)
	if !ok {
		return false
	}
	return ingredient.StockOnHand.LessThan(threshold.Mul(ratio))
}
