package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shortage describes how far required stock exceeds what is on hand. All
// quantities are in base units.
type Shortage struct {
	IngredientID   uuid.UUID       `json:"ingredientId"`
	IngredientName string          `json:"ingredientName"`
	BaseUnit       string          `json:"baseUnit"`
	Required       decimal.Decimal `json:"required"`
	Available      decimal.Decimal `json:"available"`
	Shortage       decimal.Decimal `json:"shortage"`
}

// MissingRecipe names an ordered product that has no active recipe.
type MissingRecipe struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
}
