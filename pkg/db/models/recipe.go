package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recipe maps one product to the ingredients a single unit consumes.
type Recipe struct {
	ID        uuid.UUID    `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID    `gorm:"column:product_id;type:uuid;not null;uniqueIndex"`
	IsActive  bool         `gorm:"column:is_active;not null"`
	Items     []RecipeItem `gorm:"foreignKey:RecipeID"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Recipe) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// RecipeItem is one ingredient component with its per-unit base quantity.
type RecipeItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RecipeID        uuid.UUID       `gorm:"column:recipe_id;type:uuid;not null;index"`
	IngredientID    uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null"`
	QuantityPerUnit decimal.Decimal `gorm:"column:quantity_per_unit;type:numeric(14,3);not null"`
}

func (r *RecipeItem) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
