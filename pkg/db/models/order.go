package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
)

// IngredientQuantity is an amount of one ingredient in base units.
type IngredientQuantity struct {
	IngredientID uuid.UUID       `json:"ingredientId"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// Order carries the kitchen workflow state plus the bookkeeping that records
// exactly what stock it currently holds.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Status        enums.OrderStatus   `gorm:"column:status;not null"`
	KitchenStatus enums.KitchenStatus `gorm:"column:kitchen_status;not null;index"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	Note          *string             `gorm:"column:note"`
	CreatedBy     string              `gorm:"column:created_by;not null"`
	Items         []OrderLineItem     `gorm:"foreignKey:OrderID"`

	AcceptedAt       *time.Time              `gorm:"column:accepted_at"`
	AcceptedBy       *string                 `gorm:"column:accepted_by"`
	CookingStartedAt *time.Time              `gorm:"column:cooking_started_at"`
	CompletedAt      *time.Time              `gorm:"column:completed_at"`
	RejectedAt       *time.Time              `gorm:"column:rejected_at"`
	RejectedBy       *string                 `gorm:"column:rejected_by"`
	RejectReasonCode *enums.RejectReasonCode `gorm:"column:reject_reason_code"`
	RejectNote       *string                 `gorm:"column:reject_note"`

	IngredientsDeductedAt    *time.Time           `gorm:"column:ingredients_deducted_at"`
	IngredientsDeductedBy    *string              `gorm:"column:ingredients_deducted_by"`
	IngredientsDeductedItems []IngredientQuantity `gorm:"column:ingredients_deducted_items;type:jsonb;serializer:json"`
	IngredientsRestockedAt   *time.Time           `gorm:"column:ingredients_restocked_at"`
	IngredientsRestockedBy   *string              `gorm:"column:ingredients_restocked_by"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// HoldsDeduction reports whether the order currently holds stock that has not
// been restocked.
func (o *Order) HoldsDeduction() bool {
	return o.IngredientsDeductedAt != nil && o.IngredientsRestockedAt == nil
}

// OrderLineItem snapshots one ordered product.
type OrderLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position  int             `gorm:"column:position;not null;default:0"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (o *OrderLineItem) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
