package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
)

// Ingredient is a stock-tracked resource. StockOnHand, ParLevel and
// MinStockLevel are expressed in base units.
type Ingredient struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name             string              `gorm:"column:name;not null;uniqueIndex"`
	DisplayUnit      string              `gorm:"column:display_unit;not null"`
	BaseUnit         enums.BaseUnit      `gorm:"column:base_unit;not null"`
	ConversionFactor decimal.Decimal     `gorm:"column:conversion_factor;type:numeric(14,4);not null;default:1"`
	StockOnHand      decimal.Decimal     `gorm:"column:stock_on_hand;type:numeric(14,3);not null;default:0;check:chk_ingredients_stock_non_negative,stock_on_hand >= 0"`
	IssueRule        enums.IssueRule     `gorm:"column:issue_rule;not null;default:'daily'"`
	CycleDays        *int                `gorm:"column:cycle_days"`
	NextReceiveDate  *time.Time          `gorm:"column:next_receive_date"`
	LastReceivedAt   *time.Time          `gorm:"column:last_received_at"`
	ParLevel         decimal.Decimal     `gorm:"column:par_level;type:numeric(14,3);not null;default:0"`
	MinStockLevel    decimal.NullDecimal `gorm:"column:min_stock_level;type:numeric(14,3)"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Ingredient) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
