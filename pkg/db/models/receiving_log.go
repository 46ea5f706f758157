package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReceivingLog is an append-only record of one receiving session.
type ReceivingLog struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	DateKey    string             `gorm:"column:date_key;not null;index"`
	ReceivedAt time.Time          `gorm:"column:received_at;not null"`
	CreatedBy  string             `gorm:"column:created_by;not null"`
	Items      []ReceivingLogItem `gorm:"foreignKey:ReceivingLogID"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (r *ReceivingLog) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// ReceivingLogItem snapshots one received ingredient in display units.
type ReceivingLogItem struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ReceivingLogID uuid.UUID           `gorm:"column:receiving_log_id;type:uuid;not null;index"`
	IngredientID   uuid.UUID           `gorm:"column:ingredient_id;type:uuid;not null;index"`
	IngredientName string              `gorm:"column:ingredient_name;not null"`
	DisplayUnit    string              `gorm:"column:display_unit;not null"`
	SuggestedQty   decimal.NullDecimal `gorm:"column:suggested_qty;type:numeric(14,3)"`
	ReceivedQty    decimal.Decimal     `gorm:"column:received_qty;type:numeric(14,3);not null"`
	Note           *string             `gorm:"column:note"`
}

func (r *ReceivingLogItem) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
