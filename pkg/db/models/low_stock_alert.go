package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
)

// LowStockAlert is the single alert row kept per ingredient.
type LowStockAlert struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	IngredientID uuid.UUID         `gorm:"column:ingredient_id;type:uuid;not null;uniqueIndex"`
	Status       enums.AlertStatus `gorm:"column:status;not null;default:'open'"`
	FirstSeenAt  time.Time         `gorm:"column:first_seen_at;not null"`
	LastSeenAt   time.Time         `gorm:"column:last_seen_at;not null"`
	ReportedAt   *time.Time        `gorm:"column:reported_at"`
	ReportedBy   *string           `gorm:"column:reported_by"`
	CheckedAt    *time.Time        `gorm:"column:checked_at"`
	CheckedBy    *string           `gorm:"column:checked_by"`
	ResolvedAt   *time.Time        `gorm:"column:resolved_at"`
	ResolvedBy   *string           `gorm:"column:resolved_by"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *LowStockAlert) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
