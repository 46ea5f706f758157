package alerts

import (
	"context"
	"time"

	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the single alert row kept per ingredient.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByIngredientIDs(ctx context.Context, ingredientIDs []uuid.UUID) ([]models.LowStockAlert, error)
	FindByIngredientID(ctx context.Context, ingredientID uuid.UUID) (*models.LowStockAlert, error)
	Touch(ctx context.Context, ingredientIDs []uuid.UUID, seenAt time.Time) error
	Reopen(ctx context.Context, ingredientIDs []uuid.UUID, seenAt time.Time) (int64, error)
	UpdateIfStatus(ctx context.Context, ingredientID uuid.UUID, from enums.AlertStatus, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an alert repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByIngredientIDs(ctx context.Context, ingredientIDs []uuid.UUID) ([]models.LowStockAlert, error) {
	if len(ingredientIDs) == 0 {
		return []models.LowStockAlert{}, nil
	}
	var rows []models.LowStockAlert
	if err := r.db.WithContext(ctx).
		Where("ingredient_id IN ?", ingredientIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByIngredientID(ctx context.Context, ingredientID uuid.UUID) (*models.LowStockAlert, error) {
	var alert models.LowStockAlert
	if err := r.db.WithContext(ctx).First(&alert, "ingredient_id = ?", ingredientID).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// Touch inserts an open alert for every ingredient seen for the first time and
// only refreshes last_seen_at on rows that already exist.
func (r *repository) Touch(ctx context.Context, ingredientIDs []uuid.UUID, seenAt time.Time) error {
	if len(ingredientIDs) == 0 {
		return nil
	}
	rows := make([]models.LowStockAlert, 0, len(ingredientIDs))
	for _, id := range ingredientIDs {
		rows = append(rows, models.LowStockAlert{
			IngredientID: id,
			Status:       enums.AlertStatusOpen,
			FirstSeenAt:  seenAt,
			LastSeenAt:   seenAt,
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ingredient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_seen_at", "updated_at"}),
		}).
		Create(&rows).Error
}

// Reopen moves resolved alerts for the given ingredients back to open.
func (r *repository) Reopen(ctx context.Context, ingredientIDs []uuid.UUID, seenAt time.Time) (int64, error) {
	if len(ingredientIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.LowStockAlert{}).
		Where("ingredient_id IN ? AND status = ?", ingredientIDs, enums.AlertStatusResolved).
		Updates(map[string]any{
			"status":        enums.AlertStatusOpen,
			"first_seen_at": seenAt,
			"last_seen_at":  seenAt,
			"reported_at":   nil,
			"reported_by":   nil,
			"checked_at":    nil,
			"checked_by":    nil,
			"resolved_at":   nil,
			"resolved_by":   nil,
		})
	return res.RowsAffected, res.Error
}

// UpdateIfStatus applies updates while the alert is still in the observed
// status. false means another writer moved it first.
func (r *repository) UpdateIfStatus(ctx context.Context, ingredientID uuid.UUID, from enums.AlertStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LowStockAlert{}).
		Where("ingredient_id = ? AND status = ?", ingredientID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
