package receiving

import (
	"context"

	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository appends receiving logs and answers what was received on a day.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLog(ctx context.Context, log *models.ReceivingLog) error
	ReceivedIngredientIDs(ctx context.Context, dateKey string) ([]uuid.UUID, error)
	ListByDate(ctx context.Context, dateKey string) ([]models.ReceivingLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a receiving repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateLog writes the log header and its items. Logs are never updated.
func (r *repository) CreateLog(ctx context.Context, log *models.ReceivingLog) error {
	items := log.Items
	if err := r.db.WithContext(ctx).Omit("Items").Create(log).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ReceivingLogID = log.ID
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return err
	}
	log.Items = items
	return nil
}

func (r *repository) ReceivedIngredientIDs(ctx context.Context, dateKey string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ReceivingLogItem{}).
		Joins("JOIN receiving_logs ON receiving_logs.id = receiving_log_items.receiving_log_id").
		Where("receiving_logs.date_key = ?", dateKey).
		Distinct().
		Pluck("receiving_log_items.ingredient_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) ListByDate(ctx context.Context, dateKey string) ([]models.ReceivingLog, error) {
	var rows []models.ReceivingLog
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("date_key = ?", dateKey).
		Order("received_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
