package ingredients

import (
	"context"
	"time"

	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for ingredients. Stock columns are written
// only by the ledger package.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ingredient *models.Ingredient) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Ingredient, error)
	List(ctx context.Context) ([]models.Ingredient, error)
	UpdateReceivingSchedule(ctx context.Context, id uuid.UUID, lastReceivedAt time.Time, nextReceiveDate *time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an ingredient repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ingredient *models.Ingredient) error {
	return r.db.WithContext(ctx).Create(ingredient).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Ingredient, error) {
	if len(ids) == 0 {
		return []models.Ingredient{}, nil
	}
	var rows []models.Ingredient
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) List(ctx context.Context) ([]models.Ingredient, error) {
	var rows []models.Ingredient
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateReceivingSchedule(ctx context.Context, id uuid.UUID, lastReceivedAt time.Time, nextReceiveDate *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Ingredient{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_received_at":  lastReceivedAt,
			"next_receive_date": nextReceiveDate,
			"updated_at":        time.Now().UTC(),
		}).Error
}
