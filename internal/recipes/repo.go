package recipes

import (
	"context"

	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for recipes and their components.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.Recipe, error)
	FindByProductID(ctx context.Context, productID uuid.UUID) (*models.Recipe, error)
	Save(ctx context.Context, recipe *models.Recipe) error
	ReplaceItems(ctx context.Context, recipeID uuid.UUID, items []models.RecipeItem) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a recipe repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.Recipe, error) {
	if len(productIDs) == 0 {
		return []models.Recipe{}, nil
	}
	var rows []models.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("product_id IN ? AND is_active = ?", productIDs, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByProductID(ctx context.Context, productID uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&recipe, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

// Save inserts or updates the recipe row itself. Components are written by
// ReplaceItems.
func (r *repository) Save(ctx context.Context, recipe *models.Recipe) error {
	return r.db.WithContext(ctx).Omit("Items").Save(recipe).Error
}

func (r *repository) ReplaceItems(ctx context.Context, recipeID uuid.UUID, items []models.RecipeItem) error {
	if err := r.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Delete(&models.RecipeItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].RecipeID = recipeID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}
