package recipes

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages recipe definitions.
type Service interface {
	Upsert(ctx context.Context, input UpsertRecipeInput) (*models.Recipe, error)
	Get(ctx context.Context, productID uuid.UUID) (*models.Recipe, error)
}

// UpsertRecipeInput replaces the full component list of a product's recipe.
type UpsertRecipeInput struct {
	ProductID uuid.UUID
	IsActive  bool
	Items     []ComponentInput
}

// ComponentInput is one ingredient with its per-unit base quantity.
type ComponentInput struct {
	IngredientID    uuid.UUID
	QuantityPerUnit decimal.Decimal
}

type service struct {
	repo        Repository
	ingredients ingredientReader
	tx          txRunner
}

// NewService builds a recipe service.
func NewService(repo Repository, ingredients ingredientReader, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("recipes repository required")
	}
	if ingredients == nil {
		return nil, fmt.Errorf("ingredient reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, ingredients: ingredients, tx: tx}, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertRecipeInput) (*models.Recipe, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe requires at least one component")
	}

	merged := map[uuid.UUID]decimal.Decimal{}
	ids := []uuid.UUID{}
	for _, item := range input.Items {
		if item.IngredientID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
		}
		if item.QuantityPerUnit.Sign() <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity per unit must be positive")
		}
		if _, ok := merged[item.IngredientID]; !ok {
			ids = append(ids, item.IngredientID)
		}
		merged[item.IngredientID] = merged[item.IngredientID].Add(item.QuantityPerUnit)
	}

	found, err := s.ingredients.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredients")
	}
	if len(found) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe references unknown ingredients")
	}

	var saved *models.Recipe
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		recipe, err := repo.FindByProductID(ctx, input.ProductID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipe")
			}
			recipe = &models.Recipe{ProductID: input.ProductID}
		}
		recipe.IsActive = input.IsActive
		if err := repo.Save(ctx, recipe); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save recipe")
		}

		items := make([]models.RecipeItem, 0, len(ids))
		for _, id := range ids {
			items = append(items, models.RecipeItem{IngredientID: id, QuantityPerUnit: merged[id]})
		}
		if err := repo.ReplaceItems(ctx, recipe.ID, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save recipe items")
		}
		recipe.Items = items
		saved = recipe
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recipe not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipe")
	}
	return recipe, nil
}
