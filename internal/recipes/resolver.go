package recipes

import (
	"context"
	"fmt"

	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ingredientReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Ingredient, error)
}

// LineItem is one ordered product and how many units of it were ordered.
type LineItem struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

// Requirements is the aggregated base-unit demand for a set of line items.
type Requirements struct {
	RequiredItems  []models.IngredientQuantity `json:"requiredItems"`
	Shortages      []types.Shortage            `json:"shortages"`
	MissingRecipes []types.MissingRecipe       `json:"missingRecipes"`
}

// Blocked reports whether the requirements cannot be deducted as-is.
func (r *Requirements) Blocked() bool {
	return len(r.MissingRecipes) > 0 || len(r.Shortages) > 0
}

// Err returns the typed error for the first blocking condition, missing
// recipes before shortages.
func (r *Requirements) Err() error {
	if len(r.MissingRecipes) > 0 {
		return pkgerrors.RecipeMissing(r.MissingRecipes)
	}
	if len(r.Shortages) > 0 {
		return pkgerrors.Insufficient(r.Shortages)
	}
	return nil
}

// Resolver turns ordered products into ingredient demand. It never mutates.
type Resolver struct {
	recipes     Repository
	ingredients ingredientReader
}

// NewResolver wires a resolver over the recipe and ingredient stores.
func NewResolver(recipes Repository, ingredients ingredientReader) (*Resolver, error) {
	if recipes == nil {
		return nil, fmt.Errorf("recipes repository required")
	}
	if ingredients == nil {
		return nil, fmt.Errorf("ingredient reader required")
	}
	return &Resolver{recipes: recipes, ingredients: ingredients}, nil
}

// Resolve aggregates per-ingredient demand across lines, merging the same
// ingredient drawn from different products, and reports shortages and
// products without an active recipe. Lines with a non-positive quantity
// contribute nothing.
func (r *Resolver) Resolve(ctx context.Context, lines []LineItem) (*Requirements, error) {
	result := &Requirements{
		RequiredItems:  []models.IngredientQuantity{},
		Shortages:      []types.Shortage{},
		MissingRecipes: []types.MissingRecipe{},
	}

	productIDs := make([]uuid.UUID, 0, len(lines))
	seenProducts := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if _, ok := seenProducts[line.ProductID]; ok {
			continue
		}
		seenProducts[line.ProductID] = struct{}{}
		productIDs = append(productIDs, line.ProductID)
	}
	if len(productIDs) == 0 {
		return result, nil
	}

	recipes, err := r.recipes.FindActiveByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipes")
	}
	byProduct := make(map[uuid.UUID]models.Recipe, len(recipes))
	for _, recipe := range recipes {
		byProduct[recipe.ProductID] = recipe
	}

	required := map[uuid.UUID]decimal.Decimal{}
	order := []uuid.UUID{}
	reportedMissing := map[uuid.UUID]struct{}{}
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		recipe, ok := byProduct[line.ProductID]
		if !ok {
			if _, dup := reportedMissing[line.ProductID]; !dup {
				reportedMissing[line.ProductID] = struct{}{}
				result.MissingRecipes = append(result.MissingRecipes, types.MissingRecipe{
					ProductID: line.ProductID,
					Name:      line.Name,
				})
			}
			continue
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		for _, component := range recipe.Items {
			amount := component.QuantityPerUnit.Mul(qty)
			if amount.Sign() <= 0 {
				continue
			}
			current, ok := required[component.IngredientID]
			if !ok {
				order = append(order, component.IngredientID)
			}
			required[component.IngredientID] = current.Add(amount)
		}
	}
	if len(order) == 0 {
		return result, nil
	}

	ingredients, err := r.ingredients.FindByIDs(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredient stock")
	}
	stock := make(map[uuid.UUID]models.Ingredient, len(ingredients))
	for _, ingredient := range ingredients {
		stock[ingredient.ID] = ingredient
	}

	for _, id := range order {
		need := required[id]
		result.RequiredItems = append(result.RequiredItems, models.IngredientQuantity{IngredientID: id, Quantity: need})

		ingredient, known := stock[id]
		available := decimal.Zero
		if known {
			available = ingredient.StockOnHand
		}
		if need.GreaterThan(available) {
			result.Shortages = append(result.Shortages, types.Shortage{
				IngredientID:   id,
				IngredientName: ingredient.Name,
				BaseUnit:       ingredient.BaseUnit.String(),
				Required:       need,
				Available:      available,
				Shortage:       need.Sub(available),
			})
		}
	}
	return result, nil
}
