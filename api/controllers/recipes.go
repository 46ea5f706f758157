package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenstock-backend/api/responses"
	"github.com/angelmondragon/kitchenstock-backend/api/validators"
	"github.com/angelmondragon/kitchenstock-backend/internal/recipes"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
)

type upsertRecipeRequest struct {
	IsActive *bool                    `json:"isActive,omitempty"`
	Items    []recipeComponentRequest `json:"items" validate:"required,min=1,dive"`
}

type recipeComponentRequest struct {
	IngredientID    uuid.UUID       `json:"ingredientId" validate:"required"`
	QuantityPerUnit decimal.Decimal `json:"quantityPerUnit" validate:"gt=0"`
}

type recipeResponse struct {
	ProductID uuid.UUID                `json:"productId"`
	IsActive  bool                     `json:"isActive"`
	Items     []recipeComponentRequest `json:"items"`
}

func toRecipeResponse(recipe *models.Recipe) recipeResponse {
	items := make([]recipeComponentRequest, 0, len(recipe.Items))
	for _, item := range recipe.Items {
		items = append(items, recipeComponentRequest{IngredientID: item.IngredientID, QuantityPerUnit: item.QuantityPerUnit})
	}
	return recipeResponse{ProductID: recipe.ProductID, IsActive: recipe.IsActive, Items: items}
}

// UpsertRecipe replaces the component list of a product's recipe. Quantities
// are base units per one unit of product. Recipes default to active.
func UpsertRecipe(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipes service unavailable"))
			return
		}

		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upsertRecipeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := recipes.UpsertRecipeInput{
			ProductID: productID,
			IsActive:  payload.IsActive == nil || *payload.IsActive,
			Items:     make([]recipes.ComponentInput, 0, len(payload.Items)),
		}
		for _, item := range payload.Items {
			input.Items = append(input.Items, recipes.ComponentInput{
				IngredientID:    item.IngredientID,
				QuantityPerUnit: item.QuantityPerUnit,
			})
		}

		recipe, err := svc.Upsert(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toRecipeResponse(recipe))
	}
}

func GetRecipe(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipes service unavailable"))
			return
		}

		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipe, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toRecipeResponse(recipe))
	}
}

func parseProductID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "productId"))
	productID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	return productID, nil
}
