package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenstock-backend/api/responses"
	"github.com/angelmondragon/kitchenstock-backend/api/validators"
	"github.com/angelmondragon/kitchenstock-backend/internal/ingredients"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/angelmondragon/kitchenstock-backend/pkg/units"
)

type createIngredientRequest struct {
	Name             string           `json:"name" validate:"required,max=120"`
	DisplayUnit      string           `json:"displayUnit" validate:"max=20"`
	BaseUnit         string           `json:"baseUnit" validate:"required"`
	ConversionFactor decimal.Decimal  `json:"conversionFactor" validate:"gte=0"`
	InitialStock     decimal.Decimal  `json:"initialStock" validate:"gte=0"`
	IssueRule        string           `json:"issueRule"`
	CycleDays        *int             `json:"cycleDays,omitempty" validate:"omitempty,min=1"`
	ParLevel         *decimal.Decimal `json:"parLevel,omitempty" validate:"omitempty,gte=0"`
	MinStockLevel    *decimal.Decimal `json:"minStockLevel,omitempty" validate:"omitempty,gte=0"`
}

// ingredientResponse reports quantities in display units next to the raw
// base-unit stock.
type ingredientResponse struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	DisplayUnit      string           `json:"displayUnit"`
	BaseUnit         enums.BaseUnit   `json:"baseUnit"`
	ConversionFactor decimal.Decimal  `json:"conversionFactor"`
	StockOnHand      decimal.Decimal  `json:"stockOnHand"`
	StockQty         decimal.Decimal  `json:"stockQty"`
	ParQty           decimal.Decimal  `json:"parQty"`
	MinQty           *decimal.Decimal `json:"minQty,omitempty"`
	IssueRule        enums.IssueRule  `json:"issueRule"`
	CycleDays        *int             `json:"cycleDays,omitempty"`
	NextReceiveDate  *time.Time       `json:"nextReceiveDate,omitempty"`
	LastReceivedAt   *time.Time       `json:"lastReceivedAt,omitempty"`
}

func toIngredientResponse(ingredient models.Ingredient) ingredientResponse {
	resp := ingredientResponse{
		ID:               ingredient.ID,
		Name:             ingredient.Name,
		DisplayUnit:      ingredient.DisplayUnit,
		BaseUnit:         ingredient.BaseUnit,
		ConversionFactor: ingredient.ConversionFactor,
		StockOnHand:      ingredient.StockOnHand,
		StockQty:         units.ToDisplay(ingredient.StockOnHand, ingredient.ConversionFactor),
		ParQty:           units.ToDisplay(ingredient.ParLevel, ingredient.ConversionFactor),
		IssueRule:        ingredient.IssueRule,
		CycleDays:        ingredient.CycleDays,
		NextReceiveDate:  ingredient.NextReceiveDate,
		LastReceivedAt:   ingredient.LastReceivedAt,
	}
	if ingredient.MinStockLevel.Valid {
		minQty := units.ToDisplay(ingredient.MinStockLevel.Decimal, ingredient.ConversionFactor)
		resp.MinQty = &minQty
	}
	return resp
}

// CreateIngredient registers an ingredient. Quantities arrive in display units.
func CreateIngredient(svc ingredients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingredients service unavailable"))
			return
		}

		var payload createIngredientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		baseUnit, err := enums.ParseBaseUnit(strings.TrimSpace(payload.BaseUnit))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid base unit"))
			return
		}
		var rule enums.IssueRule
		if raw := strings.TrimSpace(payload.IssueRule); raw != "" {
			rule, err = enums.ParseIssueRule(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid issue rule"))
				return
			}
		}

		ingredient, err := svc.Create(r.Context(), ingredients.CreateIngredientInput{
			Name:             validators.SanitizeString(payload.Name, 120),
			DisplayUnit:      validators.SanitizeString(payload.DisplayUnit, 20),
			BaseUnit:         baseUnit,
			ConversionFactor: payload.ConversionFactor,
			InitialStock:     payload.InitialStock,
			IssueRule:        rule,
			CycleDays:        payload.CycleDays,
			ParLevel:         payload.ParLevel,
			MinStockLevel:    payload.MinStockLevel,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toIngredientResponse(*ingredient))
	}
}

// ListIngredients returns every ingredient ordered by name.
func ListIngredients(svc ingredients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingredients service unavailable"))
			return
		}

		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]ingredientResponse, 0, len(rows))
		for _, row := range rows {
			items = append(items, toIngredientResponse(row))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
