package inventory

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenstock-backend/api/middleware"
	"github.com/angelmondragon/kitchenstock-backend/api/responses"
	"github.com/angelmondragon/kitchenstock-backend/api/validators"
	"github.com/angelmondragon/kitchenstock-backend/internal/alerts"
	"github.com/angelmondragon/kitchenstock-backend/internal/recipes"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
)

// RequirementResolver is satisfied by *recipes.Resolver.
type RequirementResolver interface {
	Resolve(ctx context.Context, lines []recipes.LineItem) (*recipes.Requirements, error)
}

// AlertEngine is satisfied by *alerts.Engine.
type AlertEngine interface {
	ScanLowStock(ctx context.Context) ([]alerts.LowStockItem, error)
	Apply(ctx context.Context, ingredientID uuid.UUID, action enums.AlertAction, actor string) (*models.LowStockAlert, error)
}

type requirementsRequest struct {
	Items []recipes.LineItem `json:"items" validate:"required,min=1"`
}

// Requirements previews the aggregated ingredient demand and any shortages
// without touching stock.
func Requirements(resolver RequirementResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requirement resolver unavailable"))
			return
		}

		var payload requirementsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reqs, err := resolver.Resolve(r.Context(), payload.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, reqs)
	}
}

// LowStock runs a scan and lists every ingredient currently below threshold.
func LowStock(engine AlertEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert engine unavailable"))
			return
		}

		items, err := engine.ScanLowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []alerts.LowStockItem{}
		}

		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

type alertResponse struct {
	IngredientID string            `json:"ingredientId"`
	Status       enums.AlertStatus `json:"status"`
	ReportedBy   *string           `json:"reportedBy,omitempty"`
	CheckedBy    *string           `json:"checkedBy,omitempty"`
	ResolvedBy   *string           `json:"resolvedBy,omitempty"`
}

// AlertAction applies the staff action named by the final route segment.
func AlertAction(engine AlertEngine, action enums.AlertAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert engine unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "ingredientId"))
		ingredientID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ingredient id"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithIngredientID(ctx, ingredientID.String())
		}

		alert, err := engine.Apply(ctx, ingredientID, action, middleware.StaffIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, alertResponse{
			IngredientID: alert.IngredientID.String(),
			Status:       alert.Status,
			ReportedBy:   alert.ReportedBy,
			CheckedBy:    alert.CheckedBy,
			ResolvedBy:   alert.ResolvedBy,
		})
	}
}
