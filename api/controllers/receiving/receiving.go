package receiving

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenstock-backend/api/middleware"
	"github.com/angelmondragon/kitchenstock-backend/api/responses"
	"github.com/angelmondragon/kitchenstock-backend/api/validators"
	"github.com/angelmondragon/kitchenstock-backend/internal/receiving"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
)

// Reconciler is satisfied by *receiving.Reconciler.
type Reconciler interface {
	ParseDate(value string) (time.Time, error)
	GetReceivingTasks(ctx context.Context, date time.Time) (*receiving.Tasks, error)
	ConfirmReceiving(ctx context.Context, items []receiving.ConfirmItem, actor string) (*receiving.ConfirmResult, error)
	ListLogs(ctx context.Context, date time.Time) ([]models.ReceivingLog, error)
}

type logItemResponse struct {
	IngredientID   uuid.UUID        `json:"ingredientId"`
	IngredientName string           `json:"ingredientName"`
	DisplayUnit    string           `json:"displayUnit"`
	SuggestedQty   *decimal.Decimal `json:"suggestedQty,omitempty"`
	ReceivedQty    decimal.Decimal  `json:"receivedQty"`
	Note           *string          `json:"note,omitempty"`
}

type logResponse struct {
	ID         uuid.UUID         `json:"id"`
	DateKey    string            `json:"date"`
	ReceivedAt time.Time         `json:"receivedAt"`
	CreatedBy  string            `json:"createdBy"`
	Items      []logItemResponse `json:"items"`
}

func toLogResponse(log models.ReceivingLog) logResponse {
	items := make([]logItemResponse, 0, len(log.Items))
	for _, item := range log.Items {
		out := logItemResponse{
			IngredientID:   item.IngredientID,
			IngredientName: item.IngredientName,
			DisplayUnit:    item.DisplayUnit,
			ReceivedQty:    item.ReceivedQty,
			Note:           item.Note,
		}
		if item.SuggestedQty.Valid {
			suggested := item.SuggestedQty.Decimal
			out.SuggestedQty = &suggested
		}
		items = append(items, out)
	}
	return logResponse{
		ID:         log.ID,
		DateKey:    log.DateKey,
		ReceivedAt: log.ReceivedAt,
		CreatedBy:  log.CreatedBy,
		Items:      items,
	}
}

type confirmRequest struct {
	Items []receiving.ConfirmItem `json:"items" validate:"required,min=1"`
}

// Tasks lists the ingredients due for receiving on ?date=YYYY-MM-DD, today by default.
func Tasks(svc Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receiving service unavailable"))
			return
		}

		date, err := svc.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tasks, err := svc.GetReceivingTasks(r.Context(), date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tasks)
	}
}

// Confirm books delivered quantities and returns how many lines were applied.
func Confirm(svc Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receiving service unavailable"))
			return
		}

		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		for i := range payload.Items {
			payload.Items[i].Note = validators.SanitizeString(payload.Items[i].Note, 500)
		}

		result, err := svc.ConfirmReceiving(r.Context(), payload.Items, middleware.StaffIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// Logs lists the receiving sessions booked on ?date=YYYY-MM-DD.
func Logs(svc Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receiving service unavailable"))
			return
		}

		date, err := svc.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logs, err := svc.ListLogs(r.Context(), date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]logResponse, 0, len(logs))
		for _, log := range logs {
			out = append(out, toLogResponse(log))
		}
		responses.WriteSuccess(w, map[string]any{"items": out})
	}
}
