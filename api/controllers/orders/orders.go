package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenstock-backend/api/middleware"
	"github.com/angelmondragon/kitchenstock-backend/api/responses"
	"github.com/angelmondragon/kitchenstock-backend/api/validators"
	internalorders "github.com/angelmondragon/kitchenstock-backend/internal/orders"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
)

// Create places an order and deducts its ingredients in one step.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			Items: make([]internalorders.OrderItemInput, 0, len(payload.Items)),
			Note:  payload.Note,
			Actor: middleware.StaffIDFromContext(r.Context()),
		}
		for _, item := range payload.Items {
			input.Items = append(input.Items, internalorders.OrderItemInput{
				ProductID: item.ProductID,
				Name:      validators.SanitizeString(item.Name, 200),
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
	}
}

// Detail returns one order with its line items and deduction bookkeeping.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// TransitionKitchenStatus moves an order through the kitchen workflow.
func TransitionKitchenStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseKitchenStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kitchen status"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}

		order, err := svc.TransitionKitchenStatus(ctx, internalorders.TransitionInput{
			OrderID: orderID,
			Target:  target,
			Reason:  payload.Reason,
			Actor:   middleware.StaffIDFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
