package orders

import (
	"strings"

	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderInput is an order draft placed by staff.
type CreateOrderInput struct {
	Items []OrderItemInput
	Note  *string
	Actor string
}

// OrderItemInput is one product on an order draft.
type OrderItemInput struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// TransitionInput moves an order to Target on behalf of Actor.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.KitchenStatus
	Reason  *RejectReason
	Actor   string
}

// RejectReason is the structured reason recorded when the kitchen rejects.
type RejectReason struct {
	Code enums.RejectReasonCode `json:"reasonCode"`
	Note string                 `json:"note,omitempty"`
}

func (r *RejectReason) validate() error {
	if r == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason is required when rejecting an order")
	}
	if !r.Code.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason code must be one of out_of_stock, customer_cancel, input_mistake, other")
	}
	if r.Code == enums.RejectReasonOther && strings.TrimSpace(r.Note) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "note is required when reason code is other")
	}
	return nil
}

func (r *RejectReason) note() *string {
	note := strings.TrimSpace(r.Note)
	if note == "" {
		return nil
	}
	return &note
}

// OrderEvent is the notification payload for order lifecycle events.
type OrderEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	KitchenStatus enums.KitchenStatus `json:"kitchenStatus"`
	Status        enums.OrderStatus   `json:"status"`
	Previous      enums.KitchenStatus `json:"previousKitchenStatus,omitempty"`
}
