package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/angelmondragon/kitchenstock-backend/internal/orders"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
)

type createOrderRequest struct {
	Items []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Note  *string                  `json:"note,omitempty" validate:"omitempty,max=500"`
}

type createOrderItemRequest struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required,max=200"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"gte=0"`
}

type transitionRequest struct {
	Status string                       `json:"status" validate:"required"`
	Reason *internalorders.RejectReason `json:"reason,omitempty" validate:"required_if=Status rejected"`
}

type orderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type orderResponse struct {
	ID                       uuid.UUID                   `json:"id"`
	Status                   enums.OrderStatus           `json:"status"`
	KitchenStatus            enums.KitchenStatus         `json:"kitchenStatus"`
	TotalAmount              decimal.Decimal             `json:"totalAmount"`
	Note                     *string                     `json:"note,omitempty"`
	CreatedBy                string                      `json:"createdBy"`
	Items                    []orderItemResponse         `json:"items"`
	AcceptedAt               *time.Time                  `json:"acceptedAt,omitempty"`
	AcceptedBy               *string                     `json:"acceptedBy,omitempty"`
	CookingStartedAt         *time.Time                  `json:"cookingStartedAt,omitempty"`
	CompletedAt              *time.Time                  `json:"completedAt,omitempty"`
	RejectedAt               *time.Time                  `json:"rejectedAt,omitempty"`
	RejectedBy               *string                     `json:"rejectedBy,omitempty"`
	RejectReasonCode         *enums.RejectReasonCode     `json:"rejectReasonCode,omitempty"`
	RejectNote               *string                     `json:"rejectNote,omitempty"`
	IngredientsDeductedAt    *time.Time                  `json:"ingredientsDeductedAt,omitempty"`
	IngredientsDeductedBy    *string                     `json:"ingredientsDeductedBy,omitempty"`
	IngredientsDeductedItems []models.IngredientQuantity `json:"ingredientsDeductedItems,omitempty"`
	IngredientsRestockedAt   *time.Time                  `json:"ingredientsRestockedAt,omitempty"`
	IngredientsRestockedBy   *string                     `json:"ingredientsRestockedBy,omitempty"`
	CreatedAt                time.Time                   `json:"createdAt"`
	UpdatedAt                time.Time                   `json:"updatedAt"`
}

func toOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return orderResponse{
		ID:                       order.ID,
		Status:                   order.Status,
		KitchenStatus:            order.KitchenStatus,
		TotalAmount:              order.TotalAmount,
		Note:                     order.Note,
		CreatedBy:                order.CreatedBy,
		Items:                    items,
		AcceptedAt:               order.AcceptedAt,
		AcceptedBy:               order.AcceptedBy,
		CookingStartedAt:         order.CookingStartedAt,
		CompletedAt:              order.CompletedAt,
		RejectedAt:               order.RejectedAt,
		RejectedBy:               order.RejectedBy,
		RejectReasonCode:         order.RejectReasonCode,
		RejectNote:               order.RejectNote,
		IngredientsDeductedAt:    order.IngredientsDeductedAt,
		IngredientsDeductedBy:    order.IngredientsDeductedBy,
		IngredientsDeductedItems: order.IngredientsDeductedItems,
		IngredientsRestockedAt:   order.IngredientsRestockedAt,
		IngredientsRestockedBy:   order.IngredientsRestockedBy,
		CreatedAt:                order.CreatedAt,
		UpdatedAt:                order.UpdatedAt,
	}
}
