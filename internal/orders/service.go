package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/kitchenstock-backend/internal/notifications"
	"github.com/angelmondragon/kitchenstock-backend/internal/recipes"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type requirementResolver interface {
	Resolve(ctx context.Context, lines []recipes.LineItem) (*recipes.Requirements, error)
}

// stockLedger is satisfied by *ledger.Ledger.
type stockLedger interface {
	Deduct(ctx context.Context, items []models.IngredientQuantity, then func(tx *gorm.DB) error) error
	Restock(ctx context.Context, items []models.IngredientQuantity, claim func(tx *gorm.DB) error) error
}

// Service governs the kitchen lifecycle of an order and the stock it holds.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	TransitionKitchenStatus(ctx context.Context, input TransitionInput) (*models.Order, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo     Repository
	Resolver requirementResolver
	Ledger   stockLedger
	Notifier notifications.Notifier
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	resolver requirementResolver
	ledger   stockLedger
	notifier notifications.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("requirement resolver required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		resolver: params.Resolver,
		ledger:   params.Ledger,
		notifier: notifier,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	actor := strings.TrimSpace(input.Actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}

	lines := make([]recipes.LineItem, 0, len(input.Items))
	items := make([]models.OrderLineItem, 0, len(input.Items))
	total := decimal.Zero
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: product id required", i))
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: quantity must be positive", i))
		}
		if item.UnitPrice.Sign() < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: unit price cannot be negative", i))
		}
		lines = append(lines, recipes.LineItem{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity})
		items = append(items, models.OrderLineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	reqs, err := s.resolver.Resolve(ctx, lines)
	if err != nil {
		return nil, err
	}
	if err := reqs.Err(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &models.Order{
		Status:                   enums.KitchenStatusNew.OrderStatus(),
		KitchenStatus:            enums.KitchenStatusNew,
		TotalAmount:              total,
		Note:                     input.Note,
		CreatedBy:                actor,
		Items:                    items,
		IngredientsDeductedAt:    &now,
		IngredientsDeductedBy:    &actor,
		IngredientsDeductedItems: reqs.RequiredItems,
	}

	if err := s.ledger.Deduct(ctx, reqs.RequiredItems, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	}); err != nil {
		// stock moved between the preview and the conditional decrement
		if shortages, ok := pkgerrors.Shortages(err); ok {
			s.logg.Warn(s.logg.WithFields(s.logg.WithActor(ctx, actor), map[string]any{
				"event":     "order.create.lost_stock_race",
				"shortages": len(shortages),
			}), "order rejected at deduction")
		}
		return nil, err
	}

	logCtx := s.logg.WithOrder(ctx, order.ID.String(), actor)
	s.logg.Info(logCtx, "order created with ingredient deduction")
	notifications.Send(ctx, s.notifier, s.logg, notifications.NewEvent(notifications.EventOrderCreated, actor, OrderEvent{
		OrderID:       order.ID,
		KitchenStatus: order.KitchenStatus,
		Status:        order.Status,
	}))
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.load(ctx, orderID)
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) TransitionKitchenStatus(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	actor := strings.TrimSpace(input.Actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	target := input.Target
	if !target.IsValid() || target == enums.KitchenStatusNew {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target kitchen status")
	}
	if target == enums.KitchenStatusRejected {
		if err := input.Reason.validate(); err != nil {
			return nil, err
		}
	}

	order, err := s.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.KitchenStatus == target {
		return order, nil
	}
	if !CanTransition(order.KitchenStatus, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.KitchenStatus, target))
	}

	from := order.KitchenStatus
	now := s.now().UTC()
	updates := map[string]any{
		"kitchen_status": target,
		"status":         target.OrderStatus(),
		"updated_at":     now,
	}

	switch target {
	case enums.KitchenStatusAccepted:
		err = s.accept(ctx, order, updates, now, actor)
	case enums.KitchenStatusCooking:
		updates["cooking_started_at"] = now
		err = s.casUpdate(ctx, nil, order.ID, from, updates)
	case enums.KitchenStatusCompleted:
		updates["completed_at"] = now
		err = s.casUpdate(ctx, nil, order.ID, from, updates)
	case enums.KitchenStatusRejected:
		err = s.reject(ctx, order, updates, now, actor, input.Reason)
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.load(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithTransition(s.logg.WithOrder(ctx, order.ID.String(), actor), from, target)
	s.logg.Info(logCtx, "kitchen status changed")
	notifications.Send(ctx, s.notifier, s.logg, notifications.NewEvent(notifications.EventOrderKitchenStatusChanged, actor, OrderEvent{
		OrderID:       updated.ID,
		KitchenStatus: updated.KitchenStatus,
		Status:        updated.Status,
		Previous:      from,
	}))
	return updated, nil
}

// accept deducts stock only when the order holds no active deduction, so a
// reservation taken at creation is never taken twice. Requirements are
// recomputed from the stored line items.
func (s *service) accept(ctx context.Context, order *models.Order, updates map[string]any, now time.Time, actor string) error {
	updates["accepted_at"] = now
	updates["accepted_by"] = actor
	if order.KitchenStatus == enums.KitchenStatusRejected {
		updates["rejected_at"] = nil
		updates["rejected_by"] = nil
		updates["reject_reason_code"] = nil
		updates["reject_note"] = nil
	}

	if order.HoldsDeduction() {
		return s.casUpdate(ctx, nil, order.ID, order.KitchenStatus, updates)
	}

	reqs, err := s.resolver.Resolve(ctx, linesFromOrder(order))
	if err != nil {
		return err
	}
	if err := reqs.Err(); err != nil {
		return err
	}
	encoded, err := encodeDeducted(reqs.RequiredItems)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode deducted items")
	}
	updates["ingredients_deducted_at"] = now
	updates["ingredients_deducted_by"] = actor
	updates["ingredients_deducted_items"] = encoded
	updates["ingredients_restocked_at"] = nil
	updates["ingredients_restocked_by"] = nil

	return s.ledger.Deduct(ctx, reqs.RequiredItems, func(tx *gorm.DB) error {
		return s.casUpdate(ctx, tx, order.ID, order.KitchenStatus, updates)
	})
}

// reject gives back exactly what the order holds. The status change is the
// claim, so two concurrent rejections restock once.
func (s *service) reject(ctx context.Context, order *models.Order, updates map[string]any, now time.Time, actor string, reason *RejectReason) error {
	updates["rejected_at"] = now
	updates["rejected_by"] = actor
	if reason != nil {
		updates["reject_reason_code"] = reason.Code
		updates["reject_note"] = reason.note()
	}

	if !order.HoldsDeduction() {
		return s.casUpdate(ctx, nil, order.ID, order.KitchenStatus, updates)
	}

	updates["ingredients_restocked_at"] = now
	updates["ingredients_restocked_by"] = actor
	return s.ledger.Restock(ctx, order.IngredientsDeductedItems, func(tx *gorm.DB) error {
		return s.casUpdate(ctx, tx, order.ID, order.KitchenStatus, updates)
	})
}

func (s *service) casUpdate(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, from enums.KitchenStatus, updates map[string]any) error {
	ok, err := s.repo.WithTx(tx).UpdateIfKitchenStatus(ctx, orderID, from, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently; reload and retry")
	}
	return nil
}

func linesFromOrder(order *models.Order) []recipes.LineItem {
	lines := make([]recipes.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, recipes.LineItem{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity})
	}
	return lines
}

// encodeDeducted renders deducted items the way the json serializer stores
// them, since map based updates bypass serializers.
func encodeDeducted(items []models.IngredientQuantity) (string, error) {
	if items == nil {
		items = []models.IngredientQuantity{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
