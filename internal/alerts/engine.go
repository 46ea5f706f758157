package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/kitchenstock-backend/internal/notifications"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/angelmondragon/kitchenstock-backend/pkg/units"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ingredientReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
	List(ctx context.Context) ([]models.Ingredient, error)
}

// LowStockItem is one ingredient currently below its threshold, with stock
// and threshold in display units.
type LowStockItem struct {
	IngredientID uuid.UUID         `json:"ingredientId"`
	Name         string            `json:"name"`
	DisplayUnit  string            `json:"displayUnit"`
	StockQty     decimal.Decimal   `json:"stockQty"`
	MinQty       decimal.Decimal   `json:"minQty"`
	AlertStatus  enums.AlertStatus `json:"alertStatus"`
}

// Params wires an Engine.
type Params struct {
	Repo                 Repository
	Ingredients          ingredientReader
	Notifier             notifications.Notifier
	Logger               *logger.Logger
	Ratio                decimal.Decimal
	ReopenResolvedAlerts bool
	Now                  func() time.Time
}

// Engine flags ingredients that fall below threshold and records staff
// acknowledgement of those alerts. It is the only writer of alert rows.
type Engine struct {
	repo        Repository
	ingredients ingredientReader
	notifier    notifications.Notifier
	logg        *logger.Logger
	ratio       decimal.Decimal
	reopen      bool
	now         func() time.Time
}

// NewEngine validates params and falls back to DefaultRatio when Ratio is unset.
func NewEngine(params Params) (*Engine, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	if params.Ingredients == nil {
		return nil, fmt.Errorf("ingredient reader required")
	}
	ratio := params.Ratio
	if ratio.Sign() <= 0 {
		ratio = DefaultRatio
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		repo:        params.Repo,
		ingredients: params.Ingredients,
		notifier:    notifier,
		logg:        params.Logger,
		ratio:       ratio,
		reopen:      params.ReopenResolvedAlerts,
		now:         now,
	}, nil
}

// Ratio returns the low-stock ratio in effect.
func (e *Engine) Ratio() decimal.Decimal {
	return e.ratio
}

// ScanLowStock lists every ingredient below threshold. First sightings create
// an open alert; existing alerts only have last_seen_at refreshed, unless
// resolved alerts are configured to reopen.
func (e *Engine) ScanLowStock(ctx context.Context) ([]LowStockItem, error) {
	all, err := e.ingredients.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ingredients")
	}

	low := make([]models.Ingredient, 0)
	ids := make([]uuid.UUID, 0)
	for _, ingredient := range all {
		if IsLow(ingredient, e.ratio) {
			low = append(low, ingredient)
			ids = append(ids, ingredient.ID)
		}
	}
	if len(low) == 0 {
		return []LowStockItem{}, nil
	}

	existing, err := e.repo.FindByIngredientIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alerts")
	}
	before := make(map[uuid.UUID]enums.AlertStatus, len(existing))
	for _, alert := range existing {
		before[alert.IngredientID] = alert.Status
	}

	now := e.now().UTC()
	if err := e.repo.Touch(ctx, ids, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert alerts")
	}
	if e.reopen {
		if _, err := e.repo.Reopen(ctx, ids, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen alerts")
		}
	}

	current, err := e.repo.FindByIngredientIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alerts")
	}
	after := make(map[uuid.UUID]enums.AlertStatus, len(current))
	for _, alert := range current {
		after[alert.IngredientID] = alert.Status
	}

	items := make([]LowStockItem, 0, len(low))
	for _, ingredient := range low {
		threshold, _ := Threshold(ingredient)
		status := after[ingredient.ID]
		items = append(items, LowStockItem{
			IngredientID: ingredient.ID,
			Name:         ingredient.Name,
			DisplayUnit:  ingredient.DisplayUnit,
			StockQty:     units.ToDisplay(ingredient.StockOnHand, ingredient.ConversionFactor),
			MinQty:       units.ToDisplay(threshold, ingredient.ConversionFactor),
			AlertStatus:  status,
		})

		previous, seen := before[ingredient.ID]
		if status == enums.AlertStatusOpen && (!seen || previous != enums.AlertStatusOpen) {
			logCtx := e.logg.WithIngredientID(ctx, ingredient.ID.String())
			e.logg.Info(logCtx, "low stock alert opened")
			notifications.Send(ctx, e.notifier, e.logg, notifications.NewEvent(notifications.EventInventoryLowStock, "", items[len(items)-1]))
		}
	}
	return items, nil
}

// Report moves an alert to reported.
func (e *Engine) Report(ctx context.Context, ingredientID uuid.UUID, actor string) (*models.LowStockAlert, error) {
	return e.Apply(ctx, ingredientID, enums.AlertActionReport, actor)
}

// Check moves an alert to checked.
func (e *Engine) Check(ctx context.Context, ingredientID uuid.UUID, actor string) (*models.LowStockAlert, error) {
	return e.Apply(ctx, ingredientID, enums.AlertActionCheck, actor)
}

// Resolve moves an alert to resolved.
func (e *Engine) Resolve(ctx context.Context, ingredientID uuid.UUID, actor string) (*models.LowStockAlert, error) {
	return e.Apply(ctx, ingredientID, enums.AlertActionResolve, actor)
}

// Apply performs a staff action. An ingredient without an alert row gets an
// open one first, so reporting never requires a prior scan.
func (e *Engine) Apply(ctx context.Context, ingredientID uuid.UUID, action enums.AlertAction, actor string) (*models.LowStockAlert, error) {
	if ingredientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
	}
	if !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid alert action")
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	if _, err := e.ingredients.FindByID(ctx, ingredientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredient")
	}

	now := e.now().UTC()
	alert, err := e.findOrOpen(ctx, ingredientID, now)
	if err != nil {
		return nil, err
	}

	next, ok := Next(alert.Status, action)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot %s an alert that is %s", action, alert.Status))
	}

	updates := map[string]any{"last_seen_at": now}
	if next != alert.Status {
		updates["status"] = next
		switch action {
		case enums.AlertActionReport:
			updates["reported_at"] = now
			updates["reported_by"] = actor
		case enums.AlertActionCheck:
			updates["checked_at"] = now
			updates["checked_by"] = actor
		case enums.AlertActionResolve:
			updates["resolved_at"] = now
			updates["resolved_by"] = actor
		}
	}
	updated, err := e.repo.UpdateIfStatus(ctx, ingredientID, alert.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update alert")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "alert changed concurrently; reload and retry")
	}

	logCtx := e.logg.WithActor(e.logg.WithIngredientID(ctx, ingredientID.String()), actor)
	logCtx = e.logg.WithTransition(logCtx, alert.Status, next)
	e.logg.Info(logCtx, "low stock alert updated")
	return e.load(ctx, ingredientID)
}

// CheckIfReported moves a reported alert to checked and leaves any other
// status alone. It reports whether the alert moved.
func (e *Engine) CheckIfReported(ctx context.Context, ingredientID uuid.UUID, actor string) (bool, error) {
	now := e.now().UTC()
	moved, err := e.repo.UpdateIfStatus(ctx, ingredientID, enums.AlertStatusReported, map[string]any{
		"status":       enums.AlertStatusChecked,
		"checked_at":   now,
		"checked_by":   actor,
		"last_seen_at": now,
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check alert")
	}
	return moved, nil
}

// Statuses returns the alert status for each ingredient that has an alert row.
func (e *Engine) Statuses(ctx context.Context, ingredientIDs []uuid.UUID) (map[uuid.UUID]enums.AlertStatus, error) {
	rows, err := e.repo.FindByIngredientIDs(ctx, ingredientIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alerts")
	}
	out := make(map[uuid.UUID]enums.AlertStatus, len(rows))
	for _, row := range rows {
		out[row.IngredientID] = row.Status
	}
	return out, nil
}

func (e *Engine) findOrOpen(ctx context.Context, ingredientID uuid.UUID, now time.Time) (*models.LowStockAlert, error) {
	alert, err := e.repo.FindByIngredientID(ctx, ingredientID)
	if err == nil {
		return alert, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alert")
	}
	if err := e.repo.Touch(ctx, []uuid.UUID{ingredientID}, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open alert")
	}
	return e.load(ctx, ingredientID)
}

func (e *Engine) load(ctx context.Context, ingredientID uuid.UUID) (*models.LowStockAlert, error) {
	alert, err := e.repo.FindByIngredientID(ctx, ingredientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alert")
	}
	return alert, nil
}
