package receiving

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/kitchenstock-backend/internal/alerts"
	"github.com/angelmondragon/kitchenstock-backend/internal/ingredients"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/angelmondragon/kitchenstock-backend/pkg/units"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const dateKeyLayout = "2006-01-02"

// Reason values explain why an ingredient is due.
const (
	ReasonDaily    = "daily"
	ReasonCycle    = "cycle"
	ReasonLowStock = "low_stock"
)

type stockIncrementer interface {
	Increment(ctx context.Context, tx *gorm.DB, item models.IngredientQuantity) error
}

type alertTracker interface {
	Statuses(ctx context.Context, ingredientIDs []uuid.UUID) (map[uuid.UUID]enums.AlertStatus, error)
	CheckIfReported(ctx context.Context, ingredientID uuid.UUID, actor string) (bool, error)
}

type txRunner interface {
	WithTxIfSupported(ctx context.Context, fn func(tx *gorm.DB) error) (bool, error)
}

// Task is one ingredient due for receiving, quantities in display units.
type Task struct {
	IngredientID    uuid.UUID       `json:"ingredientId"`
	Name            string          `json:"name"`
	DisplayUnit     string          `json:"displayUnit"`
	IssueRule       enums.IssueRule `json:"issueRule"`
	Reason          string          `json:"reason"`
	StockQty        decimal.Decimal `json:"stockQty"`
	SuggestedQty    decimal.Decimal `json:"suggestedQty"`
	NextReceiveDate *time.Time      `json:"nextReceiveDate,omitempty"`
}

// Tasks partitions the due list for one day.
type Tasks struct {
	Date  string `json:"date"`
	Daily []Task `json:"daily"`
	Other []Task `json:"other"`
}

// ConfirmItem is one staff-entered receiving line in display units.
type ConfirmItem struct {
	IngredientID uuid.UUID        `json:"ingredientId"`
	ReceivedQty  *decimal.Decimal `json:"receivedQty"`
	SuggestedQty *decimal.Decimal `json:"suggestedQty"`
	Note         string           `json:"note"`
}

// ConfirmResult reports how many lines were applied.
type ConfirmResult struct {
	UpdatedCount int        `json:"updatedCount"`
	LogID        *uuid.UUID `json:"logId,omitempty"`
}

// Params wires a Reconciler.
type Params struct {
	Repo        Repository
	Ingredients ingredients.Repository
	Ledger      stockIncrementer
	Alerts      alertTracker
	DB          txRunner
	Logger      *logger.Logger
	Ratio       decimal.Decimal
	Location    *time.Location
	Now         func() time.Time
}

// Reconciler decides what is due for receiving and books deliveries.
type Reconciler struct {
	repo        Repository
	ingredients ingredients.Repository
	ledger      stockIncrementer
	alerts      alertTracker
	db          txRunner
	logg        *logger.Logger
	ratio       decimal.Decimal
	loc         *time.Location
	now         func() time.Time
}

// NewReconciler validates params. Ratio falls back to the alert default and
// Location to UTC.
func NewReconciler(params Params) (*Reconciler, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("receiving repository required")
	}
	if params.Ingredients == nil {
		return nil, fmt.Errorf("ingredient repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alert tracker required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	ratio := params.Ratio
	if ratio.Sign() <= 0 {
		ratio = alerts.DefaultRatio
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		repo:        params.Repo,
		ingredients: params.Ingredients,
		ledger:      params.Ledger,
		alerts:      params.Alerts,
		db:          params.DB,
		logg:        params.Logger,
		ratio:       ratio,
		loc:         loc,
		now:         now,
	}, nil
}

// DateKey renders the calendar day of t in the configured location.
func (r *Reconciler) DateKey(t time.Time) string {
	return t.In(r.loc).Format(dateKeyLayout)
}

// ParseDate reads a YYYY-MM-DD day in the configured location. An empty value
// means today.
func (r *Reconciler) ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return r.startOfDay(r.now()), nil
	}
	day, err := time.ParseInLocation(dateKeyLayout, value, r.loc)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD")
	}
	return day, nil
}

func (r *Reconciler) startOfDay(t time.Time) time.Time {
	local := t.In(r.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)
}

// ListLogs returns the receiving sessions booked on date, oldest first.
func (r *Reconciler) ListLogs(ctx context.Context, date time.Time) ([]models.ReceivingLog, error) {
	logs, err := r.repo.ListByDate(ctx, r.DateKey(date))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list receiving logs")
	}
	return logs, nil
}

// GetReceivingTasks lists what is due on date. Ingredients already received
// that day are left out.
func (r *Reconciler) GetReceivingTasks(ctx context.Context, date time.Time) (*Tasks, error) {
	today := r.startOfDay(date)
	dateKey := today.Format(dateKeyLayout)

	all, err := r.ingredients.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ingredients")
	}
	receivedIDs, err := r.repo.ReceivedIngredientIDs(ctx, dateKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receiving logs")
	}
	received := make(map[uuid.UUID]struct{}, len(receivedIDs))
	for _, id := range receivedIDs {
		received[id] = struct{}{}
	}

	longStorage := make([]uuid.UUID, 0)
	for _, ingredient := range all {
		if ingredient.IssueRule == enums.IssueRuleLongStorage {
			longStorage = append(longStorage, ingredient.ID)
		}
	}
	statuses, err := r.alerts.Statuses(ctx, longStorage)
	if err != nil {
		return nil, err
	}

	tasks := &Tasks{Date: dateKey, Daily: []Task{}, Other: []Task{}}
	for _, ingredient := range all {
		if _, ok := received[ingredient.ID]; ok {
			continue
		}
		switch ingredient.IssueRule {
		case enums.IssueRuleDaily:
			tasks.Daily = append(tasks.Daily, newTask(ingredient, ReasonDaily))
		case enums.IssueRuleCycle:
			if r.cycleDue(ingredient, today) {
				tasks.Other = append(tasks.Other, newTask(ingredient, ReasonCycle))
			}
		case enums.IssueRuleLongStorage:
			if statuses[ingredient.ID] == enums.AlertStatusReported && alerts.IsLow(ingredient, r.ratio) {
				tasks.Other = append(tasks.Other, newTask(ingredient, ReasonLowStock))
			}
		}
	}
	return tasks, nil
}

// cycleDue honours an explicit next receive date when set, otherwise counts
// cycleDays from the last receipt, or from creation if never received.
func (r *Reconciler) cycleDue(ingredient models.Ingredient, today time.Time) bool {
	if ingredient.NextReceiveDate != nil {
		endOfToday := today.AddDate(0, 0, 1)
		return ingredient.NextReceiveDate.Before(endOfToday)
	}
	if ingredient.CycleDays == nil || *ingredient.CycleDays <= 0 {
		return false
	}
	base := ingredient.CreatedAt
	if ingredient.LastReceivedAt != nil {
		base = *ingredient.LastReceivedAt
	}
	due := r.startOfDay(base).AddDate(0, 0, *ingredient.CycleDays)
	return !today.Before(due)
}

func newTask(ingredient models.Ingredient, reason string) Task {
	suggested := ingredient.StockOnHand
	if ingredient.ParLevel.Sign() > 0 {
		suggested = ingredient.ParLevel
	}
	return Task{
		IngredientID:    ingredient.ID,
		Name:            ingredient.Name,
		DisplayUnit:     ingredient.DisplayUnit,
		IssueRule:       ingredient.IssueRule,
		Reason:          reason,
		StockQty:        units.ToDisplay(ingredient.StockOnHand, ingredient.ConversionFactor),
		SuggestedQty:    units.ToDisplay(suggested, ingredient.ConversionFactor),
		NextReceiveDate: ingredient.NextReceiveDate,
	}
}

// ConfirmReceiving books each valid line into stock and appends one log with
// exactly the applied lines. Lines with no quantity, a negative quantity or an
// unknown ingredient are skipped.
func (r *Reconciler) ConfirmReceiving(ctx context.Context, items []ConfirmItem, actor string) (*ConfirmResult, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.IngredientID != uuid.Nil {
			ids = append(ids, item.IngredientID)
		}
	}
	found, err := r.ingredients.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredients")
	}
	byID := make(map[uuid.UUID]models.Ingredient, len(found))
	for _, ingredient := range found {
		byID[ingredient.ID] = ingredient
	}

	now := r.now()
	today := r.startOfDay(now)
	logItems := make([]models.ReceivingLogItem, 0, len(items))
	var failures error
	for _, item := range items {
		ingredient, ok := byID[item.IngredientID]
		if !ok || item.ReceivedQty == nil || item.ReceivedQty.Sign() < 0 {
			r.logg.Warn(r.logg.WithIngredientID(ctx, item.IngredientID.String()), "receiving line skipped")
			continue
		}
		if err := r.applyLine(ctx, ingredient, *item.ReceivedQty, now, today); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				continue
			}
			failures = multierr.Append(failures, fmt.Errorf("receive %s: %w", ingredient.ID, err))
			continue
		}
		if _, err := r.alerts.CheckIfReported(ctx, ingredient.ID, actor); err != nil {
			r.logg.Error(r.logg.WithIngredientID(ctx, ingredient.ID.String()), "failed to check low stock alert", err)
		}
		logItems = append(logItems, models.ReceivingLogItem{
			IngredientID:   ingredient.ID,
			IngredientName: ingredient.Name,
			DisplayUnit:    ingredient.DisplayUnit,
			SuggestedQty:   nullable(item.SuggestedQty),
			ReceivedQty:    *item.ReceivedQty,
			Note:           optionalNote(item.Note),
		})
	}

	result := &ConfirmResult{UpdatedCount: len(logItems)}
	if len(logItems) > 0 {
		entry := &models.ReceivingLog{
			DateKey:    today.Format(dateKeyLayout),
			ReceivedAt: now.UTC(),
			CreatedBy:  actor,
			Items:      logItems,
		}
		if err := r.repo.CreateLog(ctx, entry); err != nil {
			failures = multierr.Append(failures, fmt.Errorf("write receiving log: %w", err))
		} else {
			result.LogID = &entry.ID
		}
	}

	logCtx := r.logg.WithFields(r.logg.WithActor(ctx, actor), map[string]any{
		"updated_count": result.UpdatedCount,
		"line_count":    len(items),
	})
	if failures != nil {
		r.logg.Error(logCtx, "receiving confirmation partially failed", failures)
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, failures, "receiving confirmation partially failed")
	}
	r.logg.Info(logCtx, "receiving confirmed")
	return result, nil
}

// applyLine increments stock and, for cycle ingredients, moves the schedule
// forward. Both writes share a transaction when the store supports one.
func (r *Reconciler) applyLine(ctx context.Context, ingredient models.Ingredient, displayQty decimal.Decimal, now, today time.Time) error {
	baseQty := units.ToBase(displayQty, ingredient.ConversionFactor)
	_, err := r.db.WithTxIfSupported(ctx, func(tx *gorm.DB) error {
		if err := r.ledger.Increment(ctx, tx, models.IngredientQuantity{
			IngredientID: ingredient.ID,
			Quantity:     baseQty,
		}); err != nil {
			return err
		}
		if ingredient.IssueRule != enums.IssueRuleCycle {
			return nil
		}
		var next *time.Time
		if ingredient.CycleDays != nil && *ingredient.CycleDays > 0 {
			d := today.AddDate(0, 0, *ingredient.CycleDays)
			next = &d
		}
		return r.ingredients.WithTx(tx).UpdateReceivingSchedule(ctx, ingredient.ID, now.UTC(), next)
	})
	return err
}

func nullable(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}

func optionalNote(note string) *string {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return &note
}
