package ledger

import (
	"context"
	"time"

	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const tracerName = "kitchenstock/ledger"

// tracer resolves against the global provider on each call so a provider
// installed after package init still receives ledger spans.
func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// DecrementOne takes qty from the ingredient only if enough stock remains. It
// is a single conditional update so concurrent consumers cannot both succeed
// against the same units. false means the stock was not there.
func DecrementOne(ctx context.Context, db *gorm.DB, ingredientID uuid.UUID, qty decimal.Decimal) (bool, error) {
	if qty.Sign() <= 0 {
		return true, nil
	}
	_, span := tracer().Start(ctx, "ledger.DecrementOne",
		trace.WithAttributes(
			attribute.String("ingredient.id", ingredientID.String()),
			attribute.String("quantity", qty.String()),
		),
	)
	defer span.End()

	res := db.WithContext(ctx).
		Model(&models.Ingredient{}).
		Where("id = ? AND stock_on_hand >= ?", ingredientID, qty).
		Updates(map[string]any{
			"stock_on_hand": gorm.Expr("stock_on_hand - ?", qty),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		span.SetStatus(codes.Error, res.Error.Error())
		return false, res.Error
	}
	ok := res.RowsAffected == 1
	span.SetAttributes(attribute.Bool("applied", ok))
	return ok, nil
}

// IncrementOne adds qty to the ingredient unconditionally.
func IncrementOne(ctx context.Context, db *gorm.DB, ingredientID uuid.UUID, qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return nil
	}
	_, span := tracer().Start(ctx, "ledger.IncrementOne",
		trace.WithAttributes(
			attribute.String("ingredient.id", ingredientID.String()),
			attribute.String("quantity", qty.String()),
		),
	)
	defer span.End()

	res := db.WithContext(ctx).
		Model(&models.Ingredient{}).
		Where("id = ?", ingredientID).
		Updates(map[string]any{
			"stock_on_hand": gorm.Expr("stock_on_hand + ?", qty),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		span.SetStatus(codes.Error, res.Error.Error())
		return res.Error
	}
	if res.RowsAffected == 0 {
		err := pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// ApplyBatch decrements every item in order. When any item cannot be taken,
// every item already taken in this batch is given back and the batch fails
// with INSUFFICIENT_INGREDIENTS, leaving stock as it was.
func ApplyBatch(ctx context.Context, db *gorm.DB, items []models.IngredientQuantity) error {
	_, err := applyBatch(ctx, db, items, true)
	return err
}

// applyBatch returns the items it decremented, which on failure are the items
// that were given back. With compensate unset a failure leaves partial
// decrements in place for the caller's rollback.
func applyBatch(ctx context.Context, db *gorm.DB, items []models.IngredientQuantity, compensate bool) ([]models.IngredientQuantity, error) {
	applied := make([]models.IngredientQuantity, 0, len(items))
	for _, item := range items {
		if item.Quantity.Sign() <= 0 {
			continue
		}
		ok, err := DecrementOne(ctx, db, item.IngredientID, item.Quantity)
		if err == nil && ok {
			applied = append(applied, item)
			continue
		}
		if compensate {
			if compErr := compensateAll(ctx, db, applied); compErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, compErr, "compensate partial stock batch")
			}
		}
		if err != nil {
			return applied, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		return applied, insufficientError(ctx, db, item)
	}
	return applied, nil
}

func compensateAll(ctx context.Context, db *gorm.DB, applied []models.IngredientQuantity) error {
	var errs []error
	for _, item := range applied {
		if err := IncrementOne(ctx, db, item.IngredientID, item.Quantity); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

// insufficientError reads the current stock of the failed item so the caller
// gets the same shortage detail as a resolver preview.
func insufficientError(ctx context.Context, db *gorm.DB, item models.IngredientQuantity) error {
	shortage := types.Shortage{
		IngredientID: item.IngredientID,
		Required:     item.Quantity,
		Available:    decimal.Zero,
	}
	var ingredient models.Ingredient
	if err := db.WithContext(ctx).First(&ingredient, "id = ?", item.IngredientID).Error; err == nil {
		shortage.IngredientName = ingredient.Name
		shortage.BaseUnit = ingredient.BaseUnit.String()
		shortage.Available = ingredient.StockOnHand
	}
	shortage.Shortage = shortage.Required.Sub(shortage.Available)
	if shortage.Shortage.Sign() < 0 {
		shortage.Shortage = decimal.Zero
	}
	return pkgerrors.Insufficient([]types.Shortage{shortage})
}
