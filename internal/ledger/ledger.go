package ledger

import (
	"context"
	"fmt"

	"github.com/angelmondragon/kitchenstock-backend/pkg/config"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/angelmondragon/kitchenstock-backend/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// txRunner is satisfied by *db.Client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	SupportsTransactions() bool
	DB() *gorm.DB
}

// Params configure a Ledger.
type Params struct {
	DB      txRunner
	Logger  *logger.Logger
	Metrics *metrics.LedgerMetrics
	// Mode is one of config.TxModeAuto, TxModeRequired or TxModeDisabled.
	Mode string
}

// Ledger is the only writer of ingredient stock. It runs stock batches inside
// a transaction when the store supports one and falls back to compensating
// increments otherwise. The fallback is not crash safe: a crash between a
// decrement and its compensation leaves stock short.
type Ledger struct {
	db            txRunner
	logg          *logger.Logger
	metrics       *metrics.LedgerMetrics
	transactional bool
}

// New builds a ledger. With Mode required and no transaction support it fails
// with TRANSACTION_UNSUPPORTED so the process refuses to start.
func New(params Params) (*Ledger, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	mode := params.Mode
	if mode == "" {
		mode = config.TxModeAuto
	}
	supported := params.DB.SupportsTransactions()
	var transactional bool
	switch mode {
	case config.TxModeAuto:
		transactional = supported
	case config.TxModeRequired:
		if !supported {
			return nil, pkgerrors.New(pkgerrors.CodeTransactionUnsupported, "transactions required but unsupported by datastore")
		}
		transactional = true
	case config.TxModeDisabled:
		transactional = false
	default:
		return nil, fmt.Errorf("unknown transaction mode %q", mode)
	}
	return &Ledger{
		db:            params.DB,
		logg:          params.Logger,
		metrics:       params.Metrics,
		transactional: transactional,
	}, nil
}

// Transactional reports whether batches run inside a database transaction.
func (l *Ledger) Transactional() bool {
	return l.transactional
}

func (l *Ledger) mode() string {
	if l.transactional {
		return metrics.ModeTransactional
	}
	return metrics.ModeCompensating
}

// Deduct takes every item and then runs then against the same handle. The
// stock and whatever then writes commit together. If then fails the stock is
// restored: by rollback in transactional mode, by compensation otherwise.
func (l *Ledger) Deduct(ctx context.Context, items []models.IngredientQuantity, then func(tx *gorm.DB) error) error {
	ctx, span := tracer().Start(ctx, "ledger.Deduct",
		trace.WithAttributes(
			attribute.Int("items", len(items)),
			attribute.String("mode", l.mode()),
		),
	)
	defer span.End()

	var err error
	if l.transactional {
		err = l.db.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := applyBatch(ctx, tx, items, false); err != nil {
				return err
			}
			if then == nil {
				return nil
			}
			return then(tx)
		})
	} else {
		err = l.deductCompensating(ctx, items, then)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.metrics.IncBatch(l.mode(), outcomeFor(err))
		return err
	}
	l.metrics.IncBatch(l.mode(), "applied")
	return nil
}

func (l *Ledger) deductCompensating(ctx context.Context, items []models.IngredientQuantity, then func(tx *gorm.DB) error) error {
	conn := l.db.DB().WithContext(ctx)
	logCtx := l.logg.WithStockBatch(ctx, "stock.batch.fallback_mode", len(items))
	l.logg.Warn(logCtx, "applying stock batch without transaction")

	applied, err := applyBatch(ctx, conn, items, true)
	if err != nil {
		if len(applied) > 0 && pkgerrors.IsCode(err, pkgerrors.CodeInsufficientIngredients) {
			l.recordCompensation(ctx, "insufficient", len(applied))
		}
		return err
	}
	if then == nil {
		return nil
	}
	if err := then(conn); err != nil {
		if compErr := compensateAll(ctx, conn, applied); compErr != nil {
			l.logg.Error(l.logg.WithField(ctx, "event", "stock.batch.compensation_failed"), "stock left short after failed follow-up write", compErr)
			return multierr.Combine(err, compErr)
		}
		l.recordCompensation(ctx, "follow_up_failed", len(applied))
		return err
	}
	return nil
}

func (l *Ledger) recordCompensation(ctx context.Context, reason string, items int) {
	l.metrics.IncCompensation(reason)
	logCtx := l.logg.WithField(l.logg.WithStockBatch(ctx, "stock.batch.compensated", items), "reason", reason)
	l.logg.Warn(logCtx, "stock batch compensated")
}

// Restock runs claim and then gives every item back. claim must record the
// restock on its owner row so a second caller loses and nothing is returned
// twice. Increments commute, so in compensating mode they are applied one by
// one and failures are aggregated.
func (l *Ledger) Restock(ctx context.Context, items []models.IngredientQuantity, claim func(tx *gorm.DB) error) error {
	ctx, span := tracer().Start(ctx, "ledger.Restock",
		trace.WithAttributes(
			attribute.Int("items", len(items)),
			attribute.String("mode", l.mode()),
		),
	)
	defer span.End()

	apply := func(tx *gorm.DB) error {
		if claim != nil {
			if err := claim(tx); err != nil {
				return err
			}
		}
		var errs []error
		for _, item := range items {
			if err := IncrementOne(ctx, tx, item.IngredientID, item.Quantity); err != nil {
				errs = append(errs, fmt.Errorf("restock %s: %w", item.IngredientID, err))
			}
		}
		if err := multierr.Combine(errs...); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock ingredients")
		}
		return nil
	}

	var err error
	if l.transactional {
		err = l.db.WithTx(ctx, apply)
	} else {
		err = apply(l.db.DB().WithContext(ctx))
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			l.logg.Error(l.logg.WithField(ctx, "event", "stock.restock.partial"), "restock failed without transaction", err)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	l.metrics.IncRestock()
	return nil
}

// Increment adds stock outside any order workflow, as receiving does.
func (l *Ledger) Increment(ctx context.Context, tx *gorm.DB, item models.IngredientQuantity) error {
	if tx == nil {
		tx = l.db.DB()
	}
	return IncrementOne(ctx, tx, item.IngredientID, item.Quantity)
}

func outcomeFor(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeInsufficientIngredients:
		return "insufficient"
	case pkgerrors.CodeStateConflict:
		return "conflict"
	default:
		return "error"
	}
}
