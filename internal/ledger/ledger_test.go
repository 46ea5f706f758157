package ledger

import (
	"context"
	"errors"
	"testing"

	pkgdb "github.com/angelmondragon/kitchenstock-backend/pkg/db"
	"github.com/angelmondragon/kitchenstock-backend/pkg/config"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/metrics"
	"github.com/angelmondragon/kitchenstock-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Ingredient{}))
	return conn
}

func seedIngredient(t *testing.T, db *gorm.DB, name string, stock int64) uuid.UUID {
	t.Helper()
	ingredient := &models.Ingredient{
		Name:             name,
		DisplayUnit:      "g",
		BaseUnit:         enums.BaseUnitGrams,
		ConversionFactor: decimal.NewFromInt(1),
		StockOnHand:      decimal.NewFromInt(stock),
		IssueRule:        enums.IssueRuleDaily,
	}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient.ID
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var ingredient models.Ingredient
	require.NoError(t, db.First(&ingredient, "id = ?", id).Error)
	return ingredient.StockOnHand
}

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestDecrementOneNeverGoesNegative(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := seedIngredient(t, db, "Flour", 10)

	steps := []struct {
		decrement bool
		amount    int64
		wantOK    bool
		wantStock int64
	}{
		{decrement: true, amount: 4, wantOK: true, wantStock: 6},
		{decrement: true, amount: 7, wantOK: false, wantStock: 6},
		{decrement: true, amount: 6, wantOK: true, wantStock: 0},
		{decrement: true, amount: 1, wantOK: false, wantStock: 0},
		{decrement: false, amount: 3, wantOK: true, wantStock: 3},
		{decrement: true, amount: 3, wantOK: true, wantStock: 0},
	}
	for i, step := range steps {
		if step.decrement {
			ok, err := DecrementOne(ctx, db, id, qty(step.amount))
			require.NoError(t, err)
			assert.Equal(t, step.wantOK, ok, "step %d", i)
		} else {
			require.NoError(t, IncrementOne(ctx, db, id, qty(step.amount)))
		}
		got := stockOf(t, db, id)
		assert.True(t, got.Equal(qty(step.wantStock)), "step %d: stock %s", i, got)
		assert.True(t, got.Sign() >= 0, "step %d: stock went negative", i)
	}
}

func TestIncrementOneUnknownIngredient(t *testing.T) {
	db := newTestDB(t)
	err := IncrementOne(context.Background(), db, uuid.New(), qty(1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApplyBatchIsAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := seedIngredient(t, db, "A", 100)
	b := seedIngredient(t, db, "B", 100)
	c := seedIngredient(t, db, "C", 5)

	err := ApplyBatch(ctx, db, []models.IngredientQuantity{
		{IngredientID: a, Quantity: qty(40)},
		{IngredientID: b, Quantity: qty(60)},
		{IngredientID: c, Quantity: qty(6)},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientIngredients, typed.Code())
	shortages, ok := typed.Details().([]types.Shortage)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, "C", shortages[0].IngredientName)
	assert.True(t, shortages[0].Shortage.Equal(qty(1)))

	assert.True(t, stockOf(t, db, a).Equal(qty(100)))
	assert.True(t, stockOf(t, db, b).Equal(qty(100)))
	assert.True(t, stockOf(t, db, c).Equal(qty(5)))
}

func TestApplyBatchSkipsNonPositiveQuantities(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := seedIngredient(t, db, "A", 10)

	require.NoError(t, ApplyBatch(ctx, db, []models.IngredientQuantity{
		{IngredientID: a, Quantity: qty(0)},
		{IngredientID: uuid.New(), Quantity: qty(-3)},
		{IngredientID: a, Quantity: qty(4)},
	}))
	assert.True(t, stockOf(t, db, a).Equal(qty(6)))
}

func newLedger(t *testing.T, db *gorm.DB, mode string, reg prometheus.Registerer) *Ledger {
	t.Helper()
	l, err := New(Params{
		DB:      pkgdb.Wrap(context.Background(), db),
		Metrics: metrics.NewLedgerMetrics(reg),
		Mode:    mode,
	})
	require.NoError(t, err)
	return l
}

func TestDeductRollsBackWhenFollowUpFails(t *testing.T) {
	for _, mode := range []string{config.TxModeAuto, config.TxModeDisabled} {
		t.Run(mode, func(t *testing.T) {
			db := newTestDB(t)
			ctx := context.Background()
			reg := prometheus.NewRegistry()
			l := newLedger(t, db, mode, reg)
			assert.Equal(t, mode == config.TxModeAuto, l.Transactional())
			a := seedIngredient(t, db, "A", 50)
			b := seedIngredient(t, db, "B", 50)

			boom := errors.New("order write failed")
			err := l.Deduct(ctx, []models.IngredientQuantity{
				{IngredientID: a, Quantity: qty(10)},
				{IngredientID: b, Quantity: qty(20)},
			}, func(tx *gorm.DB) error { return boom })
			require.ErrorIs(t, err, boom)

			assert.True(t, stockOf(t, db, a).Equal(qty(50)))
			assert.True(t, stockOf(t, db, b).Equal(qty(50)))

			if mode == config.TxModeDisabled {
				assert.Equal(t, 1.0, compensations(t, reg, "follow_up_failed"))
			}
		})
	}
}

func TestDeductCommitsStockAndFollowUp(t *testing.T) {
	for _, mode := range []string{config.TxModeAuto, config.TxModeDisabled} {
		t.Run(mode, func(t *testing.T) {
			db := newTestDB(t)
			ctx := context.Background()
			l := newLedger(t, db, mode, nil)
			a := seedIngredient(t, db, "A", 50)
			marker := seedIngredient(t, db, "Marker", 0)

			err := l.Deduct(ctx, []models.IngredientQuantity{{IngredientID: a, Quantity: qty(15)}}, func(tx *gorm.DB) error {
				return IncrementOne(ctx, tx, marker, qty(1))
			})
			require.NoError(t, err)
			assert.True(t, stockOf(t, db, a).Equal(qty(35)))
			assert.True(t, stockOf(t, db, marker).Equal(qty(1)))
		})
	}
}

func TestDeductInsufficientLeavesStock(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	l := newLedger(t, db, config.TxModeDisabled, nil)
	a := seedIngredient(t, db, "A", 50)
	b := seedIngredient(t, db, "B", 1)
	called := false

	err := l.Deduct(ctx, []models.IngredientQuantity{
		{IngredientID: a, Quantity: qty(10)},
		{IngredientID: b, Quantity: qty(2)},
	}, func(tx *gorm.DB) error {
		called = true
		return nil
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientIngredients))
	assert.False(t, called)
	assert.True(t, stockOf(t, db, a).Equal(qty(50)))
	assert.True(t, stockOf(t, db, b).Equal(qty(1)))
}

func TestRestockRequiresClaim(t *testing.T) {
	for _, mode := range []string{config.TxModeAuto, config.TxModeDisabled} {
		t.Run(mode, func(t *testing.T) {
			db := newTestDB(t)
			ctx := context.Background()
			l := newLedger(t, db, mode, nil)
			a := seedIngredient(t, db, "A", 0)
			items := []models.IngredientQuantity{{IngredientID: a, Quantity: qty(8)}}

			err := l.Restock(ctx, items, func(tx *gorm.DB) error {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "already restocked")
			})
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
			assert.True(t, stockOf(t, db, a).IsZero())

			require.NoError(t, l.Restock(ctx, items, func(tx *gorm.DB) error { return nil }))
			assert.True(t, stockOf(t, db, a).Equal(qty(8)))
		})
	}
}

type noTxRunner struct {
	db *gorm.DB
}

func (n noTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return errors.New("transactions unavailable")
}
func (n noTxRunner) SupportsTransactions() bool { return false }
func (n noTxRunner) DB() *gorm.DB               { return n.db }

func TestNewHonorsTransactionMode(t *testing.T) {
	db := newTestDB(t)

	_, err := New(Params{DB: noTxRunner{db: db}, Mode: config.TxModeRequired})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTransactionUnsupported))

	l, err := New(Params{DB: noTxRunner{db: db}})
	require.NoError(t, err)
	assert.False(t, l.Transactional(), "auto falls back when the transaction check fails")

	_, err = New(Params{DB: noTxRunner{db: db}, Mode: "sometimes"})
	assert.Error(t, err)

	a := seedIngredient(t, db, "A", 5)
	require.NoError(t, l.Deduct(context.Background(), []models.IngredientQuantity{{IngredientID: a, Quantity: qty(5)}}, nil))
	assert.True(t, stockOf(t, db, a).IsZero())
}

func compensations(t *testing.T, reg *prometheus.Registry, reason string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "stock_batch_compensations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabel(metric.GetLabel(), "reason", reason) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
