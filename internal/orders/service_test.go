package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/kitchenstock-backend/internal/ingredients"
	"github.com/angelmondragon/kitchenstock-backend/internal/ledger"
	"github.com/angelmondragon/kitchenstock-backend/internal/notifications"
	"github.com/angelmondragon/kitchenstock-backend/internal/recipes"
	"github.com/angelmondragon/kitchenstock-backend/pkg/config"
	pkgdb "github.com/angelmondragon/kitchenstock-backend/pkg/db"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Notify(_ context.Context, event notifications.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) types() []notifications.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	notifier *recordingNotifier
	cheese   uuid.UUID
	burger   uuid.UUID
}

var txModes = []string{config.TxModeAuto, config.TxModeDisabled}

func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()
	ctx := context.Background()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	cheese := &models.Ingredient{
		Name:             "Cheese",
		DisplayUnit:      "kg",
		BaseUnit:         enums.BaseUnitGrams,
		ConversionFactor: decimal.NewFromInt(1000),
		StockOnHand:      decimal.NewFromInt(1000),
		ParLevel:         decimal.NewFromInt(1000),
		IssueRule:        enums.IssueRuleDaily,
	}
	require.NoError(t, db.Create(cheese).Error)

	burger := uuid.New()
	recipe := &models.Recipe{ProductID: burger, IsActive: true}
	require.NoError(t, db.Omit("Items").Create(recipe).Error)
	require.NoError(t, db.Create(&models.RecipeItem{
		RecipeID:        recipe.ID,
		IngredientID:    cheese.ID,
		QuantityPerUnit: decimal.NewFromInt(100),
	}).Error)

	ingredientRepo := ingredients.NewRepository(db)
	resolver, err := recipes.NewResolver(recipes.NewRepository(db), ingredientRepo)
	require.NoError(t, err)
	stock, err := ledger.New(ledger.Params{DB: pkgdb.Wrap(ctx, db), Mode: mode})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Resolver: resolver,
		Ledger:   stock,
		Notifier: notifier,
		Now:      func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return &fixture{db: db, svc: svc, notifier: notifier, cheese: cheese.ID, burger: burger}
}

func (f *fixture) stock(t *testing.T) decimal.Decimal {
	t.Helper()
	var ingredient models.Ingredient
	require.NoError(t, f.db.First(&ingredient, "id = ?", f.cheese).Error)
	return ingredient.StockOnHand
}

func (f *fixture) order(t *testing.T, burgers int) (*models.Order, error) {
	t.Helper()
	return f.svc.Create(context.Background(), CreateOrderInput{
		Items: []OrderItemInput{{
			ProductID: f.burger,
			Name:      "Burger",
			Quantity:  burgers,
			UnitPrice: decimal.RequireFromString("9.50"),
		}},
		Actor: "staff-1",
	})
}

func (f *fixture) move(t *testing.T, orderID uuid.UUID, target enums.KitchenStatus) (*models.Order, error) {
	t.Helper()
	input := TransitionInput{
		OrderID: orderID,
		Target:  target,
		Actor:   "staff-2",
	}
	if target == enums.KitchenStatusRejected {
		input.Reason = &RejectReason{Code: enums.RejectReasonInputMistake}
	}
	return f.svc.TransitionKitchenStatus(context.Background(), input)
}

func assertStock(t *testing.T, f *fixture, want int64) {
	t.Helper()
	got := f.stock(t)
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "stock = %s, want %d", got, want)
}

func TestCreateRejectsWhenCheeseIsShort(t *testing.T) {
	for _, mode := range txModes {
		t.Run(mode, func(t *testing.T) {
			f := newFixture(t, mode)

			_, err := f.order(t, 12)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientIngredients))

			shortages, ok := pkgerrors.As(err).Details().([]types.Shortage)
			require.True(t, ok)
			require.Len(t, shortages, 1)
			assert.True(t, shortages[0].Shortage.Equal(decimal.NewFromInt(200)))
			assertStock(t, f, 1000)

			var count int64
			require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
			assert.Zero(t, count)
			assert.Empty(t, f.notifier.types())
		})
	}
}

func TestCreateDeductsAndRecordsHolding(t *testing.T) {
	for _, mode := range txModes {
		t.Run(mode, func(t *testing.T) {
			f := newFixture(t, mode)

			order, err := f.order(t, 8)
			require.NoError(t, err)
			assertStock(t, f, 200)
			assert.Equal(t, enums.KitchenStatusNew, order.KitchenStatus)
			assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("76")))

			stored, err := f.svc.Get(context.Background(), order.ID)
			require.NoError(t, err)
			require.True(t, stored.HoldsDeduction())
			require.Len(t, stored.IngredientsDeductedItems, 1)
			assert.Equal(t, f.cheese, stored.IngredientsDeductedItems[0].IngredientID)
			assert.True(t, stored.IngredientsDeductedItems[0].Quantity.Equal(decimal.NewFromInt(800)))
			require.NotNil(t, stored.IngredientsDeductedBy)
			assert.Equal(t, "staff-1", *stored.IngredientsDeductedBy)
			require.Len(t, stored.Items, 1)
			assert.Equal(t, 8, stored.Items[0].Quantity)

			_, err = f.order(t, 2)
			require.NoError(t, err)
			assertStock(t, f, 0)

			_, err = f.order(t, 1)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientIngredients))
			assertStock(t, f, 0)
			assert.Equal(t, []notifications.EventType{notifications.EventOrderCreated, notifications.EventOrderCreated}, f.notifier.types())
		})
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, config.TxModeAuto)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateOrderInput{Actor: "staff-1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateOrderInput{Items: []OrderItemInput{{ProductID: f.burger, Quantity: 1}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Create(ctx, CreateOrderInput{Items: []OrderItemInput{{ProductID: f.burger, Quantity: 0}}, Actor: "staff-1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	unknown := uuid.New()
	_, err = f.svc.Create(ctx, CreateOrderInput{
		Items: []OrderItemInput{{ProductID: unknown, Name: "Mystery", Quantity: 1}},
		Actor: "staff-1",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRecipeMissing))
	assertStock(t, f, 1000)
}

func TestRejectRestoresExactlyWhatWasHeld(t *testing.T) {
	for _, mode := range txModes {
		t.Run(mode, func(t *testing.T) {
			f := newFixture(t, mode)
			order, err := f.order(t, 8)
			require.NoError(t, err)

			_, err = f.move(t, order.ID, enums.KitchenStatusAccepted)
			require.NoError(t, err)
			assertStock(t, f, 200)

			rejected, err := f.svc.TransitionKitchenStatus(context.Background(), TransitionInput{
				OrderID: order.ID,
				Target:  enums.KitchenStatusRejected,
				Reason:  &RejectReason{Code: enums.RejectReasonOutOfStock},
				Actor:   "staff-2",
			})
			require.NoError(t, err)
			assertStock(t, f, 1000)
			assert.Equal(t, enums.KitchenStatusRejected, rejected.KitchenStatus)
			assert.Equal(t, enums.OrderStatusKitchenRejected, rejected.Status)
			require.NotNil(t, rejected.IngredientsRestockedAt)
			require.NotNil(t, rejected.RejectReasonCode)
			assert.Equal(t, enums.RejectReasonOutOfStock, *rejected.RejectReasonCode)
			assert.False(t, rejected.HoldsDeduction())

			again, err := f.move(t, order.ID, enums.KitchenStatusRejected)
			require.NoError(t, err)
			assert.Equal(t, enums.KitchenStatusRejected, again.KitchenStatus)
			assertStock(t, f, 1000)
		})
	}
}

func TestAcceptDoesNotDeductTwice(t *testing.T) {
	f := newFixture(t, config.TxModeAuto)
	order, err := f.order(t, 3)
	require.NoError(t, err)
	assertStock(t, f, 700)

	accepted, err := f.move(t, order.ID, enums.KitchenStatusAccepted)
	require.NoError(t, err)
	assertStock(t, f, 700)
	require.NotNil(t, accepted.AcceptedBy)
	assert.Equal(t, "staff-2", *accepted.AcceptedBy)

	_, err = f.move(t, order.ID, enums.KitchenStatusAccepted)
	require.NoError(t, err)
	assertStock(t, f, 700)
}

func TestRejectThenReacceptRoundTrip(t *testing.T) {
	for _, mode := range txModes {
		t.Run(mode, func(t *testing.T) {
			f := newFixture(t, mode)
			order, err := f.order(t, 4)
			require.NoError(t, err)
			assertStock(t, f, 600)

			for i := 0; i < 3; i++ {
				_, err = f.svc.TransitionKitchenStatus(context.Background(), TransitionInput{
					OrderID: order.ID,
					Target:  enums.KitchenStatusRejected,
					Reason:  &RejectReason{Code: enums.RejectReasonOther, Note: "wrong table"},
					Actor:   "staff-2",
				})
				require.NoError(t, err)
				assertStock(t, f, 1000)

				reaccepted, err := f.move(t, order.ID, enums.KitchenStatusAccepted)
				require.NoError(t, err)
				assertStock(t, f, 600)
				assert.True(t, reaccepted.HoldsDeduction())
				assert.Nil(t, reaccepted.RejectedAt)
				assert.Nil(t, reaccepted.RejectReasonCode)
				assert.Nil(t, reaccepted.IngredientsRestockedAt)
				require.Len(t, reaccepted.IngredientsDeductedItems, 1)
				assert.True(t, reaccepted.IngredientsDeductedItems[0].Quantity.Equal(decimal.NewFromInt(400)))
			}
		})
	}
}

func TestReacceptFailsWhenStockWasConsumed(t *testing.T) {
	f := newFixture(t, config.TxModeAuto)
	first, err := f.order(t, 6)
	require.NoError(t, err)
	_, err = f.move(t, first.ID, enums.KitchenStatusRejected)
	require.NoError(t, err)
	assertStock(t, f, 1000)

	_, err = f.order(t, 7)
	require.NoError(t, err)
	assertStock(t, f, 300)

	_, err = f.move(t, first.ID, enums.KitchenStatusAccepted)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientIngredients))
	assertStock(t, f, 300)

	stored, err := f.svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.KitchenStatusRejected, stored.KitchenStatus)
}

func TestKitchenLifecycle(t *testing.T) {
	f := newFixture(t, config.TxModeAuto)
	order, err := f.order(t, 1)
	require.NoError(t, err)

	_, err = f.move(t, order.ID, enums.KitchenStatusCooking)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	for _, target := range []enums.KitchenStatus{
		enums.KitchenStatusAccepted,
		enums.KitchenStatusCooking,
		enums.KitchenStatusCompleted,
	} {
		updated, err := f.move(t, order.ID, target)
		require.NoError(t, err)
		assert.Equal(t, target, updated.KitchenStatus)
		assert.Equal(t, target.OrderStatus(), updated.Status)
	}

	done, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.NotNil(t, done.CookingStartedAt)
	assert.NotNil(t, done.CompletedAt)

	_, err = f.move(t, order.ID, enums.KitchenStatusRejected)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = f.move(t, order.ID, enums.KitchenStatusNew)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.move(t, uuid.New(), enums.KitchenStatusAccepted)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assertStock(t, f, 900)

	assert.Contains(t, f.notifier.types(), notifications.EventOrderKitchenStatusChanged)
}

func TestRejectReasonValidation(t *testing.T) {
	f := newFixture(t, config.TxModeAuto)
	order, err := f.order(t, 1)
	require.NoError(t, err)

	_, err = f.svc.TransitionKitchenStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.KitchenStatusRejected,
		Reason:  &RejectReason{Code: enums.RejectReasonOther},
		Actor:   "staff-2",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.TransitionKitchenStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.KitchenStatusRejected,
		Reason:  &RejectReason{Code: "spilled"},
		Actor:   "staff-2",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assertStock(t, f, 900)
}

func TestRejectWithoutReasonFails(t *testing.T) {
	f := newFixture(t, config.TxModeAuto)
	order, err := f.order(t, 1)
	require.NoError(t, err)

	_, err = f.svc.TransitionKitchenStatus(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.KitchenStatusRejected,
		Actor:   "staff-2",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assertStock(t, f, 900)

	stored, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.KitchenStatusNew, stored.KitchenStatus)
	assert.Nil(t, stored.RejectedAt)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.KitchenStatus
		want     bool
	}{
		{enums.KitchenStatusNew, enums.KitchenStatusAccepted, true},
		{enums.KitchenStatusNew, enums.KitchenStatusRejected, true},
		{enums.KitchenStatusNew, enums.KitchenStatusCompleted, false},
		{enums.KitchenStatusAccepted, enums.KitchenStatusCooking, true},
		{enums.KitchenStatusCooking, enums.KitchenStatusCompleted, true},
		{enums.KitchenStatusCooking, enums.KitchenStatusAccepted, false},
		{enums.KitchenStatusCompleted, enums.KitchenStatusRejected, false},
		{enums.KitchenStatusRejected, enums.KitchenStatusAccepted, true},
		{enums.KitchenStatusRejected, enums.KitchenStatusCooking, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
