package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kitchenstock-backend/api/middleware"
	"github.com/angelmondragon/kitchenstock-backend/internal/alerts"
	"github.com/angelmondragon/kitchenstock-backend/internal/recipes"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/types"
)

type stubResolver struct {
	resolve func(ctx context.Context, lines []recipes.LineItem) (*recipes.Requirements, error)
}

func (s *stubResolver) Resolve(ctx context.Context, lines []recipes.LineItem) (*recipes.Requirements, error) {
	return s.resolve(ctx, lines)
}

type stubEngine struct {
	scan  func(ctx context.Context) ([]alerts.LowStockItem, error)
	apply func(ctx context.Context, ingredientID uuid.UUID, action enums.AlertAction, actor string) (*models.LowStockAlert, error)
}

func (s *stubEngine) ScanLowStock(ctx context.Context) ([]alerts.LowStockItem, error) {
	return s.scan(ctx)
}

func (s *stubEngine) Apply(ctx context.Context, ingredientID uuid.UUID, action enums.AlertAction, actor string) (*models.LowStockAlert, error) {
	return s.apply(ctx, ingredientID, action, actor)
}

func TestRequirementsReturnsShortagesWithoutError(t *testing.T) {
	productID := uuid.New()
	cheese := uuid.New()
	resolver := &stubResolver{resolve: func(ctx context.Context, lines []recipes.LineItem) (*recipes.Requirements, error) {
		require.Len(t, lines, 1)
		assert.Equal(t, productID, lines[0].ProductID)
		assert.Equal(t, 12, lines[0].Quantity)
		return &recipes.Requirements{
			RequiredItems: []models.IngredientQuantity{{IngredientID: cheese, Quantity: decimal.NewFromInt(1200)}},
			Shortages: []types.Shortage{{
				IngredientID: cheese,
				Required:     decimal.NewFromInt(1200),
				Available:    decimal.NewFromInt(1000),
				Shortage:     decimal.NewFromInt(200),
			}},
		}, nil
	}}

	body := `{"items":[{"productId":"` + productID.String() + `","name":"Burger","quantity":12}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/requirements", strings.NewReader(body))
	resp := httptest.NewRecorder()
	Requirements(resolver, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Data recipes.Requirements `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Shortages, 1)
	assert.True(t, envelope.Data.Shortages[0].Shortage.Equal(decimal.NewFromInt(200)))
}

func TestRequirementsValidatesBody(t *testing.T) {
	resolver := &stubResolver{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/requirements", strings.NewReader(`{"lines":[]}`))
	resp := httptest.NewRecorder()
	Requirements(resolver, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLowStockReturnsEmptyList(t *testing.T) {
	engine := &stubEngine{scan: func(ctx context.Context) ([]alerts.LowStockItem, error) {
		return nil, nil
	}}
	resp := httptest.NewRecorder()
	LowStock(engine, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/low-stock", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"items":[]}}`, resp.Body.String())
}

func TestAlertActionPassesActionAndActor(t *testing.T) {
	ingredientID := uuid.New()
	actor := "chef-2"
	engine := &stubEngine{apply: func(ctx context.Context, id uuid.UUID, action enums.AlertAction, got string) (*models.LowStockAlert, error) {
		assert.Equal(t, ingredientID, id)
		assert.Equal(t, enums.AlertActionCheck, action)
		assert.Equal(t, actor, got)
		return &models.LowStockAlert{IngredientID: id, Status: enums.AlertStatusChecked, CheckedBy: &actor}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/low-stock/"+ingredientID.String()+"/check", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("ingredientId", ingredientID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	req = req.WithContext(middleware.WithStaffID(req.Context(), actor))

	resp := httptest.NewRecorder()
	AlertAction(engine, enums.AlertActionCheck, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Data alertResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, enums.AlertStatusChecked, envelope.Data.Status)
}

func TestAlertActionSurfacesStateConflict(t *testing.T) {
	ingredientID := uuid.New()
	engine := &stubEngine{apply: func(ctx context.Context, id uuid.UUID, action enums.AlertAction, actor string) (*models.LowStockAlert, error) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot report a resolved alert")
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/low-stock/"+ingredientID.String()+"/report", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("ingredientId", ingredientID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	resp := httptest.NewRecorder()
	AlertAction(engine, enums.AlertActionReport, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}
