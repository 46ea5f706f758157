package receiving

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kitchenstock-backend/api/middleware"
	"github.com/angelmondragon/kitchenstock-backend/internal/receiving"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
)

type stubReconciler struct {
	parse   func(value string) (time.Time, error)
	tasks   func(ctx context.Context, date time.Time) (*receiving.Tasks, error)
	confirm func(ctx context.Context, items []receiving.ConfirmItem, actor string) (*receiving.ConfirmResult, error)
	logs    func(ctx context.Context, date time.Time) ([]models.ReceivingLog, error)
}

func (s *stubReconciler) ListLogs(ctx context.Context, date time.Time) ([]models.ReceivingLog, error) {
	return s.logs(ctx, date)
}

func (s *stubReconciler) ParseDate(value string) (time.Time, error) {
	return s.parse(value)
}

func (s *stubReconciler) GetReceivingTasks(ctx context.Context, date time.Time) (*receiving.Tasks, error) {
	return s.tasks(ctx, date)
}

func (s *stubReconciler) ConfirmReceiving(ctx context.Context, items []receiving.ConfirmItem, actor string) (*receiving.ConfirmResult, error) {
	return s.confirm(ctx, items, actor)
}

func TestTasksUsesQueryDate(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	svc := &stubReconciler{
		parse: func(value string) (time.Time, error) {
			assert.Equal(t, "2026-03-02", value)
			return day, nil
		},
		tasks: func(ctx context.Context, date time.Time) (*receiving.Tasks, error) {
			assert.True(t, date.Equal(day))
			return &receiving.Tasks{Date: "2026-03-02", Daily: []receiving.Task{{Name: "milk"}}, Other: []receiving.Task{}}, nil
		},
	}

	resp := httptest.NewRecorder()
	Tasks(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/receiving/tasks?date=2026-03-02", nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Data receiving.Tasks `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Daily, 1)
	assert.Equal(t, "milk", envelope.Data.Daily[0].Name)
}

func TestTasksRejectsBadDate(t *testing.T) {
	svc := &stubReconciler{
		parse: func(value string) (time.Time, error) {
			return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD")
		},
	}
	resp := httptest.NewRecorder()
	Tasks(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/receiving/tasks?date=03/02", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestConfirmForwardsLinesAndActor(t *testing.T) {
	ingredientID := uuid.New()
	logID := uuid.New()
	svc := &stubReconciler{
		confirm: func(ctx context.Context, items []receiving.ConfirmItem, actor string) (*receiving.ConfirmResult, error) {
			assert.Equal(t, "receiver-1", actor)
			require.Len(t, items, 2)
			assert.Equal(t, ingredientID, items[0].IngredientID)
			require.NotNil(t, items[0].ReceivedQty)
			assert.True(t, items[0].ReceivedQty.Equal(decimal.RequireFromString("2.5")))
			assert.Equal(t, "short one box", items[0].Note)
			assert.Nil(t, items[1].ReceivedQty)
			return &receiving.ConfirmResult{UpdatedCount: 1, LogID: &logID}, nil
		},
	}

	body := `{"items":[{"ingredientId":"` + ingredientID.String() + `","receivedQty":2.5,"note":" short one box "},{"ingredientId":"` + uuid.NewString() + `"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/receiving/confirm", strings.NewReader(body))
	req = req.WithContext(middleware.WithStaffID(req.Context(), "receiver-1"))

	resp := httptest.NewRecorder()
	Confirm(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Data receiving.ConfirmResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, 1, envelope.Data.UpdatedCount)
}

func TestConfirmRequiresItems(t *testing.T) {
	svc := &stubReconciler{}
	resp := httptest.NewRecorder()
	Confirm(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/receiving/confirm", strings.NewReader(`{"items":[]}`)))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLogsRendersDisplayQuantities(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	svc := &stubReconciler{
		parse: func(value string) (time.Time, error) { return day, nil },
		logs: func(ctx context.Context, date time.Time) ([]models.ReceivingLog, error) {
			return []models.ReceivingLog{{
				ID:        uuid.New(),
				DateKey:   "2026-03-02",
				CreatedBy: "receiver-1",
				Items: []models.ReceivingLogItem{{
					IngredientName: "flour",
					DisplayUnit:    "kg",
					SuggestedQty:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
					ReceivedQty:    decimal.NewFromInt(8),
				}},
			}}, nil
		},
	}

	resp := httptest.NewRecorder()
	Logs(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/receiving/logs?date=2026-03-02", nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Data struct {
			Items []logResponse `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Items, 1)
	require.Len(t, envelope.Data.Items[0].Items, 1)
	item := envelope.Data.Items[0].Items[0]
	require.NotNil(t, item.SuggestedQty)
	assert.True(t, item.SuggestedQty.Equal(decimal.NewFromInt(10)))
	assert.True(t, item.ReceivedQty.Equal(decimal.NewFromInt(8)))
}
