package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/kitchenstock-backend/internal/alerts"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
)

type fakeScanner struct {
	items []alerts.LowStockItem
	err   error
	calls int
}

func (f *fakeScanner) ScanLowStock(context.Context) ([]alerts.LowStockItem, error) {
	f.calls++
	return f.items, f.err
}

func TestLowStockScanJobRunsScanner(t *testing.T) {
	scanner := &fakeScanner{items: []alerts.LowStockItem{
		{Name: "Cheese", AlertStatus: enums.AlertStatusOpen},
		{Name: "Salt", AlertStatus: enums.AlertStatusReported},
	}}
	job, err := NewLowStockScanJob(LowStockScanJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Scanner: scanner,
	})
	if err != nil {
		t.Fatalf("NewLowStockScanJob: %v", err)
	}
	if job.Name() != "low-stock-scan" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scanner.calls != 1 {
		t.Fatalf("expected scanner called once, got %d", scanner.calls)
	}
}

func TestLowStockScanJobPropagatesErrors(t *testing.T) {
	job, err := NewLowStockScanJob(LowStockScanJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Scanner: &fakeScanner{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewLowStockScanJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewLowStockScanJobRequiresScanner(t *testing.T) {
	if _, err := NewLowStockScanJob(LowStockScanJobParams{Logger: logger.New(logger.Options{ServiceName: "test"})}); err == nil {
		t.Fatal("expected error without scanner")
	}
}
