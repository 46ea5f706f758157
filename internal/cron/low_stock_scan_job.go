package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/kitchenstock-backend/internal/alerts"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
)

type lowStockScanner interface {
	ScanLowStock(ctx context.Context) ([]alerts.LowStockItem, error)
}

type LowStockScanJobParams struct {
	Logger  *logger.Logger
	Scanner lowStockScanner
}

func NewLowStockScanJob(params LowStockScanJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Scanner == nil {
		return nil, fmt.Errorf("low stock scanner required")
	}
	return &lowStockScanJob{logg: params.Logger, scanner: params.Scanner}, nil
}

type lowStockScanJob struct {
	logg    *logger.Logger
	scanner lowStockScanner
}

func (j *lowStockScanJob) Name() string { return "low-stock-scan" }

func (j *lowStockScanJob) Run(ctx context.Context) error {
	items, err := j.scanner.ScanLowStock(ctx)
	if err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}
	open := 0
	for _, item := range items {
		if item.AlertStatus == enums.AlertStatusOpen {
			open++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"low_stock_count": len(items),
		"open_alerts":     open,
	})
	j.logg.Info(logCtx, "low stock scan complete")
	return nil
}
