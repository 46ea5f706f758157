package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenstock-backend/pkg/config"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
)

func sqliteInvocation(t *testing.T) invocation {
	t.Helper()
	cfg := &config.Config{DB: config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:migrate_cmd_" + uuid.NewString() + "?mode=memory&cache=shared",
	}}
	client, err := db.New(context.Background(), cfg.DB, logger.New(logger.Options{ServiceName: "migrate-test"}))
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	sqlDB, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	return invocation{cfg: cfg, dir: t.TempDir(), out: &bytes.Buffer{}, client: client, sqlDB: sqlDB}
}

func TestDispatchSQLiteUpThenStatus(t *testing.T) {
	ctx := context.Background()
	inv := sqliteInvocation(t)

	if err := dispatch(ctx, commands["up"], "up", inv); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := dispatch(ctx, commands["status"], "status", inv); err != nil {
		t.Fatalf("status: %v", err)
	}
	out := inv.out.(*bytes.Buffer).String()
	if !strings.Contains(out, "orders") || strings.Contains(out, "missing") {
		t.Fatalf("unexpected status output:\n%s", out)
	}

	if err := dispatch(ctx, commands["down"], "down", inv); err != nil {
		t.Fatalf("down: %v", err)
	}
	if inv.client.DB().Migrator().HasTable("ingredients") {
		t.Fatal("expected ingredients dropped")
	}
}

func TestDispatchSQLiteRejectsPostgresOnlyCommand(t *testing.T) {
	inv := sqliteInvocation(t)
	inv.version = "20260101000000"
	err := dispatch(context.Background(), commands["version"], "version", inv)
	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestDispatchCreateRequiresName(t *testing.T) {
	inv := invocation{cfg: &config.Config{}, dir: t.TempDir(), out: &bytes.Buffer{}}
	err := dispatch(context.Background(), commands["create"], "create", inv)
	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}

	inv.name = "add supplier notes"
	if err := dispatch(context.Background(), commands["create"], "create", inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(inv.out.(*bytes.Buffer).String(), "_add_supplier_notes.sql") {
		t.Fatalf("unexpected output %q", inv.out.(*bytes.Buffer).String())
	}
}

func TestCommandNamesSorted(t *testing.T) {
	if got := commandNames(); got != "create|down|status|up|validate|version" {
		t.Fatalf("unexpected command list %q", got)
	}
}
