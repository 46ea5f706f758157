package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:db_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestWrap_DetectsTransactions(t *testing.T) {
	client := Wrap(context.Background(), newTestDB(t))
	if !client.SupportsTransactions() {
		t.Fatal("expected sqlite to support transactions")
	}

	var nilClient *Client
	if nilClient.SupportsTransactions() {
		t.Fatal("nil client must not report transaction support")
	}
}

func TestWithTxIfSupported_FallsBackWithoutTransactions(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db, txSupported: false}

	inTx, err := client.WithTxIfSupported(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "direct"}).Error
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inTx {
		t.Fatal("expected direct execution when transactions are unsupported")
	}

	client.txSupported = true
	inTx, err = client.WithTxIfSupported(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "tx"}).Error
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inTx {
		t.Fatal("expected transactional execution")
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}
