package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "k", "owner-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "owner-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, ok=%v err=%v", ok, err)
	}
	value, err := client.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "owner-a" {
		t.Fatalf("expected owner-a, got %q", value)
	}

	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestPublishRecordsChannel(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Publish(context.Background(), "ks:events:kitchen", `{"type":"order.created"}`); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(mock.published) != 1 || mock.published[0].channel != "ks:events:kitchen" {
		t.Fatalf("unexpected publish calls %+v", mock.published)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Publish(context.Background(), "c", "x"); err == nil {
		t.Fatal("expected error from nil store")
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error from nil store")
	}
}

func TestDelIfValueOnlyRemovesOwnedKey(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	mock.data["ks:lock:cron"] = "owner-a"

	removed, err := client.DelIfValue(ctx, "ks:lock:cron", "owner-b")
	if err != nil || removed {
		t.Fatalf("expected foreign owner to keep lock, removed=%v err=%v", removed, err)
	}
	removed, err = client.DelIfValue(ctx, "ks:lock:cron", "owner-a")
	if err != nil || !removed {
		t.Fatalf("expected owner to release lock, removed=%v err=%v", removed, err)
	}
	if _, ok := mock.data["ks:lock:cron"]; ok {
		t.Fatal("lock key still present")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.LockKey("cron"); got != "ks:lock:cron" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.ChannelKey("kitchen"); got != "ks:events:kitchen" {
		t.Fatalf("unexpected channel key %s", got)
	}
	if got := client.IdempotencyKey("cook-1|POST|/api/v1/orders", "abc"); got != "ks:idempotency:cook-1|POST|/api/v1/orders:abc" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.ChannelKey(""); got != "ks:events" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

type mockCmdable struct {
	data      map[string]string
	published []publishCall
}

type publishCall struct {
	channel string
	payload any
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	m.published = append(m.published, publishCall{channel: channel, payload: message})
	return redis.NewIntResult(1, nil)
}

// Eval understands the single compare-and-delete script the client sends.
func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != deleteIfOwner || len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
	}
	if current, ok := m.data[keys[0]]; ok && current == fmt.Sprint(args[0]) {
		delete(m.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}
