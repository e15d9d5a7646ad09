package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestLockExclusiveUntilReleased(t *testing.T) {
	mr := miniredis.RunT(t)
	client := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	ctx := context.Background()
	key := client.ImportLockKey("list-1")

	first, err := NewLock(client, key, time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewLock(client, key, time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected first acquire, ok=%v err=%v", ok, err)
	}
	if ok, err := second.Acquire(ctx); err != nil || ok {
		t.Fatalf("expected second acquire to fail, ok=%v err=%v", ok, err)
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner should be a no-op, got %v", err)
	}
	if !mr.Exists(key) {
		t.Fatalf("non-owner release must not delete the key")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, err := second.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected acquire after release, ok=%v err=%v", ok, err)
	}
}

func TestLockExpiredOwnerDoesNotDeleteNewHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	ctx := context.Background()
	key := client.ImportLockKey("list-2")

	stale, _ := NewLock(client, key, time.Second)
	if ok, _ := stale.Acquire(ctx); !ok {
		t.Fatalf("expected acquire")
	}
	mr.FastForward(2 * time.Second)

	fresh, _ := NewLock(client, key, time.Minute)
	if ok, _ := fresh.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after expiry")
	}
	if err := stale.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if !mr.Exists(key) {
		t.Fatalf("stale owner removed the new holder's lock")
	}
}

func TestNewLockValidation(t *testing.T) {
	if _, err := NewLock(nil, "k", time.Second); err == nil {
		t.Fatalf("expected error without client")
	}
	if _, err := NewLock(&Client{}, "", time.Second); err == nil {
		t.Fatalf("expected error without key")
	}
	l, err := NewLock(&Client{}, "k", 0)
	if err != nil || l.ttl != defaultLockTTL {
		t.Fatalf("expected default ttl, got %v (%v)", l, err)
	}
}
