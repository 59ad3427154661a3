package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := f.values[key]; exists {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	client := newFakeRedis()
	lock, err := NewRedisLock(client, "sweep-lock", time.Minute)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	// A second worker cannot take the held lock.
	other, err := NewRedisLock(client, "sweep-lock", time.Minute)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	ok, err = other.Acquire(ctx)
	if err != nil || ok {
		t.Fatalf("expected held lock to deny acquire: ok=%v err=%v", ok, err)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = other.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockReleaseOnlyWhenOwned(t *testing.T) {
	client := newFakeRedis()
	lock, err := NewRedisLock(client, "sweep-lock", time.Minute)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	ctx := context.Background()

	// Releasing without acquiring is a no-op.
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release without acquire: %v", err)
	}

	if ok, err := lock.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	// The TTL lapsed and someone else took the key; we must not delete it.
	client.values["sweep-lock"] = "someone-else"
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if client.values["sweep-lock"] != "someone-else" {
		t.Fatal("release must not delete a lock owned by another worker")
	}

	// Key already expired from redis entirely.
	if ok, err := lock.Acquire(ctx); err != nil || ok {
		t.Fatalf("acquire on foreign key: ok=%v err=%v", ok, err)
	}
	delete(client.values, "sweep-lock")
}

func TestNewRedisLockValidation(t *testing.T) {
	if _, err := NewRedisLock(nil, "key", time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewRedisLock(newFakeRedis(), "", time.Minute); err == nil {
		t.Fatal("expected error for empty key")
	}

	lock, err := NewRedisLock(newFakeRedis(), "key", 0)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	if lock.ttl != defaultLockTTL {
		t.Fatalf("expected default TTL, got %s", lock.ttl)
	}
}
