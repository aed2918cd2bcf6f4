package api

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeThrottleStore struct {
	counts map[string]int64
	locks  map[string]bool
}

func newFakeThrottleStore() *fakeThrottleStore {
	return &fakeThrottleStore{counts: map[string]int64{}, locks: map[string]bool{}}
}

func (s *fakeThrottleStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeThrottleStore) Locked(_ context.Context, key string) (bool, error) {
	return s.locks[key], nil
}

func (s *fakeThrottleStore) Lock(_ context.Context, key string, _ time.Duration) error {
	s.locks[key] = true
	return nil
}

func (s *fakeThrottleStore) Clear(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.counts, key)
		delete(s.locks, key)
	}
	return nil
}

func TestLoginThrottle_LocksAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	throttle := newLoginThrottle(newFakeThrottleStore(), 100, 3, 15*time.Minute)

	throttle.NoteFailure(ctx, "Alice")
	throttle.NoteFailure(ctx, "alice")
	if err := throttle.Reserve(ctx, "1.2.3.4", "alice"); err != nil {
		t.Fatalf("two failures should not lock yet, got %v", err)
	}

	throttle.NoteFailure(ctx, "ALICE")
	if err := throttle.Reserve(ctx, "1.2.3.4", "alice"); !errors.Is(err, errLoginLocked) {
		t.Fatalf("third failure should lock the account, got %v", err)
	}
	// 大小写归一：换个写法照样被锁。
	if err := throttle.Reserve(ctx, "5.6.7.8", " Alice "); !errors.Is(err, errLoginLocked) {
		t.Fatalf("lock should apply regardless of username casing, got %v", err)
	}
}

func TestLoginThrottle_ResetClearsFailuresAndLock(t *testing.T) {
	ctx := context.Background()
	throttle := newLoginThrottle(newFakeThrottleStore(), 100, 2, 15*time.Minute)

	throttle.NoteFailure(ctx, "bob")
	throttle.NoteFailure(ctx, "bob")
	if err := throttle.Reserve(ctx, "1.2.3.4", "bob"); !errors.Is(err, errLoginLocked) {
		t.Fatalf("expected locked, got %v", err)
	}

	throttle.Reset(ctx, "bob")
	if err := throttle.Reserve(ctx, "1.2.3.4", "bob"); err != nil {
		t.Fatalf("reset should clear the lock, got %v", err)
	}
}

func TestLoginThrottle_RateLimitsAttemptsPerWindow(t *testing.T) {
	ctx := context.Background()
	throttle := newLoginThrottle(newFakeThrottleStore(), 2, 10, 15*time.Minute)

	if err := throttle.Reserve(ctx, "1.2.3.4", "carol"); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if err := throttle.Reserve(ctx, "1.2.3.4", "carol"); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if err := throttle.Reserve(ctx, "1.2.3.4", "carol"); !errors.Is(err, errLoginRateLimited) {
		t.Fatalf("third attempt should hit the rate limit, got %v", err)
	}
	// 不同 IP 独立计窗。
	if err := throttle.Reserve(ctx, "5.6.7.8", "carol"); err != nil {
		t.Fatalf("different ip should have its own window, got %v", err)
	}
}
