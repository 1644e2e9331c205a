package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testLocker(t *testing.T) Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisScheduleLocker(client, 2*time.Second)
}

func TestWithScheduleLockRunsCritical(t *testing.T) {
	locker := testLocker(t)
	scheduleID := uuid.New()

	ran := false
	err := locker.WithScheduleLock(context.Background(), scheduleID, func(ctx context.Context) error {
		ran = true

		// Re-entry on the same schedule must be refused while held.
		nested := locker.WithScheduleLock(ctx, scheduleID, func(context.Context) error { return nil })
		if !errors.Is(nested, ErrLockNotAcquired) {
			t.Fatalf("nested acquisition: want ErrLockNotAcquired, got %v", nested)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with lock: %v", err)
	}
	if !ran {
		t.Fatal("critical section did not run")
	}

	// The lock is released on return.
	err = locker.WithScheduleLock(context.Background(), scheduleID, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
}

func TestWithScheduleLockIndependentKeys(t *testing.T) {
	locker := testLocker(t)

	err := locker.WithScheduleLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		// A different schedule is lockable concurrently.
		return locker.WithScheduleLock(ctx, uuid.New(), func(context.Context) error { return nil })
	})
	if err != nil {
		t.Fatalf("independent locks: %v", err)
	}
}

func TestWithScheduleLockPropagatesError(t *testing.T) {
	locker := testLocker(t)
	scheduleID := uuid.New()

	boom := errors.New("delete failed")
	err := locker.WithScheduleLock(context.Background(), scheduleID, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped fn error, got %v", err)
	}

	// A failed critical section still releases the lock.
	err = locker.WithScheduleLock(context.Background(), scheduleID, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("re-acquire after failure: %v", err)
	}
}
