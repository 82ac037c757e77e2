package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryLock_AcquireRelease(t *testing.T) {
	t.Parallel()

	l := NewMemoryLock()

	ok, err := l.Acquire("p-1", "a", time.Second)
	if err != nil || !ok {
		t.Fatalf("Acquire() = %v, %v, want true", ok, err)
	}
	if ok, _ := l.Acquire("p-1", "b", time.Second); ok {
		t.Error("second holder acquired a held lock")
	}
	if ok, _ := l.Acquire("p-2", "b", time.Second); !ok {
		t.Error("other keys should be independent")
	}

	if err := l.Release("p-1", "b"); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("Release() by non-holder error = %v, want ErrLockNotHeld", err)
	}
	if err := l.Release("p-1", "a"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if ok, _ := l.Acquire("p-1", "b", time.Second); !ok {
		t.Error("released lock should be acquirable")
	}
}

func TestMemoryLock_InvalidTTL(t *testing.T) {
	t.Parallel()

	if _, err := NewMemoryLock().Acquire("p-1", "a", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("Acquire() error = %v, want ErrInvalidTTL", err)
	}
}

func TestMemoryLock_ExpiredLockIsTakenOver(t *testing.T) {
	t.Parallel()

	l := NewMemoryLock()
	_, _ = l.Acquire("p-1", "a", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if ok, _ := l.Acquire("p-1", "b", time.Second); !ok {
		t.Error("expired lock should be taken over")
	}
	info, ok := l.Info("p-1")
	if !ok || info.HolderID != "b" {
		t.Errorf("Info() = %+v, want holder b", info)
	}
}

func TestMemoryLock_WithLockSerializes(t *testing.T) {
	t.Parallel()

	l := NewMemoryLock(WithRetryInterval(time.Millisecond))

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "p-1", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Errorf("WithLock() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside)
	}
	if _, held := l.Info("p-1"); held {
		t.Error("lock should be released after WithLock")
	}
}

func TestMemoryLock_WithLockHonorsContext(t *testing.T) {
	t.Parallel()

	l := NewMemoryLock()
	_, _ = l.Acquire("p-1", "blocker", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.WithLock(ctx, "p-1", func(context.Context) error {
		t.Error("fn ran without the lock")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WithLock() error = %v, want DeadlineExceeded", err)
	}
}

func TestMemoryLock_WithLockReturnsFnError(t *testing.T) {
	t.Parallel()

	l := NewMemoryLock()
	want := errors.New("store offline")
	if err := l.WithLock(context.Background(), "p-1", func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("WithLock() error = %v, want %v", err, want)
	}
	if _, held := l.Info("p-1"); held {
		t.Error("lock should be released after fn error")
	}
}

func TestMemoryLock_Cleanup(t *testing.T) {
	t.Parallel()

	l := NewMemoryLock()
	_, _ = l.Acquire("old", "a", time.Millisecond)
	_, _ = l.Acquire("live", "a", time.Minute)
	time.Sleep(5 * time.Millisecond)

	if n := l.Cleanup(); n != 1 {
		t.Errorf("Cleanup() = %d, want 1", n)
	}
}

func TestMemoryLock_WithLockHoldsUntilFnReturns(t *testing.T) {
	t.Parallel()

	l := NewMemoryLock()
	err := l.WithLock(context.Background(), "p-1", func(context.Context) error {
		time.Sleep(5 * time.Millisecond)

		info, held := l.Info("p-1")
		if !held {
			t.Fatal("lock should be held inside fn")
		}
		if !info.ExpiresAt.IsZero() {
			t.Errorf("ExpiresAt = %v, want no expiry", info.ExpiresAt)
		}
		if n := l.Cleanup(); n != 0 {
			t.Errorf("Cleanup() = %d, want 0 while fn runs", n)
		}
		if ok, _ := l.Acquire("p-1", "intruder", time.Second); ok {
			t.Error("Acquire() took a lock held by WithLock")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}
	if _, held := l.Info("p-1"); held {
		t.Error("lock should be released after WithLock")
	}
}
