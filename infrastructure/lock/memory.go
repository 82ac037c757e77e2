package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lockEntry struct {
	holderID   string
	acquiredAt time.Time
	expiresAt  time.Time // zero means held until released
}

func (e *lockEntry) liveAt(now time.Time) bool {
	return e.expiresAt.IsZero() || e.expiresAt.After(now)
}

// MemoryLock is an in-process Locker. Every WithLock call holds the lock
// under its own token until fn returns, so two calls on the same key never
// overlap however long fn runs. Acquire callers hold it for a TTL.
type MemoryLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	retryInterval time.Duration
}

// Option configures a MemoryLock.
type Option func(*MemoryLock)

// WithRetryInterval sets the pause between acquisition attempts.
func WithRetryInterval(interval time.Duration) Option {
	return func(l *MemoryLock) {
		if interval > 0 {
			l.retryInterval = interval
		}
	}
}

// NewMemoryLock creates an in-process lock.
func NewMemoryLock(opts ...Option) *MemoryLock {
	l := &MemoryLock{
		locks:         make(map[string]*lockEntry),
		retryInterval: 5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ Locker = (*MemoryLock)(nil)

// Acquire takes the lock on key for holderID. It returns false if another
// holder has an unexpired lock.
func (l *MemoryLock) Acquire(key, holderID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}
	return l.acquire(key, holderID, ttl), nil
}

// acquire takes the lock for ttl, or until released when ttl is zero.
func (l *MemoryLock) acquire(key, holderID string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if entry, exists := l.locks[key]; exists {
		if entry.liveAt(now) && entry.holderID != holderID {
			return false
		}
	}

	entry := &lockEntry{holderID: holderID, acquiredAt: now}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	l.locks[key] = entry
	return true
}

// Release drops the lock on key if holderID holds it.
func (l *MemoryLock) Release(key, holderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists || entry.holderID != holderID {
		return ErrLockNotHeld
	}

	delete(l.locks, key)
	return nil
}

// WithLock implements Locker.
func (l *MemoryLock) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	for !l.acquire(key, token, 0) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
	defer func() { _ = l.Release(key, token) }()

	return fn(ctx)
}

// Info returns information about a lock.
func (l *MemoryLock) Info(key string) (*Info, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		return nil, false
	}

	return &Info{
		Key:        key,
		HolderID:   entry.holderID,
		AcquiredAt: entry.acquiredAt,
		ExpiresAt:  entry.expiresAt,
	}, true
}

// Cleanup removes expired locks and returns how many were removed.
func (l *MemoryLock) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range l.locks {
		if !entry.liveAt(now) {
			delete(l.locks, key)
			removed++
		}
	}
	return removed
}
