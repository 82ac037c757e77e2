// Package lock serializes work on a key, such as all transitions of one
// proposal.
package lock

import (
	"context"
	"errors"
	"time"
)

// Locker runs functions under a per-key lock.
type Locker interface {
	// WithLock waits for the lock on key, runs fn and releases the lock.
	// It returns ctx.Err() if the context ends while waiting.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Info contains metadata about a held lock.
type Info struct {
	Key        string    `json:"key"`
	HolderID   string    `json:"holder_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Common errors.
var (
	ErrLockNotHeld = errors.New("lock not held")
	ErrInvalidTTL  = errors.New("invalid TTL")
)
