// Package lock provides per-player locking for ledger status transitions.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a player's lock is not acquired in time.
var ErrLockTimeout = errors.New("player lock wait timed out")

// playerLock is a one-slot semaphore. refs counts holders and waiters so the
// entry can be dropped once nobody needs it.
type playerLock struct {
	sem  chan struct{}
	refs int
}

// UserLock serializes ledger writes that touch the same player. The database
// row lock is the source of truth; this keeps concurrent admin actions on one
// player from queueing on the connection pool.
//
// Entries exist only while a player's lock is held or awaited, so memory
// stays bounded by the number of players with in-flight writes.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*playerLock
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[int64]*playerLock)}
}

// acquireRef returns the player's lock with its reference count raised.
func (ul *UserLock) acquireRef(userID int64) *playerLock {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	l, ok := ul.locks[userID]
	if !ok {
		l = &playerLock{sem: make(chan struct{}, 1)}
		ul.locks[userID] = l
	}
	l.refs++
	return l
}

// releaseRef drops a reference and forgets the entry when it was the last.
func (ul *UserLock) releaseRef(userID int64, l *playerLock) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(ul.locks, userID)
	}
}

// Lock acquires the lock for a player.
func (ul *UserLock) Lock(userID int64) {
	l := ul.acquireRef(userID)
	l.sem <- struct{}{}
}

// Unlock releases the lock for a player. Unlocking a player that is not
// locked is a no-op.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	l, ok := ul.locks[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-l.sem:
		ul.releaseRef(userID, l)
	default:
	}
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(userID int64) bool {
	l := ul.acquireRef(userID)
	select {
	case l.sem <- struct{}{}:
		return true
	default:
		ul.releaseRef(userID, l)
		return false
	}
}

// LockWithTimeout waits up to timeout, or until ctx is done, for the lock.
// Returns false when the lock was not acquired.
func (ul *UserLock) LockWithTimeout(ctx context.Context, userID int64, timeout time.Duration) bool {
	l := ul.acquireRef(userID)

	// Uncontended fast path.
	select {
	case l.sem <- struct{}{}:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l.sem <- struct{}{}:
		return true
	case <-timer.C:
	case <-ctx.Done():
	}

	ul.releaseRef(userID, l)
	return false
}

// WithLock executes fn while holding the player's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockContext executes fn while holding the player's lock. It returns
// ErrLockTimeout when the lock is not acquired in time, or the context error
// when ctx ends while waiting.
func (ul *UserLock) WithLockContext(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	if !ul.LockWithTimeout(ctx, userID, timeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLockTimeout
	}
	defer ul.Unlock(userID)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// IsLocked reports whether a player's lock is currently held.
// The answer may be stale by the time the caller uses it.
func (ul *UserLock) IsLocked(userID int64) bool {
	ul.mu.Lock()
	l, ok := ul.locks[userID]
	ul.mu.Unlock()

	return ok && len(l.sem) == 1
}

// Len returns the number of players with a held or awaited lock.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}
