// Package lock serializes read-validate-write sequences on a key, one
// vaccine at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLockTimeout is returned when a lock could not be acquired within the
// locker's wait budget.
var ErrLockTimeout = errors.New("lock wait timed out")

// ReleaseFunc gives the lock back. It is safe to call more than once.
type ReleaseFunc func(ctx context.Context) error

// Locker grants exclusive ownership of a key until the returned release is
// called. Acquire blocks until the key is free, the wait budget is spent
// (ErrLockTimeout) or ctx is done (ctx.Err()).
type Locker interface {
	Acquire(ctx context.Context, key string) (ReleaseFunc, error)
}

// waitContext bounds ctx by wait when wait is positive.
func waitContext(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// acquireErr maps the expiry of the wait context to ErrLockTimeout and
// passes through cancellation of the caller's own context.
func acquireErr(parent context.Context, key string) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrLockTimeout, key)
}
