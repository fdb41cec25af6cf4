// Package lock serializes work on a single document identity.
//
// The engine already routes events that share a routing key onto one lane,
// so a Locker only matters when several engine processes share a database.
// Local is the in-process default; Redis holds a lease that expires on its
// own if the holder dies.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when a lock could not be obtained before the
// context was done.
var ErrNotAcquired = errors.New("lock not acquired")

// Release gives the lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker grants exclusive ownership of a key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}
