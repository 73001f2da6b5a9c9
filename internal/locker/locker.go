// Package locker provides the named distributed lease that gates the periodic sweeps across
// process replicas.
package locker

import (
	"context"
	"time"
)

// Lease is a held named lock. AtMostFor is the hard expiry after which another replica may
// take the name over regardless of holder liveness; AtLeastFor is the floor before the name
// can be re-acquired after release, so a fast-completing job does not let the next tick
// double-dip on another replica.
type Lease struct {
	Name       string
	HolderID   string
	AcquiredAt time.Time
	AtMostFor  time.Duration
	AtLeastFor time.Duration
}

type Locker interface {
	// Acquire attempts to take the named lease without blocking. It returns (nil, nil) when
	// the lease is currently held elsewhere.
	Acquire(ctx context.Context, name string, atMostFor, atLeastFor time.Duration) (*Lease, error)
	// Release ends the holder's critical section. The store keeps the name unavailable until
	// the at-least-for floor has elapsed from acquisition.
	Release(ctx context.Context, lease *Lease) error
}
