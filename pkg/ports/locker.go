package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates access to a session across replicas.
type DistributedLocker interface {
	// Lock blocks until the lock for key is acquired or ctx is canceled.
	// The lock is held until the returned UnlockFunc is called; ttl only bounds how
	// long it survives a holder that died without unlocking.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
