package locker

import "context"

// AdvisoryLocker serialises sync runs per repository. WithLock holds the lock
// for the whole of fn and releases it on return, even when ctx is cancelled.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}
