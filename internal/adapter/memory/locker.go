package memory

import (
	"context"
	"sync"

	portlocker "github.com/alanyang/projects-sync/internal/port/locker"
)

var _ portlocker.AdvisoryLocker = (*Locker)(nil)

// keyLock is a one-slot semaphore plus the number of callers holding or
// waiting for it. The entry is dropped when that count reaches zero.
type keyLock struct {
	sem  chan struct{}
	refs int
}

// Locker serializes work per key inside one process. Waiting for the lock
// honours ctx; fn itself runs to completion once started.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*keyLock)}
}

func (l *Locker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	kl := l.acquire(key)
	defer l.release(key, kl)

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-kl.sem }()

	return fn(ctx)
}

// Keys reports how many keys are currently held or waited on.
func (l *Locker) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) acquire(key int64) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *Locker) release(key int64, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
