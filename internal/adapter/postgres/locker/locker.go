package locker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	portlocker "github.com/alanyang/projects-sync/internal/port/locker"
)

var _ portlocker.AdvisoryLocker = (*Locker)(nil)

// Locker implements port/locker.AdvisoryLocker with Postgres session advisory
// locks, so two processes sharing a database never sync the same repository
// at once. Lock and unlock run on the same acquired connection: the lock is
// session-level and an unlock from another session is a no-op.
type Locker struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Locker {
	return &Locker{pool: pool}
}

func (l *Locker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection for advisory lock: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	// Unlock with a fresh context so a cancelled ctx still releases the lock.
	defer func() {
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", key); err != nil {
			slog.Error("release advisory lock", "key", key, "error", err)
		}
	}()

	return fn(ctx)
}
