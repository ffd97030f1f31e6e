package idempotency

import "context"

// Store remembers the result of a request carrying an Idempotency-Key so a
// retried POST /api/sync replays the first answer instead of syncing again.
type Store interface {
	// Check returns the stored result and whether key was seen.
	Check(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key, opType string, result []byte) error
}
