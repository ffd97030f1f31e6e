package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/projects-sync/internal/domain/event"
	porteventbus "github.com/alanyang/projects-sync/internal/port/eventbus"
)

var _ porteventbus.EventBus = (*EventBus)(nil)

// notifyRetryDelay spaces out WaitForNotification calls after a connection
// error so a dead connection does not spin.
const notifyRetryDelay = time.Second

// EventBus carries sync events between processes that share a database, so a
// CLI run against DATABASE_URL shows up on a server's websocket stream.
type EventBus struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *EventBus {
	return &EventBus{pool: pool}
}

// Publish sends an event via Postgres NOTIFY on the channel for its type.
func (eb *EventBus) Publish(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	channel := channelName(event.ChannelFor(e.Type))
	if _, err := eb.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(payload)); err != nil {
		return fmt.Errorf("publishing event on channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe holds one pooled connection in LISTEN until the subscription is
// cancelled, invoking handler for every event on ch.
func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	conn, err := eb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for LISTEN: %w", err)
	}

	channel := channelName(ch)
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("executing LISTEN on channel %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer func() {
			if _, err := conn.Exec(context.Background(), "UNLISTEN "+channel); err != nil {
				slog.Warn("unlisten failed", "channel", channel, "error", err)
			}
			conn.Release()
			close(sub.done)
		}()

		for {
			notification, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				slog.Warn("waiting for notification", "channel", channel, "error", err)
				select {
				case <-subCtx.Done():
					return
				case <-time.After(notifyRetryDelay):
				}
				continue
			}

			var e event.Event
			if err := json.Unmarshal([]byte(notification.Payload), &e); err != nil {
				slog.Warn("dropping malformed event payload", "channel", channel, "error", err)
				continue
			}
			handler(subCtx, e)
		}
	}()

	return sub, nil
}

// channelName maps a domain channel to a Postgres channel identifier.
func channelName(ch event.Channel) string {
	return "projects_sync_" + string(ch)
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}
