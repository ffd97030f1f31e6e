package memory

import (
	"context"
	"sync"

	"github.com/alanyang/projects-sync/internal/domain/event"
	porteventbus "github.com/alanyang/projects-sync/internal/port/eventbus"
)

var _ porteventbus.EventBus = (*EventBus)(nil)

// EventBus fans events out to subscribers in the same process. Each
// subscription has its own buffered queue and goroutine so a slow handler
// never blocks Publish; when the queue is full the event is dropped for that
// subscriber.
type EventBus struct {
	mu   sync.RWMutex
	subs map[event.Channel]map[*subscription]struct{}
}

const subscriptionBuffer = 64

func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[event.Channel]map[*subscription]struct{}),
	}
}

func (eb *EventBus) Publish(_ context.Context, e event.Event) error {
	ch := event.ChannelFor(e.Type)

	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for sub := range eb.subs[ch] {
		select {
		case sub.queue <- e:
		default:
		}
	}
	return nil
}

func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		queue:  make(chan event.Event, subscriptionBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	eb.mu.Lock()
	if eb.subs[ch] == nil {
		eb.subs[ch] = make(map[*subscription]struct{})
	}
	eb.subs[ch][sub] = struct{}{}
	eb.mu.Unlock()

	go func() {
		defer func() {
			eb.mu.Lock()
			delete(eb.subs[ch], sub)
			eb.mu.Unlock()
			close(sub.done)
		}()

		for {
			select {
			case <-subCtx.Done():
				return
			case e := <-sub.queue:
				handler(subCtx, e)
			}
		}
	}()

	return sub, nil
}

type subscription struct {
	queue  chan event.Event
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}
