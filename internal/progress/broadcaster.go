package progress

import (
	"sync"

	"go.uber.org/zap"
)

// Subscriber receives status events. A Notify error marks the subscriber
// dead; the broadcaster drops it and never retries the delivery.
type Subscriber interface {
	Notify(event Event) error
}

// Broadcaster fans events out to all registered subscribers. It is safe for
// concurrent use. There is no cross-subscriber ordering guarantee and no
// buffering: delivery happens on the publisher's goroutine.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Subscriber
	logger *zap.Logger
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		subs:   make(map[int]Subscriber),
		logger: logger.Named("broadcast"),
	}
}

// Register adds sub and returns a function that removes it again.
func (b *Broadcaster) Register(sub Subscriber) (unregister func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers event to every registered subscriber. A subscriber whose
// Notify returns an error is unregistered; the remaining subscribers still
// receive the event.
func (b *Broadcaster) Publish(event Event) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.subs))
	subs := make([]Subscriber, 0, len(b.subs))
	for id, sub := range b.subs {
		ids = append(ids, id)
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for i, sub := range subs {
		if err := sub.Notify(event); err != nil {
			b.logger.Warn("subscriber delivery failed, unregistering",
				zap.String("event_type", event.Type), zap.Error(err))
			b.mu.Lock()
			delete(b.subs, ids[i])
			b.mu.Unlock()
		}
	}
}
