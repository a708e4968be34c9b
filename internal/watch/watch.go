// Package watch turns one-shot store queries into live subscriptions. A
// Broker is bumped after every committed mutation; each subscription re-runs
// its query and emits the fresh snapshot.
package watch

import (
	"context"
	"log/slog"
	"sync"
)

// Broker tracks a data version and wakes subscribers when it changes.
type Broker struct {
	mu      sync.Mutex
	version uint64
	nextID  int
	subs    map[int]chan struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan struct{})}
}

// Version returns the number of changes published so far.
func (b *Broker) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Publish records a change and wakes every subscriber. Wake-ups coalesce:
// a subscriber that has not consumed the previous one gets only one.
func (b *Broker) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.version++
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *Broker) register() (int, <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ch := make(chan struct{}, 1)
	b.subs[b.nextID] = ch
	return b.nextID, ch
}

func (b *Broker) unregister(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Query loads one snapshot.
type Query[T any] func(ctx context.Context) (T, error)

// Subscription delivers snapshots in order until cancelled.
type Subscription[T any] struct {
	updates chan T
	cancel  context.CancelFunc
	done    chan struct{}
}

// Updates emits the initial snapshot and one snapshot per observed change.
// It is closed when the subscription ends.
func (s *Subscription[T]) Updates() <-chan T { return s.updates }

// Cancel ends the subscription and waits for its goroutine to exit.
func (s *Subscription[T]) Cancel() {
	s.cancel()
	<-s.done
}

// Subscribe starts a subscription that runs query immediately and again after
// every Publish. Query errors are logged and the previous snapshot stands.
func Subscribe[T any](ctx context.Context, b *Broker, query Query[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	id, wake := b.register()
	s := &Subscription[T]{
		updates: make(chan T),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)
		defer b.unregister(id)

		for {
			snap, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.WarnContext(ctx, "Subscription query failed", "error", err)
			} else {
				select {
				case s.updates <- snap:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}()

	return s
}
