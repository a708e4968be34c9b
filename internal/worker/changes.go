package worker

import (
	"context"
	"log/slog"
	"sync"

	"expensekeeper/internal/storage"
	"expensekeeper/internal/watch"
)

// ChangeWatcher wakes local subscribers when another process writes to the
// shared database, as the recurring worker does through its own connection.
type ChangeWatcher struct {
	feed   storage.ChangeFeed
	broker *watch.Broker

	mu   sync.Mutex
	last int64
	seen bool
}

func NewChangeWatcher(feed storage.ChangeFeed, broker *watch.Broker) *ChangeWatcher {
	return &ChangeWatcher{feed: feed, broker: broker}
}

// Poll publishes on the broker when the data version moved since the last
// poll. The first poll only records the baseline.
func (w *ChangeWatcher) Poll(ctx context.Context) error {
	v, err := w.feed.DataVersion(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	changed := w.seen && v != w.last
	w.last, w.seen = v, true
	w.mu.Unlock()

	if changed {
		slog.DebugContext(ctx, "Database changed by another process", "data_version", v)
		w.broker.Publish()
	}
	return nil
}
