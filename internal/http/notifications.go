package http

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"expensekeeper/internal/amqp"
)

// Notification is a reminder pushed to stream clients.
type Notification struct {
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

// Notifications fans reminders out to connected stream clients. Delivery is
// best effort: a client that is not reading misses the notification.
type Notifications struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Notification
	now  func() time.Time
}

func NewNotifications() *Notifications {
	return &Notifications{subs: make(map[int]chan Notification), now: time.Now}
}

// Subscribe registers a listener; call the returned func to unregister.
func (n *Notifications) Subscribe() (<-chan Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan Notification, 4)
	n.subs[id] = ch
	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(c)
		}
	}
}

// Broadcast returns how many listeners received note.
func (n *Notifications) Broadcast(note Notification) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	delivered := 0
	for _, ch := range n.subs {
		select {
		case ch <- note:
			delivered++
		default:
		}
	}
	return delivered
}

// Notify lets the hub act as a reminder notifier inside the server process.
func (n *Notifications) Notify(ctx context.Context, title, body string) error {
	delivered := n.Broadcast(Notification{Title: title, Body: body, At: n.now()})
	slog.DebugContext(ctx, "Reminder broadcast", "listeners", delivered)
	return nil
}

// HandleMessage forwards reminder messages from the queue.
func (n *Notifications) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	if msg.Type != amqp.TypeReminder {
		return nil
	}
	delivered := n.Broadcast(Notification{Title: msg.Title, Body: msg.Body, At: msg.Timestamp})
	slog.InfoContext(ctx, "Reminder forwarded to stream clients", "listeners", delivered)
	return nil
}
