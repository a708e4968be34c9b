package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"expensekeeper/internal/amqp"
	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
	"expensekeeper/internal/storage"
	"expensekeeper/internal/tags"
	"expensekeeper/internal/watch"
)

// Publisher sends change notifications to other processes.
type Publisher interface {
	Publish(ctx context.Context, msg *amqp.Message) error
}

const sourceAPI = "api"

// ExpenseService is the write path for expenses: it validates, persists,
// tracks tag usage and announces changes to live subscribers and, when
// configured, to the message queue.
type ExpenseService struct {
	store     storage.ExpenseStore
	tags      *tags.Manager
	broker    *watch.Broker
	publisher Publisher
}

// NewExpenseService wires the service. publisher may be nil; a nil broker
// gets a private one.
func NewExpenseService(store storage.ExpenseStore, tagManager *tags.Manager, broker *watch.Broker, publisher Publisher) *ExpenseService {
	if broker == nil {
		broker = watch.NewBroker()
	}
	return &ExpenseService{
		store:     store,
		tags:      tagManager,
		broker:    broker,
		publisher: publisher,
	}
}

// Save creates e when its id is zero and updates it otherwise. Tags are
// trimmed and deduplicated before anything is stored.
func (s *ExpenseService) Save(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.VendorName = strings.TrimSpace(e.VendorName)
	e.ItemBought = strings.TrimSpace(e.ItemBought)
	e.Category = strings.TrimSpace(e.Category)
	e.Tags = core.NormalizeTags(e.Tags)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	msgType := amqp.TypeExpenseUpdated
	if e.ID == 0 {
		saved, err := s.store.Insert(ctx, e)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to insert expense", "vendor", e.VendorName, "error", err)
			return core.Expense{}, fmt.Errorf("save expense: %w", err)
		}
		e = saved
		msgType = amqp.TypeExpenseCreated
	} else if err := s.store.Update(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to update expense", "id", e.ID, "error", err)
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	if s.tags != nil && len(e.Tags) > 0 {
		if err := s.tags.Record(ctx, e.Tags); err != nil {
			// The expense is stored; suggestions are best effort.
			slog.WarnContext(ctx, "Failed to record tag usage", "id", e.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"vendor", e.VendorName,
		"amount", core.FormatAmount(e.Amount),
		"category", e.Category,
		"recurrence", e.Recurrence.String())

	s.changed(ctx, msgType, e.ID, sourceAPI)
	return e, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	return s.store.FindByID(ctx, id)
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.ErrorContext(ctx, "Failed to delete expense", "id", id, "error", err)
		}
		return err
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	s.changed(ctx, amqp.TypeExpenseDeleted, id, sourceAPI)
	return nil
}

func (s *ExpenseService) DeleteAll(ctx context.Context) error {
	if err := s.store.DeleteAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to clear expenses", "error", err)
		return err
	}
	s.changed(ctx, amqp.TypeExpensesCleared, 0, sourceAPI)
	return nil
}

func (s *ExpenseService) ListRange(ctx context.Context, r period.Range) ([]core.Expense, error) {
	return s.store.ListByDateRange(ctx, r.Start, r.End)
}

func (s *ExpenseService) ListByCategory(ctx context.Context, category string) ([]core.Expense, error) {
	return s.store.ListByCategory(ctx, category)
}

func (s *ExpenseService) ListAll(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListAll(ctx)
}

func (s *ExpenseService) Recurring(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListRecurring(ctx)
}

// Search returns every expense when text is blank.
func (s *ExpenseService) Search(ctx context.Context, text string) ([]core.Expense, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.store.ListAll(ctx)
	}
	return s.store.Search(ctx, text)
}

// Categories merges the display set with every category already in use.
func (s *ExpenseService) Categories(ctx context.Context) ([]string, error) {
	used, err := s.store.DistinctCategories(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(core.DefaultCategories)+len(used))
	out := make([]string, 0, len(core.DefaultCategories)+len(used))
	for _, c := range core.DefaultCategories {
		seen[c] = struct{}{}
		out = append(out, c)
	}
	var extra []string
	for _, c := range used {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...), nil
}

// WatchRange emits the expenses within r now and after every change.
func (s *ExpenseService) WatchRange(ctx context.Context, r period.Range) *watch.Subscription[[]core.Expense] {
	return watch.Subscribe(ctx, s.broker, func(ctx context.Context) ([]core.Expense, error) {
		return s.ListRange(ctx, r)
	})
}

func (s *ExpenseService) WatchSearch(ctx context.Context, text string) *watch.Subscription[[]core.Expense] {
	return watch.Subscribe(ctx, s.broker, func(ctx context.Context) ([]core.Expense, error) {
		return s.Search(ctx, text)
	})
}

func (s *ExpenseService) WatchCategories(ctx context.Context) *watch.Subscription[[]string] {
	return watch.Subscribe(ctx, s.broker, s.Categories)
}

// Broker exposes the change broker so other read models can subscribe.
func (s *ExpenseService) Broker() *watch.Broker { return s.broker }

// HandleMessage reacts to changes made by other processes, such as the
// recurring worker, by waking local subscribers.
func (s *ExpenseService) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	if msg.IsExpenseChange() && msg.Source != sourceAPI {
		slog.DebugContext(ctx, "External expense change", "type", msg.Type, "id", msg.ExpenseID, "source", msg.Source)
		s.broker.Publish()
	}
	return nil
}

func (s *ExpenseService) changed(ctx context.Context, t amqp.MessageType, id int64, source string) {
	s.broker.Publish()
	publishChange(ctx, s.publisher, t, id, source)
}

func publishChange(ctx context.Context, p Publisher, t amqp.MessageType, id int64, source string) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, amqp.NewExpenseMessage(t, id, source)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense change", "type", t, "id", id, "error", err)
	}
}
