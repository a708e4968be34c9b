// Package customers manages the contact list kept next to expenses.
package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensekeeper/internal/core"
	"expensekeeper/internal/storage"
)

type Service struct {
	store storage.CustomerStore
	now   func() time.Time
}

func NewService(store storage.CustomerStore) *Service {
	return &Service{store: store, now: time.Now}
}

func trim(c core.Customer) core.Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Notes = strings.TrimSpace(c.Notes)
	return c
}

func (s *Service) Add(ctx context.Context, c core.Customer) (core.Customer, error) {
	c = trim(c)
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	now := s.now().UTC()
	c.ID = 0
	c.CreatedAt = now
	c.UpdatedAt = now

	saved, err := s.store.InsertCustomer(ctx, c)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to insert customer", "name", c.Name, "error", err)
		return core.Customer{}, fmt.Errorf("add customer: %w", err)
	}
	slog.InfoContext(ctx, "Customer added", "id", saved.ID, "name", saved.Name)
	return saved, nil
}

// Update replaces the editable fields of an existing customer and keeps its
// creation time.
func (s *Service) Update(ctx context.Context, c core.Customer) (core.Customer, error) {
	c = trim(c)
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	existing, err := s.store.FindCustomer(ctx, c.ID)
	if err != nil {
		return core.Customer{}, err
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateCustomer(ctx, c); err != nil {
		slog.ErrorContext(ctx, "Failed to update customer", "id", c.ID, "error", err)
		return core.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Customer deleted", "id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (core.Customer, error) {
	return s.store.FindCustomer(ctx, id)
}

// Search returns customers whose name, email or phone contains query; a blank
// query lists everyone. Results keep the store's name order.
func (s *Service) Search(ctx context.Context, query string) ([]core.Customer, error) {
	all, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return all, nil
	}
	out := all[:0:0]
	for _, c := range all {
		if c.Matches(query) {
			out = append(out, c)
		}
	}
	return out, nil
}
