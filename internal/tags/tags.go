// Package tags keeps the tag frequency table behind suggestions and the
// popular-tags list.
package tags

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"expensekeeper/internal/storage"
)

const (
	DefaultSuggestionLimit = 5
	DefaultPopularLimit    = 10
	minPrefixLength        = 2
)

// Normalize is the key under which a tag is counted: trimmed and lower-cased.
func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

type Manager struct {
	store storage.TagStore
}

func NewManager(store storage.TagStore) *Manager {
	return &Manager{store: store}
}

// Record counts one use of each distinct normalized tag. Empty tags are ignored.
func (m *Manager) Record(ctx context.Context, tags []string) error {
	seen := make(map[string]struct{}, len(tags))
	var keys []string
	for _, t := range tags {
		k := Normalize(t)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := m.store.IncrementTags(ctx, keys); err != nil {
		return fmt.Errorf("record tags: %w", err)
	}
	slog.DebugContext(ctx, "Tags recorded", "tags", keys)
	return nil
}

func (m *Manager) Remove(ctx context.Context, tag string) error {
	k := Normalize(tag)
	if k == "" {
		return nil
	}
	return m.store.RemoveTag(ctx, k)
}

// Suggestions returns up to limit known tags starting with prefix, most used
// first. Prefixes shorter than two characters yield nothing.
func (m *Manager) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	p := Normalize(prefix)
	if utf8.RuneCountInString(p) < minPrefixLength {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	counts, err := m.store.TagCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, c := range counts {
		if strings.HasPrefix(c.Tag, p) {
			out = append(out, c.Tag)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Popular returns the limit most used tags.
func (m *Manager) Popular(ctx context.Context, limit int) ([]storage.TagCount, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	counts, err := m.store.TagCounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}
