package preferences

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensekeeper/internal/storage/memory"
)

func TestGetReturnsDefaults(t *testing.T) {
	svc := NewService(memory.New())
	p, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)
	assert.True(t, p.RemindersEnabled)
	assert.Equal(t, ThemeSystem, p.Theme)
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New())

	saved, err := svc.Save(ctx, Preferences{
		Name:             " Ada ",
		Email:            "ada@example.com",
		Currency:         "eur",
		Theme:            "Dark",
		RemindersEnabled: false,
		BiometricLock:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "EUR", saved.Currency)
	assert.Equal(t, ThemeDark, saved.Theme)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	on, err := svc.RemindersEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestSaveRejects(t *testing.T) {
	tests := []struct {
		name string
		p    Preferences
		want error
	}{
		{"unknown theme", Preferences{Currency: "USD", Theme: "neon"}, ErrInvalidTheme},
		{"unknown currency", Preferences{Currency: "XYZ", Theme: ThemeLight}, ErrInvalidCurrency},
		{"bad email", Preferences{Currency: "USD", Theme: ThemeLight, Email: "nope"}, ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(memory.New()).Save(context.Background(), tt.p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetIgnoresGarbage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SetSetting(ctx, keyTheme, "purple"))
	require.NoError(t, store.SetSetting(ctx, keyReminders, "maybe"))

	p, err := NewService(store).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeSystem, p.Theme)
	assert.True(t, p.RemindersEnabled)
}

func TestCurrencyLabel(t *testing.T) {
	c, ok := LookupCurrency("inr")
	require.True(t, ok)
	assert.Equal(t, "INR (₹)", c.Label())
}
