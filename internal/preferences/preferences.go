// Package preferences keeps the user's profile and app settings in the
// settings table.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"

	"expensekeeper/internal/storage"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Currency is a selectable display currency. Amounts are never converted.
type Currency struct {
	Code   string
	Symbol string
}

func (c Currency) Label() string { return fmt.Sprintf("%s (%s)", c.Code, c.Symbol) }

var Currencies = []Currency{
	{"USD", "$"}, {"EUR", "€"}, {"GBP", "£"}, {"JPY", "¥"}, {"INR", "₹"},
	{"AUD", "$"}, {"CAD", "$"}, {"CHF", "Fr"}, {"CNY", "¥"}, {"HKD", "$"},
	{"NZD", "$"}, {"SEK", "kr"}, {"KRW", "₩"}, {"SGD", "$"}, {"NOK", "kr"},
	{"MXN", "$"}, {"RUB", "₽"}, {"ZAR", "R"}, {"TRY", "₺"}, {"BRL", "R$"},
}

// LookupCurrency finds a currency by code, case-insensitively.
func LookupCurrency(code string) (Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range Currencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

var (
	ErrInvalidTheme    = errors.New("invalid theme")
	ErrInvalidCurrency = errors.New("unsupported currency")
	ErrInvalidEmail    = errors.New("invalid email")
)

const (
	keyName      = "user_name"
	keyEmail     = "user_email"
	keyCurrency  = "currency"
	keyTheme     = "theme"
	keyReminders = "reminders_enabled"
	keyBiometric = "biometric_enabled"
)

type Preferences struct {
	Name             string
	Email            string
	Currency         string
	Theme            Theme
	RemindersEnabled bool
	// BiometricLock only records the choice; the gate lives in the client.
	BiometricLock bool
}

// Defaults applies to every key never written.
func Defaults() Preferences {
	return Preferences{
		Currency:         "USD",
		Theme:            ThemeSystem,
		RemindersEnabled: true,
	}
}

func (p Preferences) Validate() error {
	if _, err := ParseTheme(string(p.Theme)); err != nil {
		return err
	}
	if _, ok := LookupCurrency(p.Currency); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, p.Currency)
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	return nil
}

type Service struct {
	settings storage.SettingsStore
}

func NewService(settings storage.SettingsStore) *Service {
	return &Service{settings: settings}
}

// Get reads every preference, falling back to Defaults for missing or
// unreadable values.
func (s *Service) Get(ctx context.Context) (Preferences, error) {
	p := Defaults()

	str := func(key string, dst *string) error {
		v, ok, err := s.settings.GetSetting(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		if ok {
			*dst = v
		}
		return nil
	}
	flag := func(key string, dst *bool) error {
		var v string
		if err := str(key, &v); err != nil || v == "" {
			return err
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring invalid preference", "key", key, "value", v)
			return nil
		}
		*dst = b
		return nil
	}

	var theme string
	for _, err := range []error{
		str(keyName, &p.Name),
		str(keyEmail, &p.Email),
		str(keyCurrency, &p.Currency),
		str(keyTheme, &theme),
		flag(keyReminders, &p.RemindersEnabled),
		flag(keyBiometric, &p.BiometricLock),
	} {
		if err != nil {
			return Defaults(), err
		}
	}
	if theme != "" {
		if t, err := ParseTheme(theme); err == nil {
			p.Theme = t
		} else {
			slog.WarnContext(ctx, "Ignoring invalid preference", "key", keyTheme, "value", theme)
		}
	}
	return p, nil
}

// Save validates p and writes every field.
func (s *Service) Save(ctx context.Context, p Preferences) (Preferences, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	p.Theme = Theme(strings.ToLower(strings.TrimSpace(string(p.Theme))))
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}

	values := []struct{ key, value string }{
		{keyName, p.Name},
		{keyEmail, p.Email},
		{keyCurrency, p.Currency},
		{keyTheme, string(p.Theme)},
		{keyReminders, strconv.FormatBool(p.RemindersEnabled)},
		{keyBiometric, strconv.FormatBool(p.BiometricLock)},
	}
	for _, kv := range values {
		if err := s.settings.SetSetting(ctx, kv.key, kv.value); err != nil {
			return Preferences{}, fmt.Errorf("write %s: %w", kv.key, err)
		}
	}
	slog.InfoContext(ctx, "Preferences saved", "theme", p.Theme, "currency", p.Currency, "reminders", p.RemindersEnabled)
	return p, nil
}

// RemindersEnabled reports the daily reminder switch.
func (s *Service) RemindersEnabled(ctx context.Context) (bool, error) {
	p, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return p.RemindersEnabled, nil
}
