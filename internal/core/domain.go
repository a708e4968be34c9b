package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Display categories offered by clients. The store accepts any non-empty string.
const (
	CategoryFood          = "Food"
	CategoryTravel        = "Travel"
	CategoryShopping      = "Shopping"
	CategoryEntertainment = "Entertainment"
	CategoryBills         = "Bills"
	CategoryHealth        = "Health"
	CategoryEducation     = "Education"
	CategoryOther         = "Other"
)

// DefaultCategories lists the display set in presentation order.
var DefaultCategories = []string{
	CategoryFood,
	CategoryTravel,
	CategoryShopping,
	CategoryEntertainment,
	CategoryBills,
	CategoryHealth,
	CategoryEducation,
	CategoryOther,
}

type (
	Expense struct {
		ID         int64 // 0 until the store assigns one
		VendorName string
		ItemBought string
		Amount     decimal.Decimal
		Date       time.Time
		Category   string
		Recurrence Recurrence
		Notes      string
		Tags       []string
	}
)

var (
	ErrEmptyVendor       = errors.New("empty vendor name")
	ErrEmptyItem         = errors.New("empty item")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrTooLong           = errors.New("text too long")
)

const maxTextLength = 200

func (e Expense) Validate() error {
	if strings.TrimSpace(e.VendorName) == "" {
		return ErrEmptyVendor
	}
	if len(e.VendorName) > maxTextLength {
		return fmt.Errorf("%w: vendor name (max %d characters)", ErrTooLong, maxTextLength)
	}
	if strings.TrimSpace(e.ItemBought) == "" {
		return ErrEmptyItem
	}
	if len(e.ItemBought) > maxTextLength {
		return fmt.Errorf("%w: item (max %d characters)", ErrTooLong, maxTextLength)
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Recurrence.Validate(); err != nil {
		return err
	}
	return nil
}

// IsRecurring reports whether the expense spawns copies.
func (e Expense) IsRecurring() bool {
	return e.Recurrence.IsRecurring()
}

// HasTag reports whether the expense carries tag exactly as stored.
func (e Expense) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy; Tags is not shared with the receiver.
func (e Expense) Clone() Expense {
	out := e
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	return out
}

// Materialize returns a fresh, unsaved copy of a recurring expense dated at.
// The recurrence travels with the copy, so copies are recurring too.
func (e Expense) Materialize(at time.Time) Expense {
	out := e.Clone()
	out.ID = 0
	out.Date = at
	return out
}

// NormalizeTags trims tags, drops empties and removes case-insensitive
// duplicates while keeping the first spelling and the entry order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
