package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Customer is an entry of the lightweight contact list kept next to expenses.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrEmptyCustomerName = errors.New("empty customer name")
	ErrInvalidEmail      = errors.New("invalid email")
)

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCustomerName
	}
	if len(c.Name) > maxTextLength {
		return fmt.Errorf("%w: customer name (max %d characters)", ErrTooLong, maxTextLength)
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	return nil
}

// Matches reports whether query occurs in name, email or phone, ignoring case.
func (c Customer) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Email), q) ||
		strings.Contains(strings.ToLower(c.Phone), q)
}
