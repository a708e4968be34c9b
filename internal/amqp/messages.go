package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	TypeExpenseCreated  MessageType = "expense.created"
	TypeExpenseUpdated  MessageType = "expense.updated"
	TypeExpenseDeleted  MessageType = "expense.deleted"
	TypeExpensesCleared MessageType = "expense.cleared"
	TypeReminder        MessageType = "reminder.daily"
)

// Message is the single envelope carried on the queue. Expense messages only
// reference the row; consumers read the store for details.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	ExpenseID int64       `json:"expense_id,omitempty"`
	Source    string      `json:"source,omitempty"`
	Title     string      `json:"title,omitempty"`
	Body      string      `json:"body,omitempty"`
}

// NewExpenseMessage describes a change to one expense, or to all of them for
// TypeExpensesCleared. Source names the producer, e.g. "api" or "recurring".
func NewExpenseMessage(t MessageType, expenseID int64, source string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now(),
		ExpenseID: expenseID,
		Source:    source,
	}
}

func NewReminderMessage(title, body string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      TypeReminder,
		Timestamp: time.Now(),
		Title:     title,
		Body:      body,
	}
}

// IsExpenseChange reports whether the message signals changed expense data.
func (m *Message) IsExpenseChange() bool {
	switch m.Type {
	case TypeExpenseCreated, TypeExpenseUpdated, TypeExpenseDeleted, TypeExpensesCleared:
		return true
	default:
		return false
	}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
