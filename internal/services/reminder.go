package services

import (
	"context"
	"fmt"
	"log/slog"

	"expensekeeper/internal/amqp"
)

const (
	ReminderTitle = "Daily Expense Reminder"
	ReminderBody  = "Don't forget to log your expenses for today!"
)

// Notifier delivers a reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// ReminderSwitch reports whether reminders are enabled.
type ReminderSwitch interface {
	RemindersEnabled(ctx context.Context) (bool, error)
}

// QueueNotifier publishes reminders on the message queue for the server to
// forward to connected clients.
type QueueNotifier struct {
	publisher Publisher
}

func NewQueueNotifier(p Publisher) *QueueNotifier {
	return &QueueNotifier{publisher: p}
}

func (n *QueueNotifier) Notify(ctx context.Context, title, body string) error {
	return n.publisher.Publish(ctx, amqp.NewReminderMessage(title, body))
}

// LogNotifier writes reminders to the log when no queue is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, title, body string) error {
	slog.InfoContext(ctx, title, "body", body)
	return nil
}

type ReminderJob struct {
	enabled  ReminderSwitch
	notifier Notifier
}

// NewReminderJob builds the job; a nil switch means always enabled.
func NewReminderJob(enabled ReminderSwitch, notifier Notifier) *ReminderJob {
	return &ReminderJob{enabled: enabled, notifier: notifier}
}

// Run sends the daily reminder unless the user turned reminders off.
func (j *ReminderJob) Run(ctx context.Context) error {
	if j.enabled != nil {
		on, err := j.enabled.RemindersEnabled(ctx)
		if err != nil {
			return fmt.Errorf("read reminder preference: %w", err)
		}
		if !on {
			slog.DebugContext(ctx, "Reminders disabled, skipping")
			return nil
		}
	}
	if err := j.notifier.Notify(ctx, ReminderTitle, ReminderBody); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	slog.InfoContext(ctx, "Daily reminder sent")
	return nil
}
