package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expensekeeper/internal/amqp"
	"expensekeeper/internal/cli"
	"expensekeeper/internal/config"
	"expensekeeper/internal/export/sheets"
	applog "expensekeeper/internal/log"
	"expensekeeper/internal/preferences"
	"expensekeeper/internal/services"
	"expensekeeper/internal/storage"
	"expensekeeper/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger.Logger)

	store, closeStore := cli.InitStore(context.Background(), logger.Logger, cfg)
	cal, err := cli.Calendar(cfg)
	if err != nil {
		logger.Error("Invalid calendar configuration", "error", err)
		os.Exit(1)
	}
	mode, err := services.ParseMode(cfg.RecurringMode)
	if err != nil {
		logger.Error("Invalid recurring mode", "error", err)
		os.Exit(1)
	}

	amqpClient := cli.InitAMQP(logger.Logger, cfg, cfg.AMQPSyncQueue)
	var publisher services.Publisher
	var notifier services.Notifier = services.LogNotifier{}
	if amqpClient != nil {
		publisher = amqpClient
		notifier = services.NewQueueNotifier(amqpClient)
	}

	processor := services.NewRecurringProcessor(store, cal, nil, publisher, services.RecurringOptions{
		Mode:         mode,
		SameDayGuard: cfg.RecurringSameDayGuard,
	})
	reminders := services.NewReminderJob(preferences.NewService(store), notifier)

	scheduler := worker.NewScheduler()
	jobs := []worker.Job{
		{
			Name:       "recurring",
			Interval:   cfg.RecurringInterval,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				res, err := processor.ProcessDueExpenses(ctx, time.Now())
				logger.InfoContext(ctx, "Recurring pass finished",
					"checked", res.Checked,
					"due", res.Due,
					"created", res.Created,
					"skipped", res.Skipped,
					"failed", res.Failed)
				return err
			},
		},
		{
			Name:     "reminder",
			Interval: cfg.ReminderInterval,
			Run:      reminders.Run,
		},
	}
	for _, job := range jobs {
		if err := scheduler.Add(job); err != nil {
			logger.Error("Failed to schedule job", "job", job.Name, "error", err)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func() {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
		if err := closeStore(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	})

	if sync := initSheetsSync(ctx, logger, cfg, store, cal.Location()); sync != nil {
		if err := sync.Sync(ctx); err != nil {
			logger.Error("Startup spreadsheet sync failed", "error", err)
		}
		if amqpClient != nil {
			go consume(ctx, logger, amqpClient, sync)
		} else {
			logger.Info("AMQP not configured, spreadsheet follows startup syncs only")
		}
	}

	logger.Info("Background jobs configured",
		"recurring_interval", cfg.RecurringInterval,
		"reminder_interval", cfg.ReminderInterval,
		"mode", mode,
		"same_day_guard", cfg.RecurringSameDayGuard)
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Scheduler stopped with error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring worker stopped")
}

func consume(ctx context.Context, logger *applog.Logger, client *amqp.Client, sync *worker.SheetsSync) {
	if err := client.Consume(ctx, sync.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
	}
}

func initSheetsSync(ctx context.Context, logger *applog.Logger, cfg *config.Config, store storage.ExpenseStore, loc *time.Location) *worker.SheetsSync {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled, no GOOGLE_SPREADSHEET_ID provided")
		return nil
	}
	client, err := sheets.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, sheets.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	}, loc)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		return nil
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return worker.NewSheetsSync(store, client)
}
