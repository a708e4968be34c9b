package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"expensekeeper/internal/amqp"
	"expensekeeper/internal/budget"
	"expensekeeper/internal/cli"
	"expensekeeper/internal/config"
	"expensekeeper/internal/customers"
	"expensekeeper/internal/export/sheets"
	apphttp "expensekeeper/internal/http"
	applog "expensekeeper/internal/log"
	"expensekeeper/internal/preferences"
	"expensekeeper/internal/services"
	"expensekeeper/internal/storage"
	"expensekeeper/internal/tags"
	"expensekeeper/internal/watch"
	"expensekeeper/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	logger.Info("Starting expensekeeper")

	cfg := cli.LoadAndValidateConfig(logger.Logger)

	store, closeStore := cli.InitStore(context.Background(), logger.Logger, cfg)
	cal, err := cli.Calendar(cfg)
	if err != nil {
		logger.Error("Invalid calendar configuration", "error", err)
		os.Exit(1)
	}

	caches, reports, trends := cli.StatsCaches(cfg)

	amqpClient := cli.InitAMQP(logger.Logger, cfg, cfg.AMQPQueue)
	var publisher services.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}

	mode, err := services.ParseMode(cfg.RecurringMode)
	if err != nil {
		logger.Error("Invalid recurring mode", "error", err)
		os.Exit(1)
	}

	broker := watch.NewBroker()
	tagManager := tags.NewManager(store)
	expenses := services.NewExpenseService(store, tagManager, broker, publisher)
	notifications := apphttp.NewNotifications()

	svc := apphttp.Services{
		Expenses:      expenses,
		Stats:         services.NewStatsService(store, cal, broker, reports, trends),
		Budget:        budget.NewTracker(store, store, cal),
		Tags:          tagManager,
		Customers:     customers.NewService(store),
		Preferences:   preferences.NewService(store),
		Recurring:     services.NewRecurringProcessor(store, cal, broker, publisher, services.RecurringOptions{Mode: mode, SameDayGuard: cfg.RecurringSameDayGuard}),
		Sheets:        initSheets(logger, cfg, store, cal.Location()),
		Notifications: notifications,
		Caches:        caches,
		Calendar:      cal,
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		WritesPerMinute:   cfg.WritesPerMinute,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Logger:            logger.WithComponent(applog.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
		if err := closeStore(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	})
	// Streams end with the process context instead of holding shutdown open.
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	if amqpClient != nil {
		go consume(ctx, logger, amqpClient, expenses, notifications)
	}
	go watchExternalChanges(ctx, logger, cfg, store, broker)

	logger.Info("Starting HTTP server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cal.Location().String(),
		"sheets", svc.Sheets != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// consume wakes local subscribers on changes made by other processes and
// forwards reminders to stream clients.
func consume(ctx context.Context, logger *applog.Logger, client *amqp.Client, expenses *services.ExpenseService, notifications *apphttp.Notifications) {
	err := client.Consume(ctx, func(ctx context.Context, msg *amqp.Message) error {
		if err := expenses.HandleMessage(ctx, msg); err != nil {
			return err
		}
		return notifications.HandleMessage(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
	}
}

// watchExternalChanges polls the database for writes made by other
// processes, such as the recurring worker, so cached reports and open
// streams refresh even without AMQP.
func watchExternalChanges(ctx context.Context, logger *applog.Logger, cfg *config.Config, store storage.Store, broker *watch.Broker) {
	feed, ok := store.(storage.ChangeFeed)
	if !ok {
		return
	}
	watcher := worker.NewChangeWatcher(feed, broker)
	scheduler := worker.NewScheduler()
	if err := scheduler.Add(worker.Job{
		Name:       "external-changes",
		Interval:   cfg.ChangePollInterval,
		RunOnStart: true,
		Quiet:      true,
		Run:        watcher.Poll,
	}); err != nil {
		logger.Error("Failed to schedule change watcher", "error", err)
		return
	}
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Change watcher stopped", "error", err)
	}
}

// initSheets enables the on-demand spreadsheet export when Google Sheets is
// configured. A client that cannot be built disables the export only.
func initSheets(logger *applog.Logger, cfg *config.Config, store storage.ExpenseStore, loc *time.Location) *worker.SheetsSync {
	if !cfg.SheetsEnabled() {
		return nil
	}
	client, err := sheets.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, sheets.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	}, loc)
	if err != nil {
		logger.Warn("Google Sheets export disabled", "error", err)
		return nil
	}
	logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return worker.NewSheetsSync(store, client)
}
