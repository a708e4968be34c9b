package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"expensekeeper/internal/core"
	"expensekeeper/internal/watch"
)

const streamKeepAlive = 25 * time.Second

// handleStream is a server-sent events feed for one period selection. It
// sends "expenses", "stats" and "categories" snapshots on connect and after
// every change, and "reminder" events as they arrive. With q the expenses
// feed follows that search instead of the period.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	q, err := s.statsQuery(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx := r.Context()
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.ErrorContext(ctx, "Streaming unsupported", "error", err)
		return
	}

	var expenses *watch.Subscription[[]core.Expense]
	if r.URL.Query().Has("q") {
		expenses = s.svc.Expenses.WatchSearch(ctx, r.URL.Query().Get("q"))
	} else {
		expenses = s.svc.Expenses.WatchRange(ctx, q.Range)
	}
	defer expenses.Cancel()
	categories := s.svc.Expenses.WatchCategories(ctx)
	defer categories.Cancel()
	reports := s.svc.Stats.WatchReport(ctx, q)
	defer reports.Cancel()
	reminders, unsubscribe := s.svc.Notifications.Subscribe()
	defer unsubscribe()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	send := func(event string, payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to encode stream event", "event", event, "error", err)
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	slog.DebugContext(ctx, "Stream opened", "period", q.Kind, "range", q.Range.String())
	for {
		var ok bool
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "Stream closed")
			return
		case items, open := <-expenses.Updates():
			if !open {
				return
			}
			ok = send("expenses", toExpenseList(items, s.loc))
		case rep, open := <-reports.Updates():
			if !open {
				return
			}
			ok = send("stats", toReportResponse(rep, s.loc))
		case cats, open := <-categories.Updates():
			if !open {
				return
			}
			ok = send("categories", map[string][]string{"categories": cats})
		case note, open := <-reminders:
			if !open {
				return
			}
			ok = send("reminder", note)
		case <-keepAlive.C:
			_, err := fmt.Fprint(w, ": keep-alive\n\n")
			ok = err == nil && rc.Flush() == nil
		}
		if !ok {
			return
		}
	}
}

