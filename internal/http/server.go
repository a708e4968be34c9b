package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"expensekeeper/internal/budget"
	"expensekeeper/internal/cache"
	"expensekeeper/internal/customers"
	applog "expensekeeper/internal/log"
	"expensekeeper/internal/middleware/ratelimit"
	"expensekeeper/internal/middleware/security"
	"expensekeeper/internal/middleware/trace"
	"expensekeeper/internal/period"
	"expensekeeper/internal/preferences"
	"expensekeeper/internal/services"
	"expensekeeper/internal/tags"
	"expensekeeper/internal/worker"
)

// Services are the explicitly constructed dependencies of the API.
// Recurring, Sheets and Caches are optional.
type Services struct {
	Expenses      *services.ExpenseService
	Stats         *services.StatsService
	Budget        *budget.Tracker
	Tags          *tags.Manager
	Customers     *customers.Service
	Preferences   *preferences.Service
	Recurring     *services.RecurringProcessor
	Sheets        *worker.SheetsSync
	Notifications *Notifications
	Caches        *cache.Manager
	Calendar      period.Calendar
}

type Server struct {
	http.Server
	svc         Services
	loc         *time.Location
	now         func() time.Time
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// Options tune the server; the zero value is usable.
type Options struct {
	WritesPerMinute int
	// TrustProxyHeaders lets X-Forwarded-For and X-Real-IP replace the peer
	// address in logs. Write limits always key on the TCP peer.
	TrustProxyHeaders bool
	Logger            *applog.Logger
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if svc.Notifications == nil {
		svc.Notifications = NewNotifications()
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		svc:         svc,
		loc:         svc.Calendar.Location(),
		now:         time.Now,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{WritesPerMinute: opts.WritesPerMinute}),
		tracer:      trace.NewMiddleware(),
	}

	clientIP := func(r *http.Request) string { return r.RemoteAddr }

	r := chi.NewRouter()
	r.Use(ratelimit.CapturePeer)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(logger))
	r.Use(applog.RequestIDMiddleware(trace.FromRequest))
	r.Use(applog.AccessLog(clientIP))
	r.Use(chimw.Recoverer)
	r.Use(security.Headers(security.APIPolicy()))
	r.Use(s.rateLimiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Write limit exceeded",
			"peer", ratelimit.PeerKey(r),
			"client_ip", clientIP(r),
			"method", r.Method,
			"path", r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate_limited", "too many writes, try again later").Write(w)
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/expenses", s.handleListExpenses)
		r.Post("/expenses", s.handleCreateExpense)
		r.Delete("/expenses", s.handleDeleteAllExpenses)
		r.Get("/expenses/recurring", s.handleListRecurring)
		r.Get("/expenses/{id}", s.handleGetExpense)
		r.Put("/expenses/{id}", s.handleUpdateExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)
		r.Post("/recurring/run", s.handleRunRecurring)
		r.Get("/categories", s.handleCategories)

		r.Get("/stats", s.handleStats)
		r.Get("/stats/trends", s.handleTrends)
		r.Get("/budget", s.handleGetBudget)
		r.Put("/budget", s.handleSetBudget)

		r.Get("/tags/suggestions", s.handleTagSuggestions)
		r.Get("/tags/popular", s.handlePopularTags)
		r.Delete("/tags/{tag}", s.handleRemoveTag)

		r.Get("/customers", s.handleListCustomers)
		r.Post("/customers", s.handleCreateCustomer)
		r.Get("/customers/{id}", s.handleGetCustomer)
		r.Put("/customers/{id}", s.handleUpdateCustomer)
		r.Delete("/customers/{id}", s.handleDeleteCustomer)

		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handleSavePreferences)
		r.Get("/currencies", s.handleCurrencies)

		r.Group(func(r chi.Router) {
			r.Use(security.NoStore)
			r.Get("/export/csv", s.handleExportCSV)
			r.Post("/export/sheets", s.handleExportSheets)
			r.Get("/stream", s.handleStream)
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.svc.Caches != nil {
			s.svc.Caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":   "ok",
		"requests": s.tracer.GetMetrics().TotalRequests,
		"clients":  s.rateLimiter.Clients(),
	}).Write(w)
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.svc.Expenses.Categories(ctx); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		ErrorResponse(http.StatusServiceUnavailable, "not_ready", "store unavailable").Write(w)
		return
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}

// fail logs server-side failures and writes the mapped error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, nil)
	}
	resp.Write(w)
}
