// Package http serves the organizer's JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcarneiro/airbnb-organizer/internal/coordinator"
	"github.com/mcarneiro/airbnb-organizer/internal/core"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
	"github.com/mcarneiro/airbnb-organizer/internal/middleware/ratelimit"
	"github.com/mcarneiro/airbnb-organizer/internal/middleware/security"
	"github.com/mcarneiro/airbnb-organizer/internal/middleware/trace"
)

// Organizer is the part of the coordinator the API drives.
type Organizer interface {
	State() coordinator.State
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	SetStoreID(ctx context.Context, id string) error
	Reload(ctx context.Context) error

	Summaries() []core.MonthlyTaxSummary
	Summary(month string) (core.MonthlyTaxSummary, error)
	Occupancy(month string) (int, error)
	YearlyProfit() []core.YearSeries
	MarkPaid(ctx context.Context, month string) (bool, error)
	MarkUnpaid(ctx context.Context, month string) (bool, error)

	Reservations() []core.Reservation
	AddReservation(checkIn core.Date, nights int, total core.Money) (core.Reservation, error)
	UpdateReservation(id string, checkIn core.Date, nights int, total core.Money) (core.Reservation, error)
	DeleteReservation(id string) error

	Expenses() []core.Expense
	AddExpense(e core.Expense) (core.Expense, error)
	UpdateExpense(id string, e core.Expense) (core.Expense, error)
	DeleteExpense(id string) error

	Settings() core.Settings
	UpdateSettings(s core.Settings) error
}

var _ Organizer = (*coordinator.Coordinator)(nil)

// Options configures a Server. Organizer and Logger are required.
type Options struct {
	Organizer Organizer
	Logger    *log.Logger
	// Notifications serves the websocket upgrade at /api/ws when set.
	Notifications http.Handler
	// Gatherer backs /metrics when set.
	Gatherer prometheus.Gatherer
	// SessionRequestsPerMinute limits /api/session calls per client
	// (default: 20).
	SessionRequestsPerMinute int
	// SignInTimeout bounds an interactive sign-in (default: 5m).
	SignInTimeout time.Duration
}

type Server struct {
	http.Server
	org           Organizer
	logger        *log.Logger
	limiter       *ratelimit.Limiter
	signInTimeout time.Duration
	shutdownOnce  sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Call Shutdown to stop it and release the rate limiter.
func NewServer(addr string, opts Options) *Server {
	if opts.SessionRequestsPerMinute <= 0 {
		opts.SessionRequestsPerMinute = 20
	}
	if opts.SignInTimeout <= 0 {
		opts.SignInTimeout = 5 * time.Minute
	}

	s := &Server{
		org:           opts.Organizer,
		logger:        opts.Logger.WithComponent(log.ComponentHTTP),
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.SessionRequestsPerMinute}),
		signInTimeout: opts.SignInTimeout,
	}

	ips := security.NewClientIPResolver()
	tracer := trace.NewMiddleware(opts.Logger, ips.ClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.Use(tracer.Middleware)
	r.Use(recovery)
	r.Use(headers.Middleware)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	if opts.Notifications != nil {
		api.Handle("/ws", opts.Notifications).Methods(http.MethodGet)
	}

	sess := api.PathPrefix("/session").Subrouter()
	sess.Use(s.limiter.Middleware(ips.ClientIP, rateLimited))
	sess.HandleFunc("/signin", s.handleSignIn).Methods(http.MethodPost)
	sess.HandleFunc("/signout", s.handleSignOut).Methods(http.MethodPost)
	sess.HandleFunc("/store", s.handleSetStore).Methods(http.MethodPut)

	api.HandleFunc("/sync/reload", s.handleReload).Methods(http.MethodPost)

	api.HandleFunc("/months", s.handleListMonths).Methods(http.MethodGet)
	api.HandleFunc("/months/{month}", s.handleGetMonth).Methods(http.MethodGet)
	api.HandleFunc("/months/{month}/paid", s.handleMarkPaid).Methods(http.MethodPut)
	api.HandleFunc("/months/{month}/paid", s.handleMarkUnpaid).Methods(http.MethodDelete)
	api.HandleFunc("/months/{month}/occupancy", s.handleOccupancy).Methods(http.MethodGet)
	api.HandleFunc("/profit/yearly", s.handleYearlyProfit).Methods(http.MethodGet)

	api.HandleFunc("/reservations", s.handleListReservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations", s.handleCreateReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id}", s.handleUpdateReservation).Methods(http.MethodPut)
	api.HandleFunc("/reservations/{id}", s.handleDeleteReservation).Methods(http.MethodDelete)

	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods(http.MethodPut)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
