package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"tesoreria/internal/cache"
	applog "tesoreria/internal/log"
	"tesoreria/internal/middleware/ratelimit"
	"tesoreria/internal/middleware/security"
	"tesoreria/internal/middleware/trace"
	"tesoreria/internal/services"
)

const cacheCleanupInterval = 10 * time.Minute

// Pinger reports whether a dependency is reachable. *storage.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the ledger operations the API exposes.
type Services struct {
	Accounts        *services.AccountService
	Transactions    *services.TransactionService
	Expenses        *services.ExpenseService
	Projects        *services.ProjectService
	ProjectExpenses *services.ProjectExpenseService
	Budgets         *services.BudgetService
	Statistics      *services.StatisticsService
}

// Options tune the server's middleware.
type Options struct {
	RequestsPerMinute int
	Logger            *applog.Logger
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For, on top of
	// loopback and private networks.
	TrustedProxies []string
	// Ready is pinged by /readyz. Nil means always ready.
	Ready Pinger
}

type Server struct {
	http.Server
	svc       Services
	ready     Pinger
	startedAt time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	// caches is nil when nothing needs sweeping
	caches *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			slog.Warn("Ignoring trusted proxy", applog.FieldComponent, applog.ComponentSecurity, applog.FieldError, err)
		}
	}
	s := &Server{
		svc:       svc,
		ready:     opts.Ready,
		startedAt: time.Now(),
		detector:  detector,
		tracer:    trace.NewMiddleware(detector.ExtractClientIP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
	}

	if svc.Projects != nil && svc.Projects.Cache() != nil {
		s.caches = cache.NewManager()
		s.caches.Register(svc.Projects.Cache())
		s.caches.StartCleanup(cacheCleanupInterval)
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
	r.Use(
		s.tracer.Middleware,
		applog.Middleware(logger),
		applog.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) }),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.flagSuspicious,
	)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	// Subrouters answer their own misses; the root handlers never see them.
	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = r.NotFoundHandler
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler
	api.Use(s.limiter.Middleware(detector.ExtractClientIP, handleRateLimited))
	s.routes(api)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(api *mux.Router) {
	api.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", s.handleCreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id:[0-9]+}", s.handleGetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id:[0-9]+}", s.handleUpdateAccount).Methods(http.MethodPut)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id:[0-9]+}", s.handleGetExpense).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id:[0-9]+}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id:[0-9]+}", s.handleDeleteExpense).Methods(http.MethodDelete)
	api.HandleFunc("/expenses/{id:[0-9]+}/approve", s.handleApproveExpense).Methods(http.MethodPost)

	api.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id:[0-9]+}", s.handleGetProject).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id:[0-9]+}/expenses", s.handleListExpensesOfProject).Methods(http.MethodGet)

	api.HandleFunc("/project-expenses", s.handleListProjectExpenses).Methods(http.MethodGet)
	api.HandleFunc("/project-expenses", s.handleCreateProjectExpense).Methods(http.MethodPost)
	api.HandleFunc("/project-expenses/{id:[0-9]+}", s.handleGetProjectExpense).Methods(http.MethodGet)
	api.HandleFunc("/project-expenses/{id:[0-9]+}", s.handleUpdateProjectExpense).Methods(http.MethodPut)
	api.HandleFunc("/project-expenses/{id:[0-9]+}", s.handleDeleteProjectExpense).Methods(http.MethodDelete)

	api.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id:[0-9]+}", s.handleGetBudget).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id:[0-9]+}", s.handleUpdateBudget).Methods(http.MethodPut)
	api.HandleFunc("/budgets/{id:[0-9]+}", s.handleDeleteBudget).Methods(http.MethodDelete)
	api.HandleFunc("/budgets/{id:[0-9]+}/spend", s.handleSpendFromBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id:[0-9]+}/reconcile", s.handleReconcileBudget).Methods(http.MethodPost)

	api.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
}

// flagSuspicious logs requests matching known attack patterns. They are
// still served; the rate limiter is what throttles clients.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request",
				applog.FieldComponent, applog.ComponentSecurity,
				applog.FieldRequestID, trace.GetRequestID(r.Context()),
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		if s.caches != nil {
			s.caches.Stop()
		}
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
