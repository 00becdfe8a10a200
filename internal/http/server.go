package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/middleware/ratelimit"
	"spendlens/internal/middleware/security"
	"spendlens/internal/middleware/trace"
	"spendlens/internal/query"
	"spendlens/internal/services"
)

type (
	ExpenseService interface {
		List(ctx context.Context, owner string, spec query.Spec, order query.Order) (services.ListResult, error)
		Create(ctx context.Context, owner string, in core.ExpenseInput) (core.Expense, error)
		Update(ctx context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error)
		Delete(ctx context.Context, owner, id string) error
		AttachReceipt(ctx context.Context, owner, id, filename, contentType string, data []byte) (core.Expense, error)
	}

	CategoryService interface {
		List(ctx context.Context, owner string) ([]core.Category, error)
		Create(ctx context.Context, owner, name string) (core.Category, error)
		Rename(ctx context.Context, owner, id, name string) (core.Category, error)
		Delete(ctx context.Context, owner, id string) error
		Suggestions(ctx context.Context, owner string) ([]string, error)
	}

	AnalyticsService interface {
		ByCategory(ctx context.Context, owner string, spec query.Spec) ([]analytics.Point, error)
		ByMonth(ctx context.Context, owner string, year int, spec query.Spec) ([]analytics.Point, error)
		ByDay(ctx context.Context, owner string, year, month int, spec query.Spec) ([]analytics.Point, error)
		CategoryTrend(ctx context.Context, owner string, year int, category string) ([]analytics.Point, error)
		Summary(ctx context.Context, owner string, year int) (analytics.Summary, error)
		Dashboard(ctx context.Context, owner string, year int) (services.Dashboard, error)
	}
)

// Options wires the server to its services.
type Options struct {
	Expenses   ExpenseService
	Categories CategoryService
	Analytics  AnalyticsService
	Auth       Authenticator

	// Ready reports whether the document store is reachable.
	Ready func(ctx context.Context) error
	// Receipts serves locally stored receipts under ReceiptsPath when set.
	Receipts     http.Handler
	ReceiptsPath string

	MaxReceiptBytes    int64
	RateLimitPerMinute int
	Logger             *log.Logger
	Now                func() time.Time
}

type Server struct {
	http.Server
	opts     Options
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReceiptsPath == "" {
		opts.ReceiptsPath = "/receipts"
	}
	if opts.MaxReceiptBytes <= 0 {
		opts.MaxReceiptBytes = 5 << 20
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger.WithComponent(log.ComponentHTTP),
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	s.detector.AllowFreeText("q", "category")
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	}))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware(s.logger, true))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	if s.opts.Receipts != nil {
		prefix := "/" + strings.Trim(s.opts.ReceiptsPath, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", s.opts.Receipts))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
		}))
		r.Use(requireOwner(s.opts.Auth))

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
			r.Post("/{id}/receipt", s.handleAttachReceipt)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/suggestions", s.handleCategorySuggestions)
			r.Put("/{id}", s.handleRenameCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/categories", s.handleCategoryBreakdown)
			r.Get("/months", s.handleMonthlySeries)
			r.Get("/days", s.handleDailySeries)
			r.Get("/trend", s.handleCategoryTrend)
			r.Get("/summary", s.handleSummary)
			r.Get("/dashboard", s.handleDashboard)
		})
	})

	return r
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics is a point-in-time view of the middleware counters.
type Metrics struct {
	Requests   trace.Metrics
	RateLimit  ratelimit.Metrics
	Suspicious security.DetectionMetrics
}

func (s *Server) Metrics() Metrics {
	return Metrics{
		Requests:   s.tracer.GetMetrics(),
		RateLimit:  s.limiter.GetMetrics(),
		Suspicious: s.detector.GetMetrics(),
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
