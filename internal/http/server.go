// Package http serves the payroll ledger: a JSON API under /api, the weekly
// page at / and the operational endpoints.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"planilla/internal/cache"
	"planilla/internal/core"
	"planilla/internal/log"
	"planilla/internal/metrics"
	"planilla/internal/middleware/ratelimit"
	"planilla/internal/middleware/security"
	appweb "planilla/web"
)

// Payroll is the ledger as seen by the HTTP layer.
type Payroll interface {
	ResolveWeek(ctx context.Context, ref core.Date, supervisor string) (core.Week, error)
	FindWeek(ctx context.Context, ref core.Date) (core.Week, error)
	GetWeek(ctx context.Context, id int64) (core.Week, error)
	ListWeeks(ctx context.Context, limit int) ([]core.Week, error)
	SetSupervisor(ctx context.Context, weekID int64, name string) (core.Week, error)
	CloseWeek(ctx context.Context, weekID int64) (core.Week, error)
	ReopenWeek(ctx context.Context, weekID int64) (core.Week, error)

	UpsertEntry(ctx context.Context, in core.EntryInput) (core.Entry, error)
	DeleteEntry(ctx context.Context, weekID int64, workerName string, date core.Date) (int64, error)
	DeleteAllEntries(ctx context.Context, weekID int64, workerName string) (int64, error)
	ListEntries(ctx context.Context, weekID int64) ([]core.Entry, error)
	Summary(ctx context.Context, weekID int64) (core.WeeklySummary, error)

	ListWorkers(ctx context.Context, activeOnly bool) ([]core.Worker, error)
	GetWorker(ctx context.Context, name string) (core.Worker, error)
	CreateWorker(ctx context.Context, name, role string) (core.Worker, error)
	SetWorkerActive(ctx context.Context, name string, active bool) error
	RenameWorker(ctx context.Context, oldName, newName string) error
	SetWorkerRole(ctx context.Context, name, role string) error

	Ping(ctx context.Context) error
}

type Options struct {
	Logger          *log.Logger
	SummaryCacheTTL time.Duration
	// RequestsPerMinute caps write requests per client. Zero uses the limiter default.
	RequestsPerMinute int
	Now               func() time.Time
}

type Server struct {
	http.Server
	payroll   Payroll
	logger    *log.Logger
	templates *template.Template
	now       func() time.Time

	summaries *cache.LRUCache[core.WeeklySummary]
	caches    *cache.Manager
	limiter   *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, payroll Payroll, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		payroll:   payroll,
		logger:    opts.Logger,
		now:       opts.Now,
		summaries: cache.NewLRUCache[core.WeeklySummary](64, opts.SummaryCacheTTL),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
	}
	s.caches = cache.NewManager(s.summaries)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	limitWrites := s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
	})

	r.Group(func(r chi.Router) {
		r.Use(limitWrites)
		r.Get("/", s.handleIndex)
		r.Post("/weeks", s.handleFormCreateWeek)
		r.Post("/weeks/{id}/entries", s.handleFormEntry)
		r.Post("/weeks/{id}/entries/delete", s.handleFormDeleteEntry)
		r.Post("/weeks/{id}/supervisor", s.handleFormSupervisor)
		r.Post("/weeks/{id}/close", s.handleFormLifecycle(true))
		r.Post("/weeks/{id}/reopen", s.handleFormLifecycle(false))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(limitWrites)

		r.Route("/weeks", func(r chi.Router) {
			r.Get("/", s.handleFindWeek)
			r.Post("/", s.handleResolveWeek)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetWeek)
				r.Put("/supervisor", s.handleSetSupervisor)
				r.Post("/close", s.handleCloseWeek)
				r.Post("/reopen", s.handleReopenWeek)

				r.Get("/entries", s.handleListEntries)
				r.Put("/entries", s.handleUpsertEntry)
				r.Delete("/entries", s.handleDeleteEntries)

				r.Get("/summary", s.handleSummary)
				r.Get("/export.csv", s.handleExportCSV)
				r.Get("/export.xlsx", s.handleExportXLSX)
			})
		})

		r.Route("/workers", func(r chi.Router) {
			r.Get("/", s.handleListWorkers)
			r.Post("/", s.handleCreateWorker)
			r.Patch("/{name}", s.handleUpdateWorker)
		})
	})

	return r
}

// Background sweeps the summary cache and the rate limiter until ctx is done.
func (s *Server) Background(ctx context.Context) {
	go s.limiter.Run(ctx, 5*time.Minute)
	s.caches.Run(ctx, time.Minute)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.summaries.Purge()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func summaryKey(weekID int64) string {
	return strconv.FormatInt(weekID, 10)
}

// summary returns the week's aggregation, served from cache between writes.
func (s *Server) summary(ctx context.Context, weekID int64) (core.WeeklySummary, error) {
	key := summaryKey(weekID)
	if cached, ok := s.summaries.Get(key); ok {
		metrics.SummaryCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.SummaryCache.WithLabelValues("miss").Inc()

	summary, err := s.payroll.Summary(ctx, weekID)
	if err != nil {
		return core.WeeklySummary{}, err
	}
	s.summaries.Set(key, summary)
	return summary, nil
}

func (s *Server) invalidateWeek(weekID int64) {
	s.summaries.Delete(summaryKey(weekID))
}

// invalidateAll is used when a worker changes, since its name and role appear in every week.
func (s *Server) invalidateAll() {
	s.summaries.Purge()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.payroll.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
