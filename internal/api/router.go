package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/credence/internal/api/handlers"
	mw "github.com/Harshitk-cp/credence/internal/api/middleware"
	"github.com/Harshitk-cp/credence/internal/buildconfig"
	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/investigator"
	"github.com/Harshitk-cp/credence/internal/metrics"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/Harshitk-cp/credence/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure the HTTP surface.
type Options struct {
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
	// RequestTimeout is the deadline for each /v1 request; 0 disables it.
	RequestTimeout time.Duration
	// DB is pinged by /health; nil reports the in-memory store.
	DB Pinger
}

// App holds the router and the request counters behind /metrics.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(svc *service.ResolutionService, m *metrics.Metrics, opts Options, logger *zap.Logger) *App {
	resolveHandler := handlers.NewResolveHandler(svc)
	contextHandler := handlers.NewContextHandler(svc)
	registryHandler := handlers.NewRegistryHandler(svc)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount, m)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	// No auth
	r.Get("/health", healthHandler(opts.DB))
	r.Get("/metrics", app.metricsHandler())
	r.Method(http.MethodGet, "/metrics/prometheus", m.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(opts.APIKey))
		if opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(opts.RequestTimeout))
		}

		r.Get("/resolve", resolveHandler.Resolve)
		r.Post("/resolve/batch", resolveHandler.Batch)

		r.Route("/contexts", func(r chi.Router) {
			r.Get("/", contextHandler.List)
			r.Delete("/", contextHandler.Delete)
			r.Put("/local", contextHandler.PutLocal)
		})

		r.Get("/investigators", registryHandler.Investigators)
		r.Get("/policies", registryHandler.Policies)
	})

	return app
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]string{"status": "ok", "store": "memory"}
		for k, v := range buildconfig.VersionInfo() {
			resp[k] = v
		}

		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			resp["store"] = "postgres"
			if err := db.Ping(r.Context()); err != nil {
				resp["status"] = "error"
				resp["error"] = err.Error()
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(resp)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure implementations satisfy interfaces at compile time.
var (
	_ domain.ContextStore       = (*store.ContextStore)(nil)
	_ domain.ContextStore       = (*store.MemoryStore)(nil)
	_ investigator.Investigator = (*investigator.HTTP)(nil)
	_ investigator.Investigator = investigator.Null{}
	_ investigator.Investigator = investigator.Unsupported{}
	_ investigator.Fetcher      = (*investigator.HTTPFetcher)(nil)
)
