package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/backoffice/internal/bills"
	"github.com/odyssey-erp/backoffice/internal/invoices"
	"github.com/odyssey-erp/backoffice/internal/observability"
	"github.com/odyssey-erp/backoffice/internal/orderbooks"
	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/purchasing"
	"github.com/odyssey-erp/backoffice/internal/quotations"
	"github.com/odyssey-erp/backoffice/internal/vendors"
	"github.com/odyssey-erp/backoffice/jobs"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger     *slog.Logger
	Config     *Config
	Modules    *Modules
	Metrics    *observability.Metrics
	JobHandler *jobs.Handler
	// Checks run on /readyz; /healthz only reports the process is up.
	Checks map[string]HealthCheck
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(logger, params.Checks))
	r.Handle("/metrics", params.Metrics.Handler())

	m := params.Modules
	r.Route("/api", func(r chi.Router) {
		r.Use(httpx.ActorMiddleware)
		vendors.NewHandler(logger, m.Vendors).MountRoutes(r)
		quotations.NewHandler(logger, m.Quotations).MountRoutes(r)
		purchasing.NewHandler(logger, m.Purchasing).MountRoutes(r)
		bills.NewHandler(logger, m.Bills).MountRoutes(r)
		invoices.NewHandler(logger, m.Invoices).MountRoutes(r)
		orderbooks.NewHandler(logger, m.OrderBooks).MountRoutes(r)
		if params.JobHandler != nil {
			params.JobHandler.MountRoutes(r)
		}
	})

	return r
}

func readiness(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("check", name), slog.Any("error", err))
				report[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httpx.JSON(w, status, report)
	}
}
