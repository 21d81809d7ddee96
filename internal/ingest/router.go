package ingest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/ashgrover/insiderwatch/internal/logging"
)

// RouterConfig controls CORS and rate-limit behavior, separate from
// Handlers so a deployment can tune them without touching handler wiring.
type RouterConfig struct {
	CORSAllowedOrigins []string

	// IngestRateLimit bounds POST /api/v1/activities per source IP — the
	// one endpoint hit continuously by every deployed agent.
	IngestRateLimitRequests int
	IngestRateLimitWindow   time.Duration

	// ReadRateLimit bounds the dashboard's read endpoints.
	ReadRateLimitRequests int
	ReadRateLimitWindow   time.Duration
}

// DefaultRouterConfig returns permissive defaults suitable for a trusted
// internal deployment behind a reverse proxy.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSAllowedOrigins:      []string{"*"},
		IngestRateLimitRequests: 120,
		IngestRateLimitWindow:   time.Minute,
		ReadRateLimitRequests:   300,
		ReadRateLimitWindow:     time.Minute,
	}
}

// requestIDWithCorrelation stamps every request with chi's request id plus a
// correlation id the handlers' logging.Ctx calls then pick up.
func requestIDWithCorrelation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withRequestID := chimiddleware.RequestID(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.ContextWithNewCorrelationID(r.Context())
			withRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRouter wires every §6/§4.7 endpoint onto a chi router, grouped by
// rate-limit tier.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDWithCorrelation())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		// Ingest is the hot path: a rate limiter scoped to it alone so one
		// noisy agent can't starve dashboard reads sharing the same router.
		r.With(httprate.LimitByIP(cfg.IngestRateLimitRequests, cfg.IngestRateLimitWindow)).
			Post("/activities", h.IngestActivity)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.ReadRateLimitRequests, cfg.ReadRateLimitWindow))

			r.Get("/users", h.ListUsers)
			r.Get("/users/{id}", h.GetUser)
			r.Get("/users/{id}/activities", h.ListActivities)
			r.Get("/users/{id}/its-history", h.HistoricalITS)
			r.Get("/dashboard/stats", h.DashboardStats)

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", h.ListAlerts)
				r.Get("/{id}", h.GetAlert)
				r.Post("/{id}/view", h.ViewAlert)
				r.Patch("/{id}/status", h.UpdateAlertStatus)
				r.Post("/{id}/convert-to-incident", h.ConvertAlertToIncident)
			})

			r.Route("/threats", func(r chi.Router) {
				r.Get("/", h.ListThreats)
				r.Get("/{id}", h.GetThreat)
				r.Patch("/{id}/status", h.UpdateThreatStatus)
				r.Post("/{id}/promote", h.PromoteThreatToIncident)
			})

			r.Route("/incidents", func(r chi.Router) {
				r.Get("/", h.ListIncidents)
				r.Get("/{id}", h.GetIncident)
				r.Post("/{id}/resolve", h.ResolveIncident)
			})
		})
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
