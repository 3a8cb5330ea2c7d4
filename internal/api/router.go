package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Om7972/votesecure-online-sub000/internal/audit"
	"github.com/Om7972/votesecure-online-sub000/internal/ledger"
	"github.com/Om7972/votesecure-online-sub000/internal/tally"
	"github.com/Om7972/votesecure-online-sub000/pkg/metrics"
	"github.com/Om7972/votesecure-online-sub000/pkg/telemetry"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Logger           *slog.Logger
	RateLimiter      RateLimiter
	Classifier       audit.Classifier
	ServiceMetrics   *metrics.ServiceMetrics
	Tracer           *telemetry.TracerProvider
	Health           *HealthChecker
	MiddlewareConfig *MiddlewareConfig
}

// DefaultRouterConfig returns a default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:           slog.Default(),
		RateLimiter:      NewInMemoryRateLimiter(100, time.Minute),
		Classifier:       audit.NewClassifier(),
		MiddlewareConfig: DefaultMiddlewareConfig(),
	}
}

// Services holds all service dependencies for the API.
type Services struct {
	Ledger    ledger.Service
	Tally     tally.Aggregator
	Elections tally.ElectionStore
	Audit     audit.Service
}

// NewRouter creates a new chi router with all middleware and routes.
func NewRouter(config *RouterConfig, services *Services) chi.Router {
	if config == nil {
		config = DefaultRouterConfig()
	}

	r := chi.NewRouter()

	// Apply middleware stack
	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(config.Logger))
	r.Use(LoggingMiddleware(config.Logger))
	r.Use(middleware.RealIP)
	r.Use(ContentTypeMiddleware)
	r.Use(ActorMiddleware)

	// Apply observability middleware
	if config.ServiceMetrics != nil {
		r.Use(metrics.Middleware(config.ServiceMetrics))
	}
	if config.Tracer != nil {
		r.Use(telemetry.Middleware("votesecure-api", metrics.SanitizePath))
	}

	// Apply security middleware
	if services != nil && services.Audit != nil {
		r.Use(SecurityAuditMiddleware(services.Audit, config.Classifier, config.Logger))
	}
	if config.RateLimiter != nil {
		r.Use(RateLimitMiddleware(config.RateLimiter, config.MiddlewareConfig))
	}

	// Register routes
	registerHealthRoutes(r, config.Health)
	registerVoteRoutes(r, services)
	registerElectionRoutes(r, services)
	registerAuditRoutes(r, services)

	return r
}

// registerHealthRoutes registers health check endpoints.
func registerHealthRoutes(r chi.Router, health *HealthChecker) {
	r.Get("/health", handleHealth(health))
	r.Get("/ready", handleReady)
	r.Get("/live", handleLive)
	r.Handle("/metrics", metrics.Handler())
}

// handleHealth returns overall API health, aggregating registered component
// checks when a checker is configured.
func handleHealth(health *HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "healthy", Version: "1.0.0"}
		status := http.StatusOK

		if health != nil {
			result := health.Check(r.Context())
			resp.Status = result.Status
			resp.Components = make(map[string]*ComponentHealth, len(result.Components))
			for name, component := range result.Components {
				resp.Components[name] = &ComponentHealth{
					Status:  component.Status,
					Message: component.Error,
				}
			}
			if result.Status != "healthy" {
				status = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, status, resp)
	}
}

// handleReady returns readiness status.
func handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive returns liveness status.
func handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthResponse represents health check response.
type HealthResponse struct {
	Status     string                      `json:"status"`
	Version    string                      `json:"version"`
	Components map[string]*ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth represents individual component health.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// registerVoteRoutes registers vote lifecycle endpoints.
func registerVoteRoutes(r chi.Router, services *Services) {
	if services == nil || services.Ledger == nil {
		return
	}
	handler := NewVoteHandler(services.Ledger)
	r.Route("/api/v1/votes", func(r chi.Router) {
		r.Get("/{id}", handler.Get)
		r.Post("/{id}/verify", handler.Verify)
		r.Post("/{id}/count", handler.Count)
		r.Post("/{id}/invalidate", handler.Invalidate)
		r.Post("/{id}/anonymize", handler.Anonymize)
		r.Post("/{id}/unseal", handler.Unseal)
		r.Post("/{id}/challenges", handler.Challenge)
		r.Post("/{id}/challenges/{challengeID}/review", handler.ReviewChallenge)
	})
	r.Get("/api/v1/voters/{voterID}/votes", handler.ListByVoter)
}

// registerElectionRoutes registers election-scoped vote and results endpoints.
func registerElectionRoutes(r chi.Router, services *Services) {
	if services == nil {
		return
	}
	r.Route("/api/v1/elections/{electionID}", func(r chi.Router) {
		if services.Ledger != nil {
			voteHandler := NewVoteHandler(services.Ledger)
			r.Post("/votes", voteHandler.Cast)
			r.Get("/votes", voteHandler.ListByElection)
		}
		if services.Tally != nil {
			resultsHandler := NewResultsHandler(services.Tally, services.Elections)
			r.Get("/results", resultsHandler.Get)
			r.Post("/results/recompute", resultsHandler.Recompute)
			r.Get("/counts", resultsHandler.Counts)
			r.Get("/turnout", resultsHandler.Turnout)
			r.Get("/stats", resultsHandler.Stats)
		}
	})
}

// registerAuditRoutes registers audit endpoints.
func registerAuditRoutes(r chi.Router, services *Services) {
	if services == nil || services.Audit == nil {
		return
	}
	handler := NewAuditHandler(services.Audit)
	r.Route("/api/v1/audit", func(r chi.Router) {
		r.Get("/", handler.Query)
		r.Get("/suspicious", handler.Suspicious)
		r.Get("/stats", handler.Stats)
		r.Post("/purge", handler.Purge)
		r.Get("/{id}", handler.Get)
		r.Post("/{id}/verify", handler.Verify)
	})
}
