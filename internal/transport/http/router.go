// Package httptransport is the thin HTTP layer. Handlers decode, validate
// shape, delegate to services, and translate domain errors; business rules
// live behind the service interfaces.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clavis/internal/platform/metrics"
	"clavis/internal/platform/middleware"
)

// Pinger is the liveness dependency, satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps carries everything the router wires together.
type Deps struct {
	Users    UserService
	Sessions SessionService
	Verifier middleware.AccessVerifier
	Resolver middleware.UserResolver
	DB       Pinger
	Cookies  CookieConfig
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// NewRouter assembles the middleware chain and the full route table.
func NewRouter(deps Deps) http.Handler {
	userHandler := NewUserHandler(deps.Users, deps.Logger)
	sessionHandler := NewSessionHandler(deps.Sessions, deps.Cookies, deps.Logger)
	requireAuth := middleware.RequireAuth(deps.Verifier, deps.Resolver, deps.Logger, deps.Metrics)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger, deps.Metrics))

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", userHandler.handleCreate)
		r.Post("/login", sessionHandler.handleLogin)
		r.Post("/refresh", sessionHandler.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/{id}", userHandler.handleGet)
			r.Put("/{id}", userHandler.handleUpdate)
			r.Delete("/{id}", userHandler.handleDelete)
			r.Post("/logout", sessionHandler.handleLogout)
		})
	})

	r.Get("/healthz", healthHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// healthHandler reports liveness, including a database ping when one is wired.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"db":     "unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
