package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/baechuer/eventhub/internal/domain"
	"github.com/baechuer/eventhub/internal/transport/http/handlers"
	"github.com/baechuer/eventhub/internal/transport/http/middleware"
	"github.com/baechuer/eventhub/internal/transport/http/response"
)

type Config struct {
	CORSAllowedOrigins []string

	// global per-IP limit, in process
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	// Redis fixed window on /auth
	AuthRLLimit  int
	AuthRLWindow time.Duration
}

type Deps struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Events        *handlers.EventsHandler
	Registrations *handlers.RegistrationsHandler

	Verifier middleware.TokenVerifier
	Limiter  middleware.RateLimiter // optional
	Metrics  http.Handler
}

func New(deps Deps, cfg Config) (http.Handler, error) {
	if deps.Health == nil || deps.Auth == nil || deps.Events == nil || deps.Registrations == nil {
		return nil, fmt.Errorf("router: nil handler")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("router: nil token verifier")
	}

	writeErr := response.WriteError
	authMW := middleware.Auth(deps.Verifier, writeErr)
	adminMW := middleware.RequireRole(domain.RoleAdmin, writeErr)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderXRequestID},
		ExposedHeaders:   []string{middleware.HeaderXRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	if cfg.RLEnabled && cfg.RLLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RLLimit, cfg.RLWindow))
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	authRL := func(route string) func(http.Handler) http.Handler {
		return middleware.RateLimitFixedWindow(deps.Limiter, middleware.FixedWindowConfig{
			RouteKey: route,
			Limit:    cfg.AuthRLLimit,
			Window:   cfg.AuthRLWindow,
		}, writeErr)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authRL("signup")).Post("/signup", deps.Auth.Signup)
			r.With(authRL("login")).Post("/login", deps.Auth.Login)
			r.With(authRL("refresh")).Post("/refresh", deps.Auth.Refresh)
			r.Post("/logout", deps.Auth.Logout)
			r.With(authMW).Get("/me", deps.Auth.Me)
		})

		r.Get("/events", deps.Events.List)
		r.Get("/events/{id}", deps.Events.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Post("/events/{id}/registrations", deps.Registrations.Submit)
			r.Get("/registrations/me", deps.Registrations.ListMine)

			r.Group(func(r chi.Router) {
				r.Use(adminMW)
				r.Post("/events", deps.Events.Create)
				r.Post("/events/{id}/image", deps.Events.UploadImage)
				r.Get("/registrations", deps.Registrations.ListAll)
				r.Post("/registrations/{id}/approve", deps.Registrations.Approve)
				r.Post("/registrations/{id}/reject", deps.Registrations.Reject)
			})
		})
	})

	return r, nil
}
