package rest

import (
	"net/http"
	"time"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
	"github.com/baechuer/cityevents/services/analytics-service/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Cache    domain.CacheRepository
	Handler  *Handler
	Verifier security.AccessTokenVerifier

	JWTIssuer string

	RateLimitEnabled bool
	RateLimitMax     int
	RateLimitWindow  time.Duration
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}
	if d.Verifier == nil {
		panic("rest.NewRouter: nil verifier")
	}

	r := chi.NewRouter()

	// Request ID + structured access log
	r.Use(RequestID)
	r.Use(HTTPLogger)

	// Panic recovery
	r.Use(middleware.Recoverer)

	r.Use(SecurityHeaders)

	r.Get("/health", d.Handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Ingestion: the only write entry point into the pipeline.
		// Rate-limited per ip; everything else is cheap reads.
		r.Group(func(r chi.Router) {
			if d.RateLimitEnabled && d.Cache != nil {
				r.Use(RateLimitMiddleware(d.Cache, d.RateLimitMax, d.RateLimitWindow))
			}
			r.Post("/logs", d.Handler.Store)
		})

		// Reads
		r.Get("/logs", d.Handler.Index)
		r.Get("/logs/content/{contentID}", d.Handler.ContentLogs)
		r.Get("/logs/content/{contentID}/statistics", d.Handler.ContentStatistics)
		r.Get("/logs/session/{sessionID}", d.Handler.SessionLogs)
		r.Get("/logs/{id}", d.Handler.Show)

		// Administrative mutations
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Verifier, AuthOptions{ExpectedIssuer: d.JWTIssuer}))

			r.Put("/logs/{id}", d.Handler.Update)
			r.Delete("/logs/{id}", d.Handler.Destroy)
		})
	})

	return r
}
