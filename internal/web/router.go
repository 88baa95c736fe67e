// Package web is the local web shell: page view-models for the Tracker
// client served as JSON on a loopback address.
package web

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/session"
	"github.com/trackerhq/tracker/internal/web/handler"
	"github.com/trackerhq/tracker/internal/web/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version string
	APIURL  string
	Logger  zerolog.Logger
	Metrics *middleware.Metrics
	// LocalOnly rejects requests addressed to non-loopback hosts.
	LocalOnly bool

	Gate      *session.Gate
	Sessions  *handler.SessionHandler
	Issues    *handler.IssueHandler
	Playbooks *handler.PlaybookHandler
	Health    *handler.HealthHandler
	Reports   *handler.ReportHandler
}

// NewRouter creates the chi router with every shell route.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LocalOnly(cfg.LocalOnly))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.ContentTypeJSON)

	ops := handler.NewOpsHandler(cfg.Version, cfg.APIURL)
	requireSession := middleware.RequireSession(cfg.Gate)

	// Public
	r.Get("/healthz", ops.HealthCheck)
	r.Get("/session", cfg.Sessions.Session)
	r.With(middleware.RateLimitByIP(middleware.LoginRateLimit), middleware.RequireJSON).
		Post("/login", cfg.Sessions.Login)

	// Behind the login gate
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))

		r.With(middleware.RateLimitByIP(middleware.UploadRateLimit)).
			Post("/images", cfg.Reports.UploadImage)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireJSON)

			r.Post("/logout", cfg.Sessions.Logout)
			r.Get("/prefs", cfg.Sessions.GetPrefs)
			r.Put("/prefs", cfg.Sessions.UpdatePrefs)

			r.Route("/issues", func(r chi.Router) {
				r.Get("/", cfg.Issues.ListIssues)
				r.Post("/", cfg.Issues.CreateIssue)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.Issues.GetIssue)
					r.Post("/events", cfg.Issues.AppendEvent)
					r.Put("/events/{eventId}", cfg.Issues.EditEvent)
					r.Put("/status", cfg.Issues.SetStatus)
					r.Put("/checklists/{playbookId}/{step}", cfg.Issues.ToggleStep)
				})
			})

			r.Route("/playbooks", func(r chi.Router) {
				r.Get("/", cfg.Playbooks.ListPlaybooks)
				r.Post("/", cfg.Playbooks.CreatePlaybook)
				r.Get("/{id}", cfg.Playbooks.GetPlaybook)
				r.Put("/{id}", cfg.Playbooks.UpdatePlaybook)
			})

			r.Route("/health", func(r chi.Router) {
				r.Get("/", cfg.Health.ListEndpoints)
				r.Post("/", cfg.Health.RegisterEndpoint)
				r.Get("/{id}", cfg.Health.GetEndpoint)
				r.Put("/{id}", cfg.Health.UpdateEndpoint)
				r.Delete("/{id}", cfg.Health.DeleteEndpoint)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", cfg.Reports.ListReports)
				r.Post("/", cfg.Reports.CreateReport)
				r.Get("/{id}", cfg.Reports.GetReport)
				r.Put("/{id}", cfg.Reports.UpdateReport)
				r.Delete("/{id}", cfg.Reports.DeleteReport)
			})
		})
	})

	return r
}
