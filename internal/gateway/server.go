package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/crondeck/internal/manager"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(g.metrics.middleware)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if g.config.RateLimit > 0 {
			r.Use(rateLimitMiddleware(newRateLimiter(g.config.RateLimit, time.Minute)))
		}
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.audit))
		}
		r.Use(apiSource)

		r.Route("/api", func(r chi.Router) {
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", g.handleListJobs())
				r.Post("/", g.handleCreateJob())
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", g.handleGetJob())
					r.Put("/", g.handleUpdateJob())
					r.Delete("/", g.handleDeleteJob())
					r.Post("/enable", g.handleSetEnabled(true))
					r.Post("/disable", g.handleSetEnabled(false))
					r.Post("/duplicate", g.handleDuplicateJob())
					r.Post("/run", g.handleRunJob())
				})
			})

			r.Get("/env", g.handleGetEnv())
			r.Put("/env", g.handlePutEnv())
			r.Patch("/env", g.handlePatchEnv())

			r.Post("/schedule/validate", g.handleValidateSchedule())
			r.Get("/schedule/next", g.handleNextRuns())
			r.Get("/schedule/describe", g.handleDescribeSchedule())
			r.Post("/schedule/parse", g.handleParseSchedule())
			r.Get("/presets", g.handlePresets())

			r.Get("/raw", g.handleRaw())

			r.Route("/backups", func(r chi.Router) {
				r.Get("/", g.handleListBackups())
				r.Post("/", g.handleCreateBackup())
				r.Post("/prune", g.handlePruneBackups())
				r.Get("/{id}", g.handleGetBackup())
				r.Get("/{id}/diff", g.handleDiffBackup())
				r.Post("/{id}/restore", g.handleRestoreBackup())
			})
		})

		r.Get("/ws/jobs/{id}/logs", g.handleJobLogs())
	})

	return r
}

// apiSource tags requests so manager audit events record the API as their
// origin.
func apiSource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(manager.WithSource(r.Context(), manager.SourceAPI)))
	})
}
