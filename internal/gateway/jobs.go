package gateway

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/crondeck/internal/manager"
)

// handleListJobs serves GET /api/jobs. ?tag= filters by tag.
func (g *Gateway) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := g.manager.List(r.Context())
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if tag := r.URL.Query().Get("tag"); tag != "" {
			jobs = slices.DeleteFunc(jobs, func(j manager.JobView) bool {
				return !slices.Contains(j.Tags, tag)
			})
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}

func (g *Gateway) handleGetJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := g.manager.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func (g *Gateway) handleCreateJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec manager.JobSpec
		if err := decodeJSON(r, &spec); err != nil {
			g.writeError(w, r, err)
			return
		}
		job, err := g.manager.Create(r.Context(), spec)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, job)
	}
}

// handleUpdateJob serves PUT /api/jobs/{id}. The body replaces every
// editable field.
func (g *Gateway) handleUpdateJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec manager.JobSpec
		if err := decodeJSON(r, &spec); err != nil {
			g.writeError(w, r, err)
			return
		}
		job, err := g.manager.Update(r.Context(), chi.URLParam(r, "id"), spec)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func (g *Gateway) handleDeleteJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := g.manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			g.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleSetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := g.manager.SetEnabled(r.Context(), chi.URLParam(r, "id"), enabled)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func (g *Gateway) handleDuplicateJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := g.manager.Duplicate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, job)
	}
}

// handleRunJob serves POST /api/jobs/{id}/run. It blocks until the command
// exits; a failing command still answers 200 with its exit code.
func (g *Gateway) handleRunJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := g.manager.Run(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
