package gateway

import (
	"net/http"

	"github.com/flemzord/crondeck/internal/crontab"
)

type envPatch struct {
	Set   map[string]string `json:"set"`
	Unset []string          `json:"unset"`
}

func (g *Gateway) handleGetEnv() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := g.manager.GlobalEnv(r.Context())
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if env == nil {
			env = crontab.GlobalEnv{}
		}
		writeJSON(w, http.StatusOK, env)
	}
}

// handlePutEnv serves PUT /api/env. The body replaces the whole global
// environment.
func (g *Gateway) handlePutEnv() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var env map[string]string
		if err := decodeJSON(r, &env); err != nil {
			g.writeError(w, r, err)
			return
		}
		if err := g.manager.SetGlobalEnv(r.Context(), env); err != nil {
			g.writeError(w, r, err)
			return
		}
		g.handleGetEnv()(w, r)
	}
}

// handlePatchEnv serves PATCH /api/env with {"set": {...}, "unset": [...]}.
func (g *Gateway) handlePatchEnv() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch envPatch
		if err := decodeJSON(r, &patch); err != nil {
			g.writeError(w, r, err)
			return
		}
		if err := g.manager.PatchGlobalEnv(r.Context(), patch.Set, patch.Unset, false); err != nil {
			g.writeError(w, r, err)
			return
		}
		g.handleGetEnv()(w, r)
	}
}
