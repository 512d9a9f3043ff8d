package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"` // "ok" or "degraded"
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 if the crontab can be read, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Version: g.version,
			Uptime:  time.Since(g.startedAt).Round(time.Second).String(),
		}

		status := http.StatusOK
		if g.manager != nil {
			if _, err := g.manager.Raw(r.Context()); err != nil {
				resp.Status = "degraded"
				resp.Error = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, resp)
	}
}
