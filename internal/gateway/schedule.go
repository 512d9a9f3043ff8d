package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/flemzord/crondeck/internal/schedule"
)

// maxNextRuns caps ?count on /api/schedule/next.
const maxNextRuns = 100

type scheduleRequest struct {
	Schedule string `json:"schedule"`
}

type parseRequest struct {
	Text string `json:"text"`
}

type nextRunsResponse struct {
	Schedule string      `json:"schedule"`
	NextRuns []time.Time `json:"next_runs"`
}

type describeResponse struct {
	Schedule    string `json:"schedule"`
	Description string `json:"description"`
}

func (g *Gateway) handleValidateSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduleRequest
		if err := decodeJSON(r, &req); err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, schedule.Validate(req.Schedule))
	}
}

// handleNextRuns serves GET /api/schedule/next?schedule=...&count=N.
// An invalid schedule yields an empty list, not an error.
func (g *Gateway) handleNextRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := intParam(r, "count", 5)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if count > maxNextRuns {
			g.writeError(w, r, fmt.Errorf("%w: count must be at most %d", errBadRequest, maxNextRuns))
			return
		}
		expr := r.URL.Query().Get("schedule")
		writeJSON(w, http.StatusOK, nextRunsResponse{
			Schedule: expr,
			NextRuns: schedule.NextRuns(expr, count, time.Now()),
		})
	}
}

func (g *Gateway) handleDescribeSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expr := r.URL.Query().Get("schedule")
		writeJSON(w, http.StatusOK, describeResponse{Schedule: expr, Description: schedule.Describe(expr)})
	}
}

func (g *Gateway) handleParseSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req parseRequest
		if err := decodeJSON(r, &req); err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, schedule.FromNaturalLanguage(req.Text))
	}
}

func (g *Gateway) handlePresets() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, schedule.Presets())
	}
}

// handleRaw serves GET /api/raw: the installed crontab as plain text.
func (g *Gateway) handleRaw() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, err := g.manager.Raw(r.Context())
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(text))
	}
}
