package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/flemzord/crondeck/internal/logtail"
	"github.com/flemzord/crondeck/internal/manager"
)

// defaultBacklog is how many existing lines a log stream starts with.
const defaultBacklog = 100

// handleJobLogs serves GET /ws/jobs/{id}/logs?backlog=N: the job's log file
// streamed over a WebSocket, one text message per line, until the client
// disconnects.
func (g *Gateway) handleJobLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		backlog, err := intParam(r, "backlog", defaultBacklog)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		job, err := g.manager.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if job.LogFile == "" {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("job %s has no log file", job.ID)})
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Warn("websocket accept failed", "error", err)
			return
		}

		// CloseRead discards client messages and cancels ctx once the
		// client goes away.
		ctx := conn.CloseRead(r.Context())

		g.logger.Debug("log stream opened", "id", job.ID, "path", job.LogFile)
		follower := logtail.New(logtail.Config{
			Path:         manager.ExpandHome(job.LogFile),
			PollInterval: g.config.LogPollInterval,
			Backlog:      backlog,
		})
		err = follower.Follow(ctx, func(line string) error {
			return conn.Write(ctx, websocket.MessageText, []byte(line))
		})

		switch {
		case err == nil, errors.Is(err, context.Canceled), ctx.Err() != nil:
			_ = conn.Close(websocket.StatusNormalClosure, "")
		default:
			g.logger.Warn("log stream failed", "id", job.ID, "error", err)
			_ = conn.Close(websocket.StatusInternalError, "log stream failed")
		}
	}
}
