package gateway

import (
	"fmt"
	"net/http"

	"github.com/flemzord/crondeck/internal/audit"
	"github.com/flemzord/crondeck/internal/backup"
)

type snapshotRequest struct {
	Reason string `json:"reason"`
}

type snapshotResponse struct {
	Backup backup.Backup `json:"backup"`
	Saved  bool          `json:"saved"`
}

type diffResponse struct {
	BackupID int64             `json:"backup_id"`
	Added    int               `json:"added"`
	Removed  int               `json:"removed"`
	Lines    []backup.DiffLine `json:"lines"`
}

type pruneResponse struct {
	Deleted int64 `json:"deleted"`
}

// withBackups answers 404 when backups are disabled.
func (g *Gateway) withBackups(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.backups == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "backups are disabled"})
			return
		}
		h(w, r)
	}
}

// handleListBackups serves GET /api/backups?limit=N.
func (g *Gateway) handleListBackups() http.HandlerFunc {
	return g.withBackups(func(w http.ResponseWriter, r *http.Request) {
		limit, err := intParam(r, "limit", 0)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		list, err := g.backups.List(r.Context(), limit)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if list == nil {
			list = []backup.Backup{}
		}
		writeJSON(w, http.StatusOK, list)
	})
}

// handleCreateBackup serves POST /api/backups. The body is optional.
func (g *Gateway) handleCreateBackup() http.HandlerFunc {
	return g.withBackups(func(w http.ResponseWriter, r *http.Request) {
		req := snapshotRequest{Reason: "manual"}
		if r.ContentLength > 0 {
			if err := decodeJSON(r, &req); err != nil {
				g.writeError(w, r, err)
				return
			}
		}
		b, saved, err := g.manager.Snapshot(r.Context(), req.Reason)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		status := http.StatusOK
		if saved {
			status = http.StatusCreated
		}
		b.Content = ""
		writeJSON(w, status, snapshotResponse{Backup: b, Saved: saved})
	})
}

func (g *Gateway) handleGetBackup() http.HandlerFunc {
	return g.withBackups(func(w http.ResponseWriter, r *http.Request) {
		id, err := backupID(r)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		b, err := g.backups.Get(r.Context(), id)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	})
}

// handleDiffBackup serves GET /api/backups/{id}/diff: the backup compared
// with the live crontab.
func (g *Gateway) handleDiffBackup() http.HandlerFunc {
	return g.withBackups(func(w http.ResponseWriter, r *http.Request) {
		id, err := backupID(r)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		b, err := g.backups.Get(r.Context(), id)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		current, err := g.manager.Raw(r.Context())
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		lines := backup.Diff(b.Content, current)
		added, removed := backup.Stats(lines)
		writeJSON(w, http.StatusOK, diffResponse{BackupID: id, Added: added, Removed: removed, Lines: lines})
	})
}

// handleRestoreBackup serves POST /api/backups/{id}/restore. The crontab
// being replaced is snapshotted by the manager first.
func (g *Gateway) handleRestoreBackup() http.HandlerFunc {
	return g.withBackups(func(w http.ResponseWriter, r *http.Request) {
		id, err := backupID(r)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		b, err := g.backups.Get(r.Context(), id)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if err := g.manager.Restore(r.Context(), b.Content, fmt.Sprintf("restore of backup %d", id)); err != nil {
			g.writeError(w, r, err)
			return
		}
		b.Content = ""
		writeJSON(w, http.StatusOK, b)
	})
}

// handlePruneBackups serves POST /api/backups/prune?keep=N.
func (g *Gateway) handlePruneBackups() http.HandlerFunc {
	return g.withBackups(func(w http.ResponseWriter, r *http.Request) {
		keep, err := intParam(r, "keep", -1)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if keep < 0 {
			g.writeError(w, r, fmt.Errorf("%w: keep is required", errBadRequest))
			return
		}
		deleted, err := g.backups.Prune(r.Context(), keep)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		g.audit.Record(audit.Event{
			Action: audit.BackupPrune,
			Source: "api",
			Fields: map[string]string{
				"keep":    fmt.Sprint(keep),
				"deleted": fmt.Sprint(deleted),
			},
		})
		writeJSON(w, http.StatusOK, pruneResponse{Deleted: deleted})
	})
}
