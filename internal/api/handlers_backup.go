package api

import (
	"net/http"

	"spinlog/internal/backup"
)

func (r *Router) handleMaintenanceStatus(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance not configured")
		return
	}
	st, err := r.maintenance.Status(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (r *Router) handleOptimize(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance not configured")
		return
	}
	if err := r.maintenance.Optimize(req.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleCreateBackup(w http.ResponseWriter, req *http.Request) {
	if r.backup == nil {
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}
	snap, err := r.backup.Snapshot(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (r *Router) handleListBackups(w http.ResponseWriter, req *http.Request) {
	if r.backup == nil {
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}
	snaps, err := r.backup.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snaps == nil {
		snaps = []backup.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": snaps})
}

func (r *Router) handleDeleteBackup(w http.ResponseWriter, req *http.Request) {
	if r.backup == nil {
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}
	if err := r.backup.Delete(req.PathValue("filename")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
