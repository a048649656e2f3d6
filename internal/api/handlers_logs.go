package api

import (
	"net/http"
)

// handleImportLogs accepts a station CSV export as the request body and
// imports its rows as unlinked broadcast logs.
func (r *Router) handleImportLogs(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close() //nolint:errcheck

	result, err := r.playlog.ImportCSV(req.Context(), req.Body, r.station, r.logger, r.bus)
	if err != nil {
		r.logger.Error("importing broadcast logs", "error", err)
		writeError(w, http.StatusBadRequest, "import failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleUnlinkedCount(w http.ResponseWriter, req *http.Request) {
	count, err := r.playlog.CountUnlinked(req.Context())
	if err != nil {
		r.logger.Error("counting unlinked logs", "error", err)
		writeError(w, http.StatusInternalServerError, "counting unlinked logs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unlinked": count})
}

func (r *Router) handleGetWork(w http.ResponseWriter, req *http.Request) {
	work, err := r.catalog.GetWork(req.Context(), req.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "work not found")
		return
	}
	writeJSON(w, http.StatusOK, work)
}

func (r *Router) handleWorkLogs(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if _, err := r.catalog.GetWork(req.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "work not found")
		return
	}
	logs, err := r.playlog.ForWork(req.Context(), id)
	if err != nil {
		r.logger.Error("listing work logs", "work_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "listing logs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (r *Router) handlePromote(w http.ResponseWriter, req *http.Request) {
	promoted, err := r.matcher.ScanAndPromote(req.Context())
	if err != nil {
		r.logger.Error("promotion sweep failed", "error", err)
		writeError(w, http.StatusInternalServerError, "promotion sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"promoted": promoted})
}

func (r *Router) handleLinkOrphans(w http.ResponseWriter, req *http.Request) {
	linked, err := r.matcher.LinkOrphanedLogs(req.Context())
	if err != nil {
		r.logger.Error("orphan link sweep failed", "error", err)
		writeError(w, http.StatusInternalServerError, "orphan link sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"linked": linked})
}
