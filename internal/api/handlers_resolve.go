package api

import (
	"net/http"
)

type resolveRequest struct {
	Artists []string `json:"artists"`
}

func (r *Router) handleResolve(w http.ResponseWriter, req *http.Request) {
	var body resolveRequest
	if err := readJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Artists) == 0 {
		writeError(w, http.StatusBadRequest, "artists is required")
		return
	}

	resolved, err := r.resolver.ResolveBatch(req.Context(), body.Artists)
	if err != nil {
		r.logger.Error("resolve failed", "count", len(body.Artists), "error", err)
		writeError(w, http.StatusInternalServerError, "resolve failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resolved": resolved})
}

func (r *Router) handleListSplits(w http.ResponseWriter, req *http.Request) {
	splits, err := r.resolver.PendingSplits(req.Context())
	if err != nil {
		r.logger.Error("listing splits", "error", err)
		writeError(w, http.StatusInternalServerError, "listing splits failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"splits": splits})
}

type splitActionRequest struct {
	RawArtist string `json:"raw_artist"`
}

func (r *Router) handleApproveSplit(w http.ResponseWriter, req *http.Request) {
	var body splitActionRequest
	if err := readJSON(req, &body); err != nil || body.RawArtist == "" {
		writeError(w, http.StatusBadRequest, "raw_artist is required")
		return
	}
	if err := r.resolver.ApproveSplit(req.Context(), body.RawArtist); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (r *Router) handleRejectSplit(w http.ResponseWriter, req *http.Request) {
	var body splitActionRequest
	if err := readJSON(req, &body); err != nil || body.RawArtist == "" {
		writeError(w, http.StatusBadRequest, "raw_artist is required")
		return
	}
	if err := r.resolver.RejectSplit(req.Context(), body.RawArtist); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
