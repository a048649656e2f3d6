package api

import (
	"net/http"

	"spinlog/internal/event"
	"spinlog/internal/textnorm"
)

// bridgeSignature derives the lookup signature from either an explicit
// signature parameter or a raw artist/title pair.
func bridgeSignature(sig, artist, title string) string {
	if sig != "" {
		return sig
	}
	if artist == "" && title == "" {
		return ""
	}
	return textnorm.Signature(artist, title)
}

func (r *Router) handleGetBridge(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	sig := bridgeSignature(q.Get("signature"), q.Get("artist"), q.Get("title"))
	if sig == "" {
		writeError(w, http.StatusBadRequest, "signature or artist/title is required")
		return
	}

	entry, err := r.bridge.Get(req.Context(), sig)
	if err != nil {
		r.logger.Error("getting bridge entry", "signature", sig, "error", err)
		writeError(w, http.StatusInternalServerError, "getting bridge entry failed")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "no bridge entry for signature")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type revokeBridgeRequest struct {
	Signature string `json:"signature"`
	Artist    string `json:"artist"`
	Title     string `json:"title"`
}

func (r *Router) handleRevokeBridge(w http.ResponseWriter, req *http.Request) {
	var body revokeBridgeRequest
	if err := readJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sig := bridgeSignature(body.Signature, body.Artist, body.Title)
	if sig == "" {
		writeError(w, http.StatusBadRequest, "signature or artist/title is required")
		return
	}

	entry, err := r.bridge.Get(req.Context(), sig)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "revoking bridge entry failed")
		return
	}
	if entry == nil || entry.Revoked {
		writeError(w, http.StatusNotFound, "no active bridge entry for signature")
		return
	}

	if err := r.bridge.Revoke(req.Context(), sig); err != nil {
		r.logger.Error("revoking bridge entry", "signature", sig, "error", err)
		writeError(w, http.StatusInternalServerError, "revoking bridge entry failed")
		return
	}
	r.logger.Info("bridge entry revoked", "signature", sig, "work_id", entry.WorkID)
	if r.bus != nil {
		r.bus.Publish(event.Event{
			Type: event.BridgeRevoked,
			Data: map[string]any{"signature": sig, "work_id": entry.WorkID},
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked", "signature": sig})
}
