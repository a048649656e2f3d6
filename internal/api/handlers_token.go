package api

import (
	"net/http"
)

func (r *Router) handleListTokens(w http.ResponseWriter, req *http.Request) {
	tokens, err := r.authService.List(req.Context())
	if err != nil {
		r.logger.Error("listing tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "listing tokens failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

type issueTokenRequest struct {
	Name string `json:"name"`
}

func (r *Router) handleIssueToken(w http.ResponseWriter, req *http.Request) {
	var body issueTokenRequest
	if err := readJSON(req, &body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	token, err := r.authService.Issue(req.Context(), body.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// The clear-text token appears in this response only.
	writeJSON(w, http.StatusCreated, map[string]string{"name": body.Name, "token": token})
}

func (r *Router) handleRevokeToken(w http.ResponseWriter, req *http.Request) {
	if err := r.authService.Revoke(req.Context(), req.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
