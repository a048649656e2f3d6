package api

import (
	"errors"
	"net/http"

	"spinlog/internal/bridge"
)

func (r *Router) handleListReviews(w http.ResponseWriter, req *http.Request) {
	reviews, err := r.matcher.Reviews().Pending(req.Context())
	if err != nil {
		r.logger.Error("listing reviews", "error", err)
		writeError(w, http.StatusInternalServerError, "listing reviews failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (r *Router) handleConfirmReview(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	err := r.matcher.ConfirmReview(req.Context(), id)
	var dup *bridge.ErrDuplicateSignature
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":            "conflicting identity bridge signature",
			"signature":        dup.Signature,
			"existing_work_id": dup.ExistingWorkID,
			"new_work_id":      dup.NewWorkID,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (r *Router) handleDismissReview(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if err := r.matcher.DismissReview(req.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}
