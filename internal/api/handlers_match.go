package api

import (
	"errors"
	"net/http"

	"spinlog/internal/bridge"
	"spinlog/internal/matcher"
)

type matchRequest struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

func (r *Router) handleMatch(w http.ResponseWriter, req *http.Request) {
	var body matchRequest
	if err := readJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Artist == "" && body.Title == "" {
		writeError(w, http.StatusBadRequest, "artist or title is required")
		return
	}

	result, err := r.matcher.FindMatch(req.Context(), body.Artist, body.Title)
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
		r.logger.Error("match failed", "artist", body.Artist, "title", body.Title, "error", err)
		writeError(w, http.StatusInternalServerError, "match failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type matchBatchRequest struct {
	Pairs []matchRequest `json:"pairs"`
}

type matchBatchItem struct {
	Artist string         `json:"artist"`
	Title  string         `json:"title"`
	Result matcher.Result `json:"result"`
	Error  string         `json:"error,omitempty"`
}

func (r *Router) handleMatchBatch(w http.ResponseWriter, req *http.Request) {
	var body matchBatchRequest
	if err := readJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Pairs) == 0 {
		writeError(w, http.StatusBadRequest, "pairs is required")
		return
	}

	pairs := make([]matcher.Pair, len(body.Pairs))
	for i, p := range body.Pairs {
		pairs[i] = matcher.Pair{Artist: p.Artist, Title: p.Title}
	}

	results, err := r.matcher.MatchBatch(req.Context(), pairs)
	if err != nil {
		r.logger.Error("batch match failed", "pairs", len(pairs), "error", err)
		writeError(w, http.StatusInternalServerError, "batch match failed")
		return
	}

	items := make([]matchBatchItem, len(pairs))
	for i, p := range pairs {
		res := results[p]
		items[i] = matchBatchItem{Artist: p.Artist, Title: p.Title, Result: res}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": items})
}
