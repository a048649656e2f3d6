package api

import (
	"net/http"

	"spinlog/internal/logging"
)

func (r *Router) handleGetThresholds(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.settings.Thresholds())
}

type thresholdUpdateRequest struct {
	Values map[string]string `json:"values"`
}

func (r *Router) handleSetThresholds(w http.ResponseWriter, req *http.Request) {
	var body thresholdUpdateRequest
	if err := readJSON(req, &body); err != nil || len(body.Values) == 0 {
		writeError(w, http.StatusBadRequest, "values is required")
		return
	}

	for key, value := range body.Values {
		if err := r.settings.Set(req.Context(), key, value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	r.logger.Info("matching thresholds updated", "count", len(body.Values))
	writeJSON(w, http.StatusOK, r.settings.Thresholds())
}

func (r *Router) handleGetLogging(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.logManager.Config())
}

func (r *Router) handleSetLogging(w http.ResponseWriter, req *http.Request) {
	var cfg logging.Config
	if err := readJSON(req, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !logging.ValidLevel(cfg.Level) {
		writeError(w, http.StatusBadRequest, "invalid log level")
		return
	}
	if !logging.ValidFormat(cfg.Format) {
		writeError(w, http.StatusBadRequest, "invalid log format")
		return
	}

	r.logManager.Reconfigure(cfg)
	r.logger.Info("logging reconfigured", "level", cfg.Level, "format", cfg.Format)
	writeJSON(w, http.StatusOK, r.logManager.Config())
}
