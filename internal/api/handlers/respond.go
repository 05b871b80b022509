package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write response failed", "error", err)
	}
}

// writeError reports every failure as 400 {"detail": ...}; clients do not branch on error class.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Warn("request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, logger, http.StatusBadRequest, errorResponse{Detail: err.Error()})
}
