package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/linemk/plugmarket-bot/internal/service"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeError ожидаемые виды ошибок логирует на warn, остальное на error и без подробностей наружу
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	kind := service.ErrorKind(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
		writeJSON(w, logger, status, ErrorResponse{Error: "internal server error", Kind: kind})
		return
	}
	logger.Warn("request rejected", slog.String("kind", kind), slog.Any("error", err))
	writeJSON(w, logger, status, ErrorResponse{Error: err.Error(), Kind: kind})
}
