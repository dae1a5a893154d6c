package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/linemk/plugmarket-bot/internal/service"
)

type Reporter interface {
	Build(ctx context.Context, period string) (*service.Report, error)
}

// ReportHandler обрабатывает GET /api/report?period=
func ReportHandler(log *slog.Logger, orders AdminOrderService, reports Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ReportHandler"
		logger := log.With(slog.String("op", op))

		if _, ok := adminFromContext(w, r, orders); !ok {
			return
		}

		report, err := reports.Build(r.Context(), r.URL.Query().Get("period"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, report)
	}
}
