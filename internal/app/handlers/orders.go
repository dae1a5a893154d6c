package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/linemk/plugmarket-bot/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/plugmarket-bot/internal/service"
)

// AdminOrderService операции над заказами, доступные через HTTP
type AdminOrderService interface {
	Lookup(ctx context.Context, orderID string) (*models.Order, bool, error)
	AdminConfirm(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	AdminReject(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	AdminMarkDelivered(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	AdminDecline(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	Cancel(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	IsAdmin(actorID int64) bool
}

// OrderResponse заказ и признак того, что он уже в архиве
type OrderResponse struct {
	Order    *models.Order `json:"order"`
	Archived bool          `json:"archived"`
}

// GetOrderHandler обрабатывает GET /api/orders/{id}; архивные заказы тоже видны
func GetOrderHandler(log *slog.Logger, orders AdminOrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		actorID, ok := adminFromContext(w, r, orders)
		if !ok {
			return
		}
		orderID := chi.URLParam(r, "id")
		logger = logger.With(slog.String("orderID", orderID), slog.Int64("actorID", actorID))

		order, archived, err := orders.Lookup(r.Context(), orderID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, OrderResponse{Order: order, Archived: archived})
	}
}

// OrderActionHandler обрабатывает POST /api/orders/{id}/{action}
func OrderActionHandler(log *slog.Logger, orders AdminOrderService) http.HandlerFunc {
	actions := map[string]func(ctx context.Context, actorID int64, orderID string) (*models.Order, error){
		"confirm": orders.AdminConfirm,
		"reject":  orders.AdminReject,
		"deliver": orders.AdminMarkDelivered,
		"decline": orders.AdminDecline,
		"cancel":  orders.Cancel,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderActionHandler"
		logger := log.With(slog.String("op", op))

		action := chi.URLParam(r, "action")
		do, ok := actions[action]
		if !ok {
			logger.Warn("unknown action", slog.String("action", action))
			http.Error(w, "unknown action", http.StatusNotFound)
			return
		}

		// авторизацию проверяет сервис после проверки существования заказа
		actorID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("actorID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		orderID := chi.URLParam(r, "id")
		logger = logger.With(slog.String("orderID", orderID), slog.String("action", action), slog.Int64("actorID", actorID))

		order, err := do(r.Context(), actorID, orderID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		archived := order.Status.Terminal()
		writeJSON(w, logger, http.StatusOK, OrderResponse{Order: order, Archived: archived})
	}
}

// adminFromContext достаёт актора из токена и проверяет, что это админ
func adminFromContext(w http.ResponseWriter, r *http.Request, orders AdminOrderService) (int64, bool) {
	actorID, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	if !orders.IsAdmin(actorID) {
		http.Error(w, service.ErrUnauthorized.Error(), http.StatusForbidden)
		return 0, false
	}
	return actorID, true
}

// statusFor HTTP-статус для вида ошибки сервиса
func statusFor(err error) int {
	var infoErr *service.DeliveryInfoError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrOrderInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidSelection), errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrMissingProof), errors.Is(err, service.ErrInvalidPeriod),
		errors.As(err, &infoErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
