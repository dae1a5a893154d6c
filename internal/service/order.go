package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/plugmarket-bot/internal/catalog"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/linemk/plugmarket-bot/internal/metrics"
	"github.com/linemk/plugmarket-bot/internal/storage"
)

// Notifier принимает структурированные события о переходах; текст формирует он сам.
type Notifier interface {
	Notify(ctx context.Context, event models.Event) error
}

// CreateRequest данные для создания заказа
type CreateRequest struct {
	BuyerID   int64
	BuyerName string
	Product   string
	Selection models.Selection
}

// Options настройки менеджера заказов
type Options struct {
	AdminID int64
	Methods []models.PaymentMethod
	// Clock и NewID подменяются в тестах
	Clock func() time.Time
	NewID func() string
}

// OrderService управляет жизненным циклом заказа:
// создание, переходы состояний, проверки, решения админа и архивация.
type OrderService struct {
	log      *slog.Logger
	orders   storage.OrderStorage
	notifier Notifier
	catalog  *catalog.Catalog
	adminID  int64
	methods  []models.PaymentMethod
	locks    *keyedMutex
	now      func() time.Time
	newID    func() string
}

func NewOrderService(log *slog.Logger, orders storage.OrderStorage, notifier Notifier, cat *catalog.Catalog, opts Options) *OrderService {
	s := &OrderService{
		log:      log,
		orders:   orders,
		notifier: notifier,
		catalog:  cat,
		adminID:  opts.AdminID,
		methods:  opts.Methods,
		locks:    newKeyedMutex(),
		now:      opts.Clock,
		newID:    opts.NewID,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	return s
}

// IsAdmin проверяет, что actorID - настроенный админ
func (s *OrderService) IsAdmin(actorID int64) bool {
	return actorID == s.adminID
}

// Catalog продуктовые линейки, с которыми работает менеджер
func (s *OrderService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Methods допустимые способы оплаты
func (s *OrderService) Methods() []models.PaymentMethod {
	return s.methods
}

type actorRule int

const (
	actorBuyer actorRule = iota
	actorAdmin
	actorBuyerOrAdmin
)

type transition struct {
	op        string
	from      []models.Status
	to        models.Status
	actor     actorRule
	event     models.EventKind
	audiences []models.Audience
}

var nonTerminal = []models.Status{
	models.StatusCreated,
	models.StatusAwaitingProof,
	models.StatusAwaitingAdminReview,
	models.StatusPaymentRejected,
	models.StatusAwaitingDeliveryInfo,
	models.StatusDeliveryInfoSubmitted,
}

var (
	choosePaymentMethod = transition{
		op:        "service.OrderService.ChoosePaymentMethod",
		from:      []models.Status{models.StatusCreated},
		to:        models.StatusAwaitingProof,
		actor:     actorBuyer,
		event:     models.EventMethodChosen,
		audiences: []models.Audience{models.AudienceBuyer},
	}
	// повторная отправка перезаписывает прежнее подтверждение, пока админ не принял решение
	submitProof = transition{
		op:        "service.OrderService.SubmitProof",
		from:      []models.Status{models.StatusAwaitingProof, models.StatusAwaitingAdminReview, models.StatusPaymentRejected},
		to:        models.StatusAwaitingAdminReview,
		actor:     actorBuyer,
		event:     models.EventProofSubmitted,
		audiences: []models.Audience{models.AudienceAdmin, models.AudienceBuyer},
	}
	adminReject = transition{
		op:        "service.OrderService.AdminReject",
		from:      []models.Status{models.StatusAwaitingAdminReview},
		to:        models.StatusPaymentRejected,
		actor:     actorAdmin,
		event:     models.EventPaymentRejected,
		audiences: []models.Audience{models.AudienceBuyer},
	}
	adminConfirm = transition{
		op:        "service.OrderService.AdminConfirm",
		from:      []models.Status{models.StatusAwaitingAdminReview},
		to:        models.StatusAwaitingDeliveryInfo,
		actor:     actorAdmin,
		event:     models.EventPaymentConfirmed,
		audiences: []models.Audience{models.AudienceBuyer},
	}
	submitDeliveryInfo = transition{
		op:        "service.OrderService.SubmitDeliveryInfo",
		from:      []models.Status{models.StatusAwaitingDeliveryInfo},
		to:        models.StatusDeliveryInfoSubmitted,
		actor:     actorBuyer,
		event:     models.EventDeliverySubmitted,
		audiences: []models.Audience{models.AudienceAdmin, models.AudienceBuyer},
	}
	adminMarkDelivered = transition{
		op:        "service.OrderService.AdminMarkDelivered",
		from:      []models.Status{models.StatusDeliveryInfoSubmitted},
		to:        models.StatusCompleted,
		actor:     actorAdmin,
		event:     models.EventCompleted,
		audiences: []models.Audience{models.AudienceBuyer, models.AudienceAdmin},
	}
	adminDecline = transition{
		op:        "service.OrderService.AdminDecline",
		from:      nonTerminal,
		to:        models.StatusDeclined,
		actor:     actorAdmin,
		event:     models.EventDeclined,
		audiences: []models.Audience{models.AudienceBuyer},
	}
	cancelOrder = transition{
		op:        "service.OrderService.Cancel",
		from:      nonTerminal,
		to:        models.StatusCancelled,
		actor:     actorBuyerOrAdmin,
		event:     models.EventCancelled,
		audiences: []models.Audience{models.AudienceBuyer, models.AudienceAdmin},
	}
)

// Create создаёт заказ по выбору покупателя.
// Незавершённый заказ того же покупателя по той же линейке, ещё не отправленный на проверку оплаты,
// отменяется; если оплата уже на проверке или дальше - возвращается ErrOrderInProgress.
func (s *OrderService) Create(ctx context.Context, req CreateRequest) (*models.Order, error) {
	const op = "service.OrderService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("buyerID", req.BuyerID), slog.String("product", req.Product))

	order, err := s.create(ctx, logger, req)
	if err != nil {
		s.fail(logger, op, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.OrdersCreatedTotal.WithLabelValues(order.Product).Inc()
	logger.Info("order created", slog.String("orderID", order.ID), slog.String("amount", order.Quote.Amount.String()))
	s.emit(ctx, logger, models.EventCreated, []models.Audience{models.AudienceBuyer}, req.BuyerID, order)
	return order, nil
}

func (s *OrderService) create(ctx context.Context, logger *slog.Logger, req CreateRequest) (*models.Order, error) {
	line, ok := s.catalog.Line(req.Product)
	if !ok {
		return nil, fmt.Errorf("%w: unknown product %q", ErrInvalidSelection, req.Product)
	}
	sel := req.Selection
	sel.Description = strings.TrimSpace(sel.Description)
	sel.Package = strings.TrimSpace(sel.Package)
	if sel.Description == "" && sel.Package == "" && sel.Units.IsZero() {
		return nil, fmt.Errorf("%w: empty selection", ErrInvalidSelection)
	}
	quote, err := line.Quote(&sel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}

	unlock := s.locks.Lock(fmt.Sprintf("buyer:%d:%s", req.BuyerID, req.Product))
	defer unlock()

	if err := s.supersede(ctx, logger, req.BuyerID, req.Product); err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		ID:        s.newID(),
		BuyerID:   req.BuyerID,
		BuyerName: req.BuyerName,
		Product:   line.Code,
		Selection: sel,
		Quote:     quote,
		Status:    models.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	return order, nil
}

// supersede отменяет брошенный до оплаты заказ, чтобы у покупателя оставался один активный
func (s *OrderService) supersede(ctx context.Context, logger *slog.Logger, buyerID int64, product string) error {
	active, err := s.orders.GetActiveOrder(ctx, buyerID, product)
	if errors.Is(err, storage.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get active order: %w", err)
	}

	unlock := s.locks.Lock(active.ID)
	defer unlock()

	// пока ждали блокировку, заказ мог уйти в архив через отмену или отказ админа
	active, err = s.orders.GetOrder(ctx, active.ID)
	if errors.Is(err, storage.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reload active order: %w", err)
	}
	if active.Status.Terminal() {
		return nil
	}

	switch active.Status {
	case models.StatusCreated, models.StatusAwaitingProof:
	default:
		return fmt.Errorf("%w: order %s is %s", ErrOrderInProgress, active.ID, active.Status)
	}

	active.Status = models.StatusCancelled
	active.UpdatedAt = s.now()
	if err := s.orders.SaveOrder(ctx, active); err != nil {
		return fmt.Errorf("failed to cancel superseded order: %w", err)
	}
	if err := s.orders.ArchiveOrder(ctx, active.ID); err != nil {
		return fmt.Errorf("failed to archive superseded order: %w", err)
	}
	metrics.OrdersArchivedTotal.WithLabelValues(string(active.Status)).Inc()
	logger.Info("superseded order cancelled", slog.String("orderID", active.ID))
	// только в трекер: покупатель уже начал новый заказ
	s.emit(ctx, logger, models.EventCancelled, nil, buyerID, active)
	return nil
}

// ChoosePaymentMethod фиксирует способ оплаты; дальше ждём подтверждение оплаты
func (s *OrderService) ChoosePaymentMethod(ctx context.Context, actorID int64, orderID string, method models.PaymentMethod) (*models.Order, error) {
	return s.apply(ctx, actorID, orderID, choosePaymentMethod, func(o *models.Order) error {
		if !slices.Contains(s.methods, method) {
			return fmt.Errorf("%w: %q", ErrInvalidMethod, method)
		}
		o.PaymentMethod = method
		return nil
	})
}

// SubmitProof сохраняет ссылку на подтверждение оплаты, последнее побеждает
func (s *OrderService) SubmitProof(ctx context.Context, actorID int64, orderID, ref string) (*models.Order, error) {
	return s.apply(ctx, actorID, orderID, submitProof, func(o *models.Order) error {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return ErrMissingProof
		}
		o.ProofRef = ref
		return nil
	})
}

// AdminReject - оплата не найдена, покупатель может прислать подтверждение заново
func (s *OrderService) AdminReject(ctx context.Context, actorID int64, orderID string) (*models.Order, error) {
	return s.apply(ctx, actorID, orderID, adminReject, nil)
}

// AdminConfirm - оплата получена, просим у покупателя данные доставки
func (s *OrderService) AdminConfirm(ctx context.Context, actorID int64, orderID string) (*models.Order, error) {
	return s.apply(ctx, actorID, orderID, adminConfirm, nil)
}

// SubmitDeliveryInfo проверяет данные доставки по схеме линейки.
// При ошибке заказ остаётся в awaiting_delivery_info, а ошибка содержит *DeliveryInfoError.
func (s *OrderService) SubmitDeliveryInfo(ctx context.Context, actorID int64, orderID string, target models.DeliveryTarget) (*models.Order, error) {
	return s.apply(ctx, actorID, orderID, submitDeliveryInfo, func(o *models.Order) error {
		line, ok := s.catalog.Line(o.Product)
		if !ok {
			return fmt.Errorf("product line %q is not configured", o.Product)
		}
		normalized := line.NormalizeDelivery(target)
		missing, invalid := line.ValidateDelivery(normalized)
		if len(missing) > 0 || len(invalid) > 0 {
			return &DeliveryInfoError{Missing: missing, Invalid: invalid}
		}
		o.Delivery = normalized
		return nil
	})
}

// AdminMarkDelivered завершает заказ и переносит его в архив
func (s *OrderService) AdminMarkDelivered(ctx context.Context, actorID int64, orderID string) (*models.Order, error) {
	return s.apply(ctx, actorID, orderID, adminMarkDelivered, nil)
}

// AdminDecline - админ отказывает в заказе на любом незавершённом шаге
func (s *OrderService) AdminDecline(ctx context.Context, actorID int64, orderID string) (*models.Order, error) {
	return s.apply(ctx, actorID, orderID, adminDecline, nil)
}

// Cancel отменяет заказ по просьбе покупателя или админа
func (s *OrderService) Cancel(ctx context.Context, actorID int64, orderID string) (*models.Order, error) {
	return s.apply(ctx, actorID, orderID, cancelOrder, nil)
}

// GetOrder возвращает живой заказ
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

// Lookup ищет заказ среди живых, затем в архиве
func (s *OrderService) Lookup(ctx context.Context, orderID string) (order *models.Order, archived bool, err error) {
	const op = "service.OrderService.Lookup"
	order, err = s.orders.GetOrder(ctx, orderID)
	if err == nil {
		return order, false, nil
	}
	if !errors.Is(err, storage.ErrOrderNotFound) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	order, err = s.orders.GetArchivedOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, false, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return order, true, nil
}

// BuyerOrders живые заказы покупателя, недавно изменённые первыми
func (s *OrderService) BuyerOrders(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	const op = "service.OrderService.BuyerOrders"
	orders, err := s.orders.ListBuyerOrders(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// apply выполняет один переход под блокировкой id заказа:
// загрузка, проверки, изменение, сохранение, архивация терминальных статусов, уведомление.
func (s *OrderService) apply(ctx context.Context, actorID int64, orderID string, tr transition, mutate func(o *models.Order) error) (*models.Order, error) {
	logger := s.log.With(slog.String("op", tr.op), slog.String("orderID", orderID), slog.Int64("actorID", actorID))

	unlock := s.locks.Lock(orderID)
	order, err := s.transit(ctx, logger, actorID, orderID, tr, mutate)
	unlock()
	if err != nil {
		s.fail(logger, tr.op, err)
		return nil, fmt.Errorf("%s: %w", tr.op, err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(order.Product, string(tr.event)).Inc()
	logger.Info("order transitioned", slog.String("status", string(order.Status)))
	s.emit(ctx, logger, tr.event, tr.audiences, actorID, order)
	return order, nil
}

func (s *OrderService) transit(ctx context.Context, logger *slog.Logger, actorID int64, orderID string, tr transition, mutate func(o *models.Order) error) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	// терминальный, но ещё не архивный заказ (архивация прервалась) ведёт себя как архивный
	if order.Status.Terminal() {
		return nil, ErrNotFound
	}

	if !s.allowed(tr.actor, actorID, order) {
		return nil, ErrUnauthorized
	}
	if !slices.Contains(tr.from, order.Status) {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidState, order.Status)
	}
	if mutate != nil {
		if err := mutate(order); err != nil {
			return nil, err
		}
	}

	now := s.now()
	order.Status = tr.to
	order.UpdatedAt = now
	if tr.to == models.StatusCompleted {
		order.CompletedAt = &now
	}

	if err := s.orders.SaveOrder(ctx, order); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	if order.Status.Terminal() {
		if err := s.orders.ArchiveOrder(ctx, order.ID); err != nil {
			return nil, fmt.Errorf("failed to archive order: %w", err)
		}
		metrics.OrdersArchivedTotal.WithLabelValues(string(order.Status)).Inc()
		logger.Info("order archived", slog.String("status", string(order.Status)))
	}
	return order, nil
}

func (s *OrderService) allowed(rule actorRule, actorID int64, order *models.Order) bool {
	switch rule {
	case actorAdmin:
		return s.IsAdmin(actorID)
	case actorBuyer:
		return actorID == order.BuyerID
	case actorBuyerOrAdmin:
		return actorID == order.BuyerID || s.IsAdmin(actorID)
	}
	return false
}

// fail логирует ошибку операции: ожидаемые виды - на warn, отказ хранилища - на error
func (s *OrderService) fail(logger *slog.Logger, op string, err error) {
	kind := ErrorKind(err)
	metrics.OperationErrorsTotal.WithLabelValues(op, kind).Inc()
	if kind == "internal" {
		logger.Error("operation failed", slog.Any("error", err))
		return
	}
	logger.Warn("operation rejected", slog.String("kind", kind), slog.Any("error", err))
}

func (s *OrderService) emit(ctx context.Context, logger *slog.Logger, kind models.EventKind, audiences []models.Audience, actorID int64, order *models.Order) {
	if s.notifier == nil {
		return
	}
	event := models.Event{
		Kind:      kind,
		Audiences: audiences,
		ActorID:   actorID,
		Order:     *order.Clone(),
		At:        s.now(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		metrics.NotificationErrorsTotal.Inc()
		logger.Warn("failed to notify", slog.String("event", string(kind)), slog.Any("error", err))
	}
}
