package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/linemk/plugmarket-bot/internal/catalog"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/linemk/plugmarket-bot/internal/service"
)

// API часть tgbotapi.BotAPI, нужная боту
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// OrderManager операции жизненного цикла заказа
type OrderManager interface {
	Create(ctx context.Context, req service.CreateRequest) (*models.Order, error)
	ChoosePaymentMethod(ctx context.Context, actorID int64, orderID string, method models.PaymentMethod) (*models.Order, error)
	SubmitProof(ctx context.Context, actorID int64, orderID, ref string) (*models.Order, error)
	AdminReject(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	AdminConfirm(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	SubmitDeliveryInfo(ctx context.Context, actorID int64, orderID string, target models.DeliveryTarget) (*models.Order, error)
	AdminMarkDelivered(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	AdminDecline(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	Cancel(ctx context.Context, actorID int64, orderID string) (*models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	Lookup(ctx context.Context, orderID string) (*models.Order, bool, error)
	BuyerOrders(ctx context.Context, buyerID int64) ([]*models.Order, error)
	IsAdmin(actorID int64) bool
}

// Reporter строит отчёт о продажах
type Reporter interface {
	Build(ctx context.Context, period string) (*service.Report, error)
}

type stage int

const (
	stageIdle        stage = iota
	stageUnits             // ждём количество
	stageDescription       // ждём ссылку или описание товара
	stageQuotedTotal       // ждём согласованную сумму
)

// session состояние диалога с покупателем
type session struct {
	stage       stage
	product     string
	description string
	orderID     string // заказ, с которым покупатель работал последним; при выборе заказа для фото и текста он первый
}

// Bot переводит сообщения и нажатия кнопок в операции над заказами
type Bot struct {
	log     *slog.Logger
	api     API
	orders  OrderManager
	reports Reporter
	catalog *catalog.Catalog

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(log *slog.Logger, api API, orders OrderManager, reports Reporter, cat *catalog.Catalog) *Bot {
	return &Bot{
		log:      log,
		api:      api,
		orders:   orders,
		reports:  reports,
		catalog:  cat,
		sessions: make(map[int64]*session),
	}
}

// Run обрабатывает обновления по одному, пока не закроется канал или контекст
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	const op = "telegram.Bot.Run"
	b.log.Info("bot started", slog.String("op", op))

	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot stopped", slog.String("op", op))
			return
		case update, ok := <-updates:
			if !ok {
				b.log.Info("updates channel closed", slog.String("op", op))
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate обрабатывает одно обновление до конца
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) session(userID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[userID]
	if !ok {
		s = &session{}
		b.sessions[userID] = s
	}
	return s
}

func (b *Bot) resetSession(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[userID]; ok {
		*s = session{orderID: s.orderID}
	}
}

func (b *Bot) send(chatID int64, text string) {
	b.sendMsg(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMsg(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("failed to send message", slog.String("op", "telegram.Bot.send"), slog.Any("error", err))
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.log.Warn("telegram request failed", slog.String("op", "telegram.Bot.request"), slog.Any("error", err))
	}
}
