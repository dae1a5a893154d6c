package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/linemk/plugmarket-bot/internal/catalog"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/linemk/plugmarket-bot/internal/lib/callback"
	"github.com/linemk/plugmarket-bot/internal/service"
	"github.com/shopspring/decimal"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	userID := msg.From.ID
	s := b.session(userID)

	if ref, ok := proofRef(msg); ok {
		b.submitProof(ctx, msg.Chat.ID, userID, s, ref)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	switch s.stage {
	case stageUnits:
		b.createPerUnit(ctx, msg, s, text)
	case stageDescription:
		s.description = text
		s.stage = stageQuotedTotal
		b.send(msg.Chat.ID, "Send the total price in ETB that was agreed for this order.")
	case stageQuotedTotal:
		b.createQuoted(ctx, msg, s, text)
	default:
		b.handleFreeText(ctx, msg, s, text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	switch msg.Command() {
	case "start", "menu":
		b.resetSession(userID)
		b.sendMenu(msg.Chat.ID)
	case "cancel":
		b.cancelCurrent(ctx, msg.Chat.ID, userID)
	case "order":
		b.showOrder(ctx, msg.Chat.ID, userID, strings.TrimSpace(msg.CommandArguments()))
	case "report":
		b.sendReport(ctx, msg.Chat.ID, userID, strings.TrimSpace(msg.CommandArguments()))
	default:
		b.send(msg.Chat.ID, "Unknown command. Use /start to open the menu.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	const op = "telegram.Bot.handleCallback"
	if q.From == nil {
		return
	}
	userID := q.From.ID
	chatID := userID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}

	data, err := callback.Parse(q.Data)
	if err != nil {
		b.log.Warn("unknown callback", slog.String("op", op), slog.String("data", q.Data))
		b.request(tgbotapi.NewCallback(q.ID, "Unknown action"))
		return
	}

	var answer string
	switch data.Kind {
	case callback.KindBuy:
		answer = b.startPurchase(chatID, userID, data.Args[0])
	case callback.KindPackage:
		answer = b.createPackage(ctx, chatID, q.From, data.Args[0], data.Args[1])
	case callback.KindPay:
		answer = b.choosePayment(ctx, userID, data.Args[0], models.PaymentMethod(data.Args[1]))
	case callback.KindCancel:
		if _, err := b.orders.Cancel(ctx, userID, data.Args[0]); err != nil {
			answer = errorText(err)
		} else {
			b.forgetOrder(userID)
			answer = "Order cancelled"
		}
	case callback.KindAdmin:
		answer = b.adminAction(ctx, userID, data.Args[0], data.Args[1])
		if answer == "" && q.Message != nil {
			b.clearKeyboard(q.Message)
		}
	}
	b.request(tgbotapi.NewCallback(q.ID, answer))
}

func (b *Bot) startPurchase(chatID, userID int64, product string) string {
	line, ok := b.catalog.Line(product)
	if !ok {
		return "This product is not available"
	}
	b.resetSession(userID)
	s := b.session(userID)
	s.product = line.Code

	switch line.Pricing {
	case catalog.PricingPackage:
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s\nChoose a package:", line.Title))
		msg.ReplyMarkup = packageKeyboard(line)
		b.sendMsg(msg)
	case catalog.PricingQuoted:
		s.stage = stageDescription
		b.send(chatID, fmt.Sprintf("%s\nSend the product link and a short description (color, size, quantity).", line.Title))
	default:
		s.stage = stageUnits
		b.send(chatID, fmt.Sprintf("%s\nPrice: %s %s per %s. Minimum %s %s.\nHow many %s do you want?",
			line.Title, line.UnitPrice, line.Currency, line.Unit, line.MinUnits, line.Unit, line.Unit))
	}
	return ""
}

func (b *Bot) createPerUnit(ctx context.Context, msg *tgbotapi.Message, s *session, text string) {
	units, err := parseAmount(text)
	if err != nil {
		b.send(msg.Chat.ID, "Please send a number, for example 50.")
		return
	}
	b.create(ctx, msg.Chat.ID, msg.From, s, models.Selection{Units: units})
}

func (b *Bot) createQuoted(ctx context.Context, msg *tgbotapi.Message, s *session, text string) {
	total, err := parseAmount(text)
	if err != nil {
		b.send(msg.Chat.ID, "Please send the total as a number, for example 2500.")
		return
	}
	b.create(ctx, msg.Chat.ID, msg.From, s, models.Selection{Description: s.description, Units: total})
}

func (b *Bot) createPackage(ctx context.Context, chatID int64, from *tgbotapi.User, product, pkg string) string {
	s := b.session(from.ID)
	s.product = product
	if b.create(ctx, chatID, from, s, models.Selection{Package: pkg}) {
		return ""
	}
	return "Could not create the order"
}

// create создаёт заказ; при ошибке выбора покупатель остаётся на том же шаге
func (b *Bot) create(ctx context.Context, chatID int64, from *tgbotapi.User, s *session, sel models.Selection) bool {
	order, err := b.orders.Create(ctx, service.CreateRequest{
		BuyerID:   from.ID,
		BuyerName: displayName(from),
		Product:   s.product,
		Selection: sel,
	})
	if err != nil {
		b.send(chatID, errorText(err))
		if !errors.Is(err, service.ErrInvalidSelection) {
			b.resetSession(from.ID)
		}
		return false
	}
	*s = session{orderID: order.ID}
	return true
}

func (b *Bot) choosePayment(ctx context.Context, userID int64, orderID string, method models.PaymentMethod) string {
	order, err := b.orders.ChoosePaymentMethod(ctx, userID, orderID, method)
	if err != nil {
		return errorText(err)
	}
	s := b.session(userID)
	s.orderID = order.ID
	return ""
}

func (b *Bot) submitProof(ctx context.Context, chatID, userID int64, s *session, ref string) {
	order, _, err := b.currentOrder(ctx, userID, s, acceptsProof)
	if err != nil {
		b.send(chatID, errorText(err))
		return
	}
	if order == nil {
		b.send(chatID, "You have no order waiting for a payment receipt. Use /start to place an order.")
		return
	}
	if _, err := b.orders.SubmitProof(ctx, userID, order.ID, ref); err != nil {
		b.send(chatID, errorText(err))
		return
	}
	s.orderID = order.ID
}

// handleFreeText текст вне диалога выбора: данные доставки или подсказка по текущему шагу
func (b *Bot) handleFreeText(ctx context.Context, msg *tgbotapi.Message, s *session, text string) {
	chatID, userID := msg.Chat.ID, msg.From.ID

	order, orders, err := b.currentOrder(ctx, userID, s, acceptsDelivery)
	if err != nil {
		b.send(chatID, errorText(err))
		return
	}
	if order != nil {
		s.orderID = order.ID
		b.submitDelivery(ctx, chatID, userID, order, text)
		return
	}

	// подсказываем по заказу, который ждёт действия покупателя
	hint := pickOrder(orders, s.orderID, waitsForBuyer)
	if hint == nil {
		hint = pickOrder(orders, s.orderID, anyStatus)
	}
	if hint == nil {
		b.forgetOrder(userID)
		b.sendMenu(chatID)
		return
	}

	switch hint.Status {
	case models.StatusCreated:
		b.send(chatID, "Choose a payment method with the buttons above.")
	case models.StatusAwaitingProof, models.StatusPaymentRejected:
		b.send(chatID, "Please send the payment receipt as a photo or a file.")
	default:
		b.send(chatID, "Your order is being processed. We will notify you about every step.")
	}
}

// cancelCurrent отменяет заказ, с которым покупатель работал последним, иначе самый свежий
func (b *Bot) cancelCurrent(ctx context.Context, chatID, userID int64) {
	s := b.session(userID)
	order, _, err := b.currentOrder(ctx, userID, s, anyStatus)
	if err != nil {
		b.send(chatID, errorText(err))
		return
	}
	if order == nil {
		b.forgetOrder(userID)
		b.send(chatID, "Nothing to cancel.")
		return
	}
	if _, err := b.orders.Cancel(ctx, userID, order.ID); err != nil {
		b.send(chatID, errorText(err))
	}
	b.forgetOrder(userID)
}

// currentOrder ищет среди живых заказов покупателя тот, что принимает ввод.
// Заказы берутся из хранилища, а не из сессии: у покупателя может быть по заказу
// на каждую линейку, и сессия не переживает перезапуск.
func (b *Bot) currentOrder(ctx context.Context, userID int64, s *session, accepts func(models.Status) bool) (*models.Order, []*models.Order, error) {
	orders, err := b.orders.BuyerOrders(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return pickOrder(orders, s.orderID, accepts), orders, nil
}

// pickOrder предпочитает заказ сессии, иначе первый подходящий (самый недавно изменённый)
func pickOrder(orders []*models.Order, preferred string, accepts func(models.Status) bool) *models.Order {
	var found *models.Order
	for _, o := range orders {
		if !accepts(o.Status) {
			continue
		}
		if o.ID == preferred {
			return o
		}
		if found == nil {
			found = o
		}
	}
	return found
}

func acceptsProof(st models.Status) bool {
	switch st {
	case models.StatusAwaitingProof, models.StatusAwaitingAdminReview, models.StatusPaymentRejected:
		return true
	}
	return false
}

func acceptsDelivery(st models.Status) bool {
	return st == models.StatusAwaitingDeliveryInfo
}

func waitsForBuyer(st models.Status) bool {
	switch st {
	case models.StatusCreated, models.StatusAwaitingProof, models.StatusPaymentRejected:
		return true
	}
	return false
}

func anyStatus(models.Status) bool { return true }

func (b *Bot) submitDelivery(ctx context.Context, chatID, userID int64, order *models.Order, text string) {
	line, ok := b.catalog.Line(order.Product)
	if !ok {
		b.send(chatID, errorText(errors.New("unknown product line")))
		return
	}
	_, err := b.orders.SubmitDeliveryInfo(ctx, userID, order.ID, line.ParseDeliveryText(text))
	if err == nil {
		return
	}

	var infoErr *service.DeliveryInfoError
	if errors.As(err, &infoErr) {
		b.send(chatID, deliveryErrorText(infoErr, line))
		return
	}
	b.send(chatID, errorText(err))
}

// adminAction пустой ответ означает успех
func (b *Bot) adminAction(ctx context.Context, actorID int64, action, orderID string) string {
	var err error
	switch action {
	case callback.ActionConfirm:
		_, err = b.orders.AdminConfirm(ctx, actorID, orderID)
	case callback.ActionReject:
		_, err = b.orders.AdminReject(ctx, actorID, orderID)
	case callback.ActionDeliver:
		_, err = b.orders.AdminMarkDelivered(ctx, actorID, orderID)
	case callback.ActionDecline:
		_, err = b.orders.AdminDecline(ctx, actorID, orderID)
	default:
		return "Unknown action"
	}
	if err != nil {
		return errorText(err)
	}
	return ""
}

func (b *Bot) showOrder(ctx context.Context, chatID, userID int64, orderID string) {
	if orderID == "" {
		orderID = b.session(userID).orderID
	}
	if orderID == "" {
		b.send(chatID, "Usage: /order <order id>")
		return
	}
	order, archived, err := b.orders.Lookup(ctx, orderID)
	if err != nil {
		b.send(chatID, errorText(err))
		return
	}
	if order.BuyerID != userID && !b.orders.IsAdmin(userID) {
		b.send(chatID, errorText(service.ErrNotFound))
		return
	}
	// покупатель выбрал заказ, следующие фото и текст относятся к нему
	if order.BuyerID == userID && !archived {
		b.session(userID).orderID = order.ID
	}
	b.send(chatID, orderText(order, archived))
}

func (b *Bot) sendReport(ctx context.Context, chatID, userID int64, period string) {
	if !b.orders.IsAdmin(userID) {
		b.send(chatID, errorText(service.ErrUnauthorized))
		return
	}
	report, err := b.reports.Build(ctx, period)
	if err != nil {
		b.send(chatID, errorText(err))
		return
	}
	b.send(chatID, reportText(report))
}

func (b *Bot) sendMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Welcome to Plug Market! What would you like to buy?")
	msg.ReplyMarkup = menuKeyboard(b.catalog)
	b.sendMsg(msg)
}

func (b *Bot) forgetOrder(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, userID)
}

// clearKeyboard убирает кнопки с сообщения, по которому админ уже принял решение
func (b *Bot) clearKeyboard(msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	b.request(tgbotapi.NewEditMessageReplyMarkup(msg.Chat.ID, msg.MessageID, empty))
}

// proofRef берёт самое крупное фото или документ из сообщения
func proofRef(msg *tgbotapi.Message) (string, bool) {
	if n := len(msg.Photo); n > 0 {
		return models.NewProofRef(models.ProofPhoto, msg.Photo[n-1].FileID), true
	}
	if msg.Document != nil {
		return models.NewProofRef(models.ProofDocument, msg.Document.FileID), true
	}
	return "", false
}

// parseAmount принимает "50", "1,500" или "50 USDT"
func parseAmount(text string) (decimal.Decimal, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return decimal.Decimal{}, errors.New("empty amount")
	}
	return decimal.NewFromString(strings.ReplaceAll(fields[0], ",", ""))
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
