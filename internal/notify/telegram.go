package notify

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
)

// Sender часть tgbotapi.BotAPI, через которую уходят сообщения
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier превращает события заказа в сообщения покупателю и админу
type TelegramNotifier struct {
	log      *slog.Logger
	sender   Sender
	adminID  int64
	catalog  *catalog.Catalog
	accounts []models.PaymentAccount
}

func NewTelegramNotifier(log *slog.Logger, sender Sender, adminID int64, cat *catalog.Catalog, accounts []models.PaymentAccount) *TelegramNotifier {
	return &TelegramNotifier{
		log:      log,
		sender:   sender,
		adminID:  adminID,
		catalog:  cat,
		accounts: accounts,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, event models.Event) error {
	const op = "notify.TelegramNotifier.Notify"

	var errs []error
	for _, audience := range event.Audiences {
		var msg tgbotapi.Chattable
		switch audience {
		case models.AudienceBuyer:
			msg = n.buyerMessage(event)
		case models.AudienceAdmin:
			msg = n.adminMessage(event)
		}
		if msg == nil {
			continue
		}
		if _, err := n.sender.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: send to %s: %w", op, audience, err))
			continue
		}
		n.log.Debug("notification sent",
			slog.String("op", op),
			slog.String("orderID", event.Order.ID),
			slog.String("event", string(event.Kind)),
			slog.String("audience", string(audience)),
		)
	}
	return errors.Join(errs...)
}

func (n *TelegramNotifier) buyerMessage(event models.Event) tgbotapi.Chattable {
	o := event.Order
	chatID := o.BuyerID

	switch event.Kind {
	case models.EventCreated:
		msg := tgbotapi.NewMessage(chatID, n.summary(o, false)+"\n\nChoose a payment method:")
		msg.ReplyMarkup = n.paymentKeyboard(o.ID)
		return msg

	case models.EventMethodChosen:
		text := n.summary(o, false) + "\n\n" + n.instructions(o) +
			"\n\nAfter paying, send a screenshot or file of the receipt here."
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = cancelKeyboard(o.ID)
		return msg

	case models.EventProofSubmitted:
		return tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Payment proof received for order %s. The admin is checking your payment, please wait.", o.ID))

	case models.EventPaymentRejected:
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"We could not find your payment for order %s.\n\n%s\n\nPlease send a correct receipt again.",
			o.ID, n.instructions(o)))
		msg.ReplyMarkup = cancelKeyboard(o.ID)
		return msg

	case models.EventPaymentConfirmed:
		text := fmt.Sprintf("Payment for order %s is confirmed.\n\n", o.ID)
		if line, ok := n.catalog.Line(o.Product); ok {
			text += "Send the delivery details in this format:\n\n" + line.DeliveryTemplate()
		}
		return tgbotapi.NewMessage(chatID, text)

	case models.EventDeliverySubmitted:
		return tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Delivery details for order %s received:\n%s\n\nWe will deliver your order shortly.",
			o.ID, n.delivery(o)))

	case models.EventCompleted:
		return tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Order %s is completed: %s %s delivered. Thank you for shopping with us!",
			o.ID, o.Quote.Delivered, o.Quote.Unit))

	case models.EventCancelled:
		return tgbotapi.NewMessage(chatID, fmt.Sprintf("Order %s is cancelled.", o.ID))

	case models.EventDeclined:
		return tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Order %s was declined by the admin. Contact support if you have already paid.", o.ID))
	}
	return nil
}

func (n *TelegramNotifier) adminMessage(event models.Event) tgbotapi.Chattable {
	o := event.Order

	switch event.Kind {
	case models.EventProofSubmitted:
		caption := "New payment to review\n\n" + n.summary(o, true)
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Paid", callback.Admin(callback.ActionConfirm, o.ID)),
				tgbotapi.NewInlineKeyboardButtonData("Not paid", callback.Admin(callback.ActionReject, o.ID)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Decline order", callback.Admin(callback.ActionDecline, o.ID)),
			),
		)
		kind, fileID := models.SplitProofRef(o.ProofRef)
		switch kind {
		case models.ProofPhoto:
			photo := tgbotapi.NewPhoto(n.adminID, tgbotapi.FileID(fileID))
			photo.Caption = caption
			photo.ReplyMarkup = keyboard
			return photo
		case models.ProofDocument:
			doc := tgbotapi.NewDocument(n.adminID, tgbotapi.FileID(fileID))
			doc.Caption = caption
			doc.ReplyMarkup = keyboard
			return doc
		}
		msg := tgbotapi.NewMessage(n.adminID, caption+"\nProof: "+o.ProofRef)
		msg.ReplyMarkup = keyboard
		return msg

	case models.EventDeliverySubmitted:
		msg := tgbotapi.NewMessage(n.adminID, "Ready to deliver\n\n"+n.summary(o, true)+"\n\nDeliver to:\n"+n.delivery(o))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Delivered", callback.Admin(callback.ActionDeliver, o.ID)),
				tgbotapi.NewInlineKeyboardButtonData("Decline order", callback.Admin(callback.ActionDecline, o.ID)),
			),
		)
		return msg

	case models.EventCompleted:
		return tgbotapi.NewMessage(n.adminID, fmt.Sprintf("Order %s completed and archived.", o.ID))

	case models.EventCancelled:
		by := "buyer"
		if event.ActorID == n.adminID {
			by = "admin"
		}
		return tgbotapi.NewMessage(n.adminID, fmt.Sprintf("Order %s was cancelled by the %s.", o.ID, by))
	}
	return nil
}

// summary описание заказа; для админа добавляется покупатель
func (n *TelegramNotifier) summary(o models.Order, forAdmin bool) string {
	title := o.Product
	if line, ok := n.catalog.Line(o.Product); ok {
		title = line.Title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\n", o.ID)
	if forAdmin {
		fmt.Fprintf(&b, "Buyer: %s (id %d)\n", o.BuyerName, o.BuyerID)
	}
	fmt.Fprintf(&b, "Product: %s\n", title)
	fmt.Fprintf(&b, "Selection: %s\n", o.Selection.Description)
	fmt.Fprintf(&b, "Amount: %s %s", o.Quote.Amount.StringFixedBank(2), o.Quote.Currency)
	if o.Quote.Surcharge.IsPositive() {
		fmt.Fprintf(&b, "\nYou receive: %s %s (%s %s small-order fee)",
			o.Quote.Delivered, o.Quote.Unit, o.Quote.Surcharge, o.Quote.Unit)
	}
	if o.PaymentMethod != "" {
		fmt.Fprintf(&b, "\nPayment: %s", n.account(o.PaymentMethod).Title)
	}
	return b.String()
}

func (n *TelegramNotifier) instructions(o models.Order) string {
	acc := n.account(o.PaymentMethod)
	return fmt.Sprintf("Pay %s %s to %s\nAccount: %s\nName: %s",
		o.Quote.Amount.StringFixedBank(2), o.Quote.Currency, acc.Title, acc.Account, acc.Holder)
}

func (n *TelegramNotifier) delivery(o models.Order) string {
	line, ok := n.catalog.Line(o.Product)
	if !ok {
		return ""
	}
	var rows []string
	for _, f := range line.Delivery {
		if v, ok := o.Delivery[f.Key]; ok {
			rows = append(rows, fmt.Sprintf("%s: %s", f.Label, v))
		}
	}
	return strings.Join(rows, "\n")
}

func (n *TelegramNotifier) account(method models.PaymentMethod) models.PaymentAccount {
	for _, acc := range n.accounts {
		if acc.Method == method {
			return acc
		}
	}
	return models.PaymentAccount{Method: method, Title: string(method)}
}

func (n *TelegramNotifier) paymentKeyboard(orderID string) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, acc := range n.accounts {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(acc.Title, callback.Pay(orderID, string(acc.Method))))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Cancel", callback.Cancel(orderID))),
	)
}

func cancelKeyboard(orderID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Cancel order", callback.Cancel(orderID))),
	)
}
