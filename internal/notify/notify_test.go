package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/linemk/plugmarket-bot/internal/catalog"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/linemk/plugmarket-bot/internal/notify"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 1

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type notifierFunc func(ctx context.Context, event models.Event) error

func (f notifierFunc) Notify(ctx context.Context, event models.Event) error { return f(ctx, event) }

var accounts = []models.PaymentAccount{
	{Method: "cbe", Title: "CBE", Account: "1000123456789", Holder: "Plug Market"},
	{Method: "telebirr", Title: "Telebirr", Account: "0911000000", Holder: "Plug Market"},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func usdtOrder() models.Order {
	return models.Order{
		ID:        "o1",
		BuyerID:   42,
		BuyerName: "abebe",
		Product:   "usdt",
		Selection: models.Selection{Description: "49 USDT", Units: decimal.NewFromInt(49)},
		Quote: models.Quote{
			Amount:    decimal.NewFromInt(8183),
			Currency:  "ETB",
			Delivered: decimal.NewFromInt(48),
			Unit:      "USDT",
			Surcharge: decimal.NewFromInt(1),
		},
		PaymentMethod: "cbe",
		Status:        models.StatusAwaitingProof,
	}
}

func newTelegramNotifier(sender notify.Sender) *notify.TelegramNotifier {
	return notify.NewTelegramNotifier(discardLogger(), sender, adminID, catalog.Default(), accounts)
}

func callbackData(t *testing.T, markup interface{}) []string {
	t.Helper()
	kb, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "expected inline keyboard, got %T", markup)
	var res []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			require.NotNil(t, btn.CallbackData)
			res = append(res, *btn.CallbackData)
		}
	}
	return res
}

func TestTelegramNotifier_CreatedOffersPaymentMethods(t *testing.T) {
	sender := &fakeSender{}
	order := usdtOrder()
	order.PaymentMethod = ""

	err := newTelegramNotifier(sender).Notify(context.Background(), models.Event{
		Kind:      models.EventCreated,
		Audiences: []models.Audience{models.AudienceBuyer},
		Order:     order,
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "Amount: 8183.00 ETB")
	assert.Contains(t, msg.Text, "You receive: 48 USDT (1 USDT small-order fee)")
	assert.NotContains(t, msg.Text, "Payment:")
	assert.Equal(t, []string{"pay:o1:cbe", "pay:o1:telebirr", "cancel:o1"}, callbackData(t, msg.ReplyMarkup))
}

func TestTelegramNotifier_MethodChosenGivesInstructions(t *testing.T) {
	sender := &fakeSender{}

	err := newTelegramNotifier(sender).Notify(context.Background(), models.Event{
		Kind:      models.EventMethodChosen,
		Audiences: []models.Audience{models.AudienceBuyer},
		Order:     usdtOrder(),
	})
	require.NoError(t, err)

	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "Pay 8183.00 ETB to CBE")
	assert.Contains(t, msg.Text, "Account: 1000123456789")
	assert.Equal(t, []string{"cancel:o1"}, callbackData(t, msg.ReplyMarkup))
}

func TestTelegramNotifier_ProofGoesToAdminAsPhoto(t *testing.T) {
	sender := &fakeSender{}
	order := usdtOrder()
	order.ProofRef = models.NewProofRef(models.ProofPhoto, "file-1")
	order.Status = models.StatusAwaitingAdminReview

	err := newTelegramNotifier(sender).Notify(context.Background(), models.Event{
		Kind:      models.EventProofSubmitted,
		Audiences: []models.Audience{models.AudienceAdmin, models.AudienceBuyer},
		Order:     order,
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 2)

	photo, ok := sender.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok, "got %T", sender.sent[0])
	assert.Equal(t, adminID, photo.ChatID)
	assert.Equal(t, tgbotapi.FileID("file-1"), photo.File)
	assert.Contains(t, photo.Caption, "Buyer: abebe (id 42)")
	assert.Contains(t, photo.Caption, "Payment: CBE")
	assert.Equal(t, []string{"admin:confirm:o1", "admin:reject:o1", "admin:decline:o1"}, callbackData(t, photo.ReplyMarkup))

	buyerMsg := sender.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), buyerMsg.ChatID)
	assert.Contains(t, buyerMsg.Text, "admin is checking")
}

func TestTelegramNotifier_ProofAsDocument(t *testing.T) {
	sender := &fakeSender{}
	order := usdtOrder()
	order.ProofRef = models.NewProofRef(models.ProofDocument, "doc-1")

	err := newTelegramNotifier(sender).Notify(context.Background(), models.Event{
		Kind:      models.EventProofSubmitted,
		Audiences: []models.Audience{models.AudienceAdmin},
		Order:     order,
	})
	require.NoError(t, err)

	doc, ok := sender.sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok, "got %T", sender.sent[0])
	assert.Equal(t, tgbotapi.FileID("doc-1"), doc.File)
}

func TestTelegramNotifier_DeliveryForAdmin(t *testing.T) {
	sender := &fakeSender{}
	order := usdtOrder()
	order.Delivery = models.DeliveryTarget{"wallet": "TQ5xYz"}
	order.Status = models.StatusDeliveryInfoSubmitted

	err := newTelegramNotifier(sender).Notify(context.Background(), models.Event{
		Kind:      models.EventDeliverySubmitted,
		Audiences: []models.Audience{models.AudienceAdmin},
		Order:     order,
	})
	require.NoError(t, err)

	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, adminID, msg.ChatID)
	assert.Contains(t, msg.Text, "wallet: TQ5xYz")
	assert.Equal(t, []string{"admin:deliver:o1", "admin:decline:o1"}, callbackData(t, msg.ReplyMarkup))
}

func TestTelegramNotifier_ConfirmedAsksForDeliveryTemplate(t *testing.T) {
	sender := &fakeSender{}
	order := usdtOrder()
	order.Product = "tiktok"

	err := newTelegramNotifier(sender).Notify(context.Background(), models.Event{
		Kind:      models.EventPaymentConfirmed,
		Audiences: []models.Audience{models.AudienceBuyer},
		Order:     order,
	})
	require.NoError(t, err)

	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "Login: \nPassword: ")
}

func TestTelegramNotifier_CancelledByAdmin(t *testing.T) {
	sender := &fakeSender{}

	err := newTelegramNotifier(sender).Notify(context.Background(), models.Event{
		Kind:      models.EventCancelled,
		Audiences: []models.Audience{models.AudienceBuyer, models.AudienceAdmin},
		ActorID:   adminID,
		Order:     usdtOrder(),
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].(tgbotapi.MessageConfig).Text, "cancelled by the admin")
}

func TestTelegramNotifier_NoAudienceSendsNothing(t *testing.T) {
	sender := &fakeSender{}

	err := newTelegramNotifier(sender).Notify(context.Background(), models.Event{
		Kind:  models.EventCancelled,
		Order: usdtOrder(),
	})
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestTelegramNotifier_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("bot was blocked by the user")}

	err := newTelegramNotifier(sender).Notify(context.Background(), models.Event{
		Kind:      models.EventCompleted,
		Audiences: []models.Audience{models.AudienceBuyer, models.AudienceAdmin},
		Order:     usdtOrder(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send to buyer")
	assert.Contains(t, err.Error(), "send to admin")
}

func TestKafkaTracker_Notify(t *testing.T) {
	writer := &fakeWriter{}
	at := time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC)

	err := notify.NewKafkaTracker(discardLogger(), writer).Notify(context.Background(), models.Event{
		Kind:    models.EventProofSubmitted,
		ActorID: 42,
		Order:   usdtOrder(),
		At:      at,
	})
	require.NoError(t, err)
	require.Len(t, writer.msgs, 1)

	msg := writer.msgs[0]
	assert.Equal(t, "o1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "proof_submitted", string(msg.Headers[0].Value))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "proof_submitted", payload["kind"])
	assert.Equal(t, "o1", payload["order_id"])
	assert.Equal(t, "awaiting_proof", payload["status"])
	assert.Equal(t, float64(42), payload["actor_id"])
}

func TestKafkaTracker_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}

	err := notify.NewKafkaTracker(discardLogger(), writer).Notify(context.Background(), models.Event{Order: usdtOrder()})
	assert.ErrorIs(t, err, writer.err)
}

func TestFanout_DeliversToAllDespiteErrors(t *testing.T) {
	failErr := errors.New("first failed")
	var got []string

	fanout := notify.Fanout{
		notifierFunc(func(ctx context.Context, e models.Event) error {
			got = append(got, "first")
			return failErr
		}),
		notifierFunc(func(ctx context.Context, e models.Event) error {
			got = append(got, "second")
			return nil
		}),
	}

	err := fanout.Notify(context.Background(), models.Event{Order: usdtOrder()})
	assert.ErrorIs(t, err, failErr)
	assert.Equal(t, []string{"first", "second"}, got)

	assert.NoError(t, notify.Fanout{}.Notify(context.Background(), models.Event{}))
}
