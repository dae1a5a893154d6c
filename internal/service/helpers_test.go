package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/linemk/plugmarket-bot/internal/catalog"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/linemk/plugmarket-bot/internal/service"
	"github.com/linemk/plugmarket-bot/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	adminID    int64 = 1
	buyerID    int64 = 42
	strangerID int64 = 77
)

var t0 = time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event models.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) kinds() []models.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	res := make([]models.EventKind, 0, len(n.events))
	for _, e := range n.events {
		res = append(res, e.Kind)
	}
	return res
}

func (n *recordingNotifier) last() models.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

// tickingClock каждый вызов сдвигает время на секунду
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// failingStorage отказывает в записи
type failingStorage struct {
	*storage.MemoryStorage
	saveErr error
}

func (s *failingStorage) SaveOrder(ctx context.Context, order *models.Order) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStorage.SaveOrder(ctx, order)
}

// staleActiveStorage отдаёт из GetActiveOrder заранее сохранённую копию,
// как если бы заказ изменился между чтением и блокировкой
type staleActiveStorage struct {
	*storage.MemoryStorage
	stale *models.Order
}

func (s *staleActiveStorage) GetActiveOrder(ctx context.Context, buyerID int64, product string) (*models.Order, error) {
	if s.stale != nil {
		return s.stale.Clone(), nil
	}
	return s.MemoryStorage.GetActiveOrder(ctx, buyerID, product)
}

var errDiskFull = errors.New("disk full")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gadget 100 за штуку, доставка на адрес
var gadgetLine = catalog.ProductLine{
	Code:      "gadget",
	Title:     "Gadget",
	Unit:      "units",
	Currency:  "ETB",
	Pricing:   catalog.PricingPerUnit,
	UnitPrice: decimal.NewFromInt(100),
	MinUnits:  decimal.NewFromInt(1),
	Delivery:  []catalog.Field{{Key: "address", Label: "address", Aliases: []string{"address"}}},
}

// coins 2.7 за штуку со сбором 1 ниже 50
var coinsLine = catalog.ProductLine{
	Code:      "coins",
	Title:     "Coins",
	Unit:      "coins",
	Currency:  "ETB",
	Pricing:   catalog.PricingPerUnit,
	UnitPrice: decimal.RequireFromString("2.7"),
	MinUnits:  decimal.NewFromInt(1),
	Surcharge: catalog.Surcharge{Threshold: decimal.NewFromInt(50), Amount: decimal.NewFromInt(1)},
	Delivery:  []catalog.Field{{Key: "username", Label: "username", Rule: "tg_username", TrimAt: true}},
}

func testCatalog() *catalog.Catalog {
	lines := append(catalog.Default().Lines(), gadgetLine, coinsLine)
	return catalog.New(lines...)
}

type fixture struct {
	svc      *service.OrderService
	store    *storage.MemoryStorage
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStorage()
	return newFixtureWithStorage(t, store, store)
}

func newFixtureWithStorage(t *testing.T, orders storage.OrderStorage, mem *storage.MemoryStorage) *fixture {
	t.Helper()
	notifier := &recordingNotifier{}
	clock := &tickingClock{now: t0}
	var (
		mu  sync.Mutex
		seq int
	)
	svc := service.NewOrderService(discardLogger(), orders, notifier, testCatalog(), service.Options{
		AdminID: adminID,
		Methods: []models.PaymentMethod{"cbe", "telebirr"},
		Clock:   clock.Now,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("order-%d", seq)
		},
	})
	return &fixture{svc: svc, store: mem, notifier: notifier}
}

func (f *fixture) create(t *testing.T, product string, sel models.Selection) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), service.CreateRequest{
		BuyerID:   buyerID,
		BuyerName: "buyer",
		Product:   product,
		Selection: sel,
	})
	require.NoError(t, err)
	return order
}

// toReview доводит новый заказ до проверки оплаты админом
func (f *fixture) toReview(t *testing.T, product string, sel models.Selection) *models.Order {
	t.Helper()
	ctx := context.Background()
	order := f.create(t, product, sel)
	_, err := f.svc.ChoosePaymentMethod(ctx, buyerID, order.ID, "cbe")
	require.NoError(t, err)
	order, err = f.svc.SubmitProof(ctx, buyerID, order.ID, "img1")
	require.NoError(t, err)
	return order
}

// toDeliveryInfo доводит новый заказ до запроса данных доставки
func (f *fixture) toDeliveryInfo(t *testing.T, product string, sel models.Selection) *models.Order {
	t.Helper()
	order := f.toReview(t, product, sel)
	order, err := f.svc.AdminConfirm(context.Background(), adminID, order.ID)
	require.NoError(t, err)
	return order
}

func units(n int64) models.Selection {
	return models.Selection{Units: decimal.NewFromInt(n)}
}
