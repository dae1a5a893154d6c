package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linemk/plugmarket-bot/internal/catalog"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/linemk/plugmarket-bot/internal/storage"
	"github.com/shopspring/decimal"
)

// ReportLine итоги по одной продуктовой линейке
type ReportLine struct {
	Product   string          `json:"product"`
	Orders    int             `json:"orders"`
	Completed int             `json:"completed"`
	Cancelled int             `json:"cancelled"`
	Revenue   decimal.Decimal `json:"revenue"`
	Delivered decimal.Decimal `json:"delivered"`
}

// Report отчёт о продажах за период
type Report struct {
	Period string       `json:"period"`
	From   time.Time    `json:"from"`
	To     time.Time    `json:"to"`
	Lines  []ReportLine `json:"lines"`
	Total  ReportLine   `json:"total"`
}

type ReportService struct {
	log     *slog.Logger
	orders  storage.OrderStorage
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewReportService(log *slog.Logger, orders storage.OrderStorage, cat *catalog.Catalog, clock func() time.Time) *ReportService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ReportService{log: log, orders: orders, catalog: cat, now: clock}
}

// ParsePeriod переводит период отчёта в полуинтервал [from, to).
// Пусто или today - последние сутки, w/week - 7 дней, m/month - 30 дней,
// YYYY-MM-DD или YYYY/MM/DD - календарный день по UTC.
func ParsePeriod(period string, now time.Time) (from, to time.Time, label string, err error) {
	now = now.UTC()
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "", "today":
		return now.Add(-24 * time.Hour), now, "last 24 hours", nil
	case "w", "week":
		return now.AddDate(0, 0, -7), now, "last 7 days", nil
	case "m", "month":
		return now.AddDate(0, 0, -30), now, "last 30 days", nil
	}

	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		day, perr := time.Parse(layout, p)
		if perr == nil {
			return day, day.AddDate(0, 0, 1), day.Format("2006-01-02"), nil
		}
	}
	return time.Time{}, time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
}

// Build собирает отчёт; линейки идут в порядке каталога, неизвестные коды в конце
func (r *ReportService) Build(ctx context.Context, period string) (*Report, error) {
	const op = "service.ReportService.Build"
	logger := r.log.With(slog.String("op", op), slog.String("period", period))

	from, to, label, err := ParsePeriod(period, r.now())
	if err != nil {
		logger.Warn("invalid period")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders, err := r.orders.ListOrders(ctx, from, to)
	if err != nil {
		logger.Error("failed to list orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &Report{Period: label, From: from, To: to, Total: newReportLine("total")}
	index := make(map[string]int)
	for _, l := range r.catalog.Lines() {
		index[l.Code] = len(report.Lines)
		report.Lines = append(report.Lines, newReportLine(l.Code))
	}

	for _, o := range orders {
		i, ok := index[o.Product]
		if !ok {
			i = len(report.Lines)
			index[o.Product] = i
			report.Lines = append(report.Lines, newReportLine(o.Product))
		}
		report.Lines[i].add(o)
		report.Total.add(o)
	}

	logger.Info("report built", slog.Int("orders", report.Total.Orders))
	return report, nil
}

func newReportLine(product string) ReportLine {
	return ReportLine{Product: product, Revenue: decimal.Zero, Delivered: decimal.Zero}
}

func (l *ReportLine) add(o *models.Order) {
	l.Orders++
	switch o.Status {
	case models.StatusCompleted:
		l.Completed++
		l.Revenue = l.Revenue.Add(o.Quote.Amount)
		l.Delivered = l.Delivered.Add(o.Quote.Delivered)
	case models.StatusCancelled, models.StatusDeclined:
		l.Cancelled++
	}
}
