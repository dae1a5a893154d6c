package telegram

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/linemk/plugmarket-bot/internal/catalog"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/linemk/plugmarket-bot/internal/lib/callback"
	"github.com/linemk/plugmarket-bot/internal/service"
)

// errorText переводит вид ошибки в подсказку для пользователя
func errorText(err error) string {
	switch {
	case errors.Is(err, catalog.ErrBelowMinimum):
		return "The amount is below the minimum for this product. " + minimumHint(err)
	case errors.Is(err, catalog.ErrFractionalUnits):
		return "Please send a whole number."
	case errors.Is(err, catalog.ErrUnknownPackage):
		return "This package is not available. Choose one of the buttons."
	case errors.Is(err, catalog.ErrNoDescription):
		return "Please describe what you want to order."
	case errors.Is(err, service.ErrInvalidSelection):
		return "This selection is not available. Use /start to choose again."
	case errors.Is(err, service.ErrInvalidMethod):
		return "Unknown payment method. Choose one of the buttons."
	case errors.Is(err, service.ErrInvalidState):
		return "This action is not available for the order right now."
	case errors.Is(err, service.ErrUnauthorized):
		return "You are not allowed to do this."
	case errors.Is(err, service.ErrNotFound):
		return "Order not found or already closed."
	case errors.Is(err, service.ErrMissingProof):
		return "Please send the payment receipt as a photo or a file."
	case errors.Is(err, service.ErrOrderInProgress):
		return "You already have an order for this product waiting for the admin. Wait for it to finish or cancel it."
	case errors.Is(err, service.ErrIncompleteDeliveryInfo):
		return "Some delivery details are missing or invalid."
	case errors.Is(err, service.ErrInvalidPeriod):
		return "Unknown period. Use today, week, month or a date like 2025-09-03."
	}
	return "Something went wrong, please try again."
}

// minimumHint достаёт "at least N unit" из текста ошибки каталога
func minimumHint(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "at least"); i >= 0 {
		return "Send " + msg[i:] + "."
	}
	return ""
}

func deliveryErrorText(e *service.DeliveryInfoError, line catalog.ProductLine) string {
	var b strings.Builder
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "Missing: %s\n", strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		fmt.Fprintf(&b, "Invalid: %s\n", strings.Join(e.Invalid, ", "))
	}
	b.WriteString("\nPlease send the delivery details again in this format:\n\n")
	b.WriteString(line.DeliveryTemplate())
	return b.String()
}

func menuKeyboard(cat *catalog.Catalog) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, line := range cat.Lines() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(line.Title, callback.Buy(line.Code)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func packageKeyboard(line catalog.ProductLine) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, pkg := range line.Packages {
		label := fmt.Sprintf("%s - %s %s", pkg.Title, pkg.Price, line.Currency)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callback.Package(line.Code, pkg.Code)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func orderText(o *models.Order, archived bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\n", o.ID)
	fmt.Fprintf(&b, "Product: %s\n", o.Product)
	fmt.Fprintf(&b, "Selection: %s\n", o.Selection.Description)
	fmt.Fprintf(&b, "Amount: %s %s\n", o.Quote.Amount.StringFixedBank(2), o.Quote.Currency)
	fmt.Fprintf(&b, "Status: %s", o.Status)
	if archived {
		b.WriteString(" (archived)")
	}
	return b.String()
}

func reportText(r *service.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sales report: %s\n", r.Period)
	for _, l := range r.Lines {
		if l.Orders == 0 {
			continue
		}
		b.WriteString("\n")
		writeReportLine(&b, l)
	}
	b.WriteString("\n")
	writeReportLine(&b, r.Total)
	return b.String()
}

func writeReportLine(b *strings.Builder, l service.ReportLine) {
	fmt.Fprintf(b, "%s: %d orders, %d completed, %d cancelled, revenue %s ETB, delivered %s\n",
		l.Product, l.Orders, l.Completed, l.Cancelled, l.Revenue.StringFixedBank(2), l.Delivered)
}
