package catalog

import (
	"errors"
	"fmt"

	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/shopspring/decimal"
)

var (
	ErrBelowMinimum    = errors.New("amount below minimum")
	ErrFractionalUnits = errors.New("amount must be a whole number")
	ErrUnknownPackage  = errors.New("unknown package")
	ErrNoDescription   = errors.New("product description is required")
)

// ComputeQuote считает сумму к оплате и количество к выдаче.
// Оплата всегда берётся с запрошенного количества, сбор вычитается только из выдачи.
func ComputeQuote(units, unitPrice decimal.Decimal, s Surcharge) (charge, delivered decimal.Decimal) {
	charge = units.Mul(unitPrice)
	delivered = units
	if s.Applies(units) {
		delivered = units.Sub(s.Amount)
	}
	return charge, delivered
}

// Quote проверяет выбор покупателя и формирует котировку.
// Selection может быть дополнен (количество для пакетов, описание по умолчанию).
func (p ProductLine) Quote(sel *models.Selection) (models.Quote, error) {
	q := models.Quote{Currency: p.Currency, Unit: p.Unit, Surcharge: decimal.Zero}

	switch p.Pricing {
	case PricingPackage:
		pkg, ok := p.Package(sel.Package)
		if !ok {
			return models.Quote{}, fmt.Errorf("%w: %q", ErrUnknownPackage, sel.Package)
		}
		sel.Units = decimal.NewFromInt(1)
		if sel.Description == "" {
			sel.Description = fmt.Sprintf("%s %s", p.Title, pkg.Title)
		}
		q.Amount = pkg.Price
		q.Delivered = sel.Units
		q.Unit = pkg.Title
		return q, nil

	case PricingQuoted:
		if sel.Description == "" {
			return models.Quote{}, ErrNoDescription
		}
		if sel.Units.LessThan(p.MinUnits) {
			return models.Quote{}, fmt.Errorf("%w: at least %s %s", ErrBelowMinimum, p.MinUnits, p.Currency)
		}
		q.Amount = sel.Units
		q.Delivered = decimal.NewFromInt(1)
		return q, nil
	}

	if !sel.Units.IsPositive() || sel.Units.LessThan(p.MinUnits) {
		return models.Quote{}, fmt.Errorf("%w: at least %s %s", ErrBelowMinimum, p.MinUnits, p.Unit)
	}
	if p.WholeUnits && !sel.Units.Equal(sel.Units.Truncate(0)) {
		return models.Quote{}, ErrFractionalUnits
	}
	if sel.Description == "" {
		sel.Description = fmt.Sprintf("%s %s", sel.Units, p.Unit)
	}
	q.Amount, q.Delivered = ComputeQuote(sel.Units, p.UnitPrice, p.Surcharge)
	if p.Surcharge.Applies(sel.Units) {
		q.Surcharge = p.Surcharge.Amount
	}
	return q, nil
}
