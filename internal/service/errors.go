package service

import (
	"errors"
	"fmt"
	"strings"
)

// Виды ошибок жизненного цикла заказа. Все восстановимы:
// обработчик ловит вид ошибки и переспрашивает покупателя или админа.
var (
	ErrInvalidSelection       = errors.New("invalid selection")
	ErrInvalidMethod          = errors.New("invalid payment method")
	ErrInvalidState           = errors.New("invalid order state")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrNotFound               = errors.New("order not found")
	ErrIncompleteDeliveryInfo = errors.New("incomplete delivery info")
	ErrMissingProof           = errors.New("payment proof is required")
	ErrOrderInProgress        = errors.New("another order is already in progress")
	ErrInvalidPeriod          = errors.New("invalid report period")
)

// DeliveryInfoError перечисляет, каких полей доставки не хватает и какие заполнены неверно.
// Подписи идут в порядке схемы продуктовой линейки.
type DeliveryInfoError struct {
	Missing []string
	Invalid []string
}

func (e *DeliveryInfoError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("%s (%s)", ErrIncompleteDeliveryInfo, strings.Join(parts, "; "))
}

func (e *DeliveryInfoError) Is(target error) bool {
	return target == ErrIncompleteDeliveryInfo
}

// ErrorKind короткое имя вида ошибки для метрик и логов
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSelection):
		return "invalid_selection"
	case errors.Is(err, ErrInvalidMethod):
		return "invalid_method"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIncompleteDeliveryInfo):
		return "incomplete_delivery_info"
	case errors.Is(err, ErrMissingProof):
		return "missing_proof"
	case errors.Is(err, ErrOrderInProgress):
		return "order_in_progress"
	case errors.Is(err, ErrInvalidPeriod):
		return "invalid_period"
	}
	return "internal"
}
