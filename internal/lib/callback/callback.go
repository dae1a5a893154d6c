// Package callback кодирует и разбирает данные inline-кнопок телеграма.
// Формат "<вид>:<аргумент>[:<аргумент>]", длина укладывается в 64 байта при uuid в качестве id заказа.
package callback

import (
	"errors"
	"fmt"
	"strings"
)

const (
	KindBuy     = "buy"
	KindPackage = "pkg"
	KindPay     = "pay"
	KindCancel  = "cancel"
	KindAdmin   = "admin"
)

// Действия админа
const (
	ActionConfirm = "confirm"
	ActionReject  = "reject"
	ActionDeliver = "deliver"
	ActionDecline = "decline"
)

var ErrMalformed = errors.New("malformed callback data")

// Data разобранные данные кнопки
type Data struct {
	Kind string
	Args []string
}

func Buy(product string) string { return KindBuy + ":" + product }

func Package(product, code string) string { return KindPackage + ":" + product + ":" + code }

func Pay(orderID, method string) string { return KindPay + ":" + orderID + ":" + method }

func Cancel(orderID string) string { return KindCancel + ":" + orderID }

func Admin(action, orderID string) string { return KindAdmin + ":" + action + ":" + orderID }

var arity = map[string]int{
	KindBuy:     1,
	KindPackage: 2,
	KindPay:     2,
	KindCancel:  1,
	KindAdmin:   2,
}

// Parse проверяет вид и число аргументов
func Parse(raw string) (Data, error) {
	parts := strings.Split(raw, ":")
	want, ok := arity[parts[0]]
	if !ok || len(parts)-1 != want {
		return Data{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	for _, p := range parts[1:] {
		if p == "" {
			return Data{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
	}
	return Data{Kind: parts[0], Args: parts[1:]}, nil
}
