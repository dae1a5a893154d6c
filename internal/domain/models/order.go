package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status состояние заказа в жизненном цикле
type Status string

const (
	StatusCreated               Status = "created" // ждём выбор способа оплаты
	StatusAwaitingProof         Status = "awaiting_proof"
	StatusAwaitingAdminReview   Status = "awaiting_admin_review"
	StatusPaymentRejected       Status = "payment_rejected"
	StatusAwaitingDeliveryInfo  Status = "awaiting_delivery_info"
	StatusDeliveryInfoSubmitted Status = "delivery_info_submitted"
	StatusCompleted             Status = "completed"
	StatusCancelled             Status = "cancelled"
	StatusDeclined              Status = "declined"
)

// Terminal - заказ в этом статусе неизменяем и уходит в архив
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusDeclined:
		return true
	}
	return false
}

// PaymentMethod код способа оплаты из конфигурации (cbe, telebirr, ...)
type PaymentMethod string

// Selection денормализованное описание того, что заказал покупатель
type Selection struct {
	Description string          `json:"description"`
	Units       decimal.Decimal `json:"units"`
	Package     string          `json:"package,omitempty"`
}

// Quote сумма к оплате и количество, которое получит покупатель
type Quote struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Delivered decimal.Decimal `json:"delivered"`
	Unit      string          `json:"unit"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

// DeliveryTarget куда доставить товар: кошелёк, юзернейм, адрес, логин.
// Ключи задаются схемой продуктовой линейки.
type DeliveryTarget map[string]string

// Order заказ покупателя
type Order struct {
	ID            string         `json:"id"`
	BuyerID       int64          `json:"buyer_id"`
	BuyerName     string         `json:"buyer_name"`
	Product       string         `json:"product"`
	Selection     Selection      `json:"selection"`
	Quote         Quote          `json:"quote"`
	PaymentMethod PaymentMethod  `json:"payment_method,omitempty"`
	ProofRef      string         `json:"proof_ref,omitempty"`
	Delivery      DeliveryTarget `json:"delivery,omitempty"`
	Status        Status         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// Clone возвращает копию заказа, не разделяющую map и указатели с оригиналом
func (o *Order) Clone() *Order {
	c := *o
	if o.Delivery != nil {
		c.Delivery = make(DeliveryTarget, len(o.Delivery))
		for k, v := range o.Delivery {
			c.Delivery[k] = v
		}
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
