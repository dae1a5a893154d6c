package models

import "time"

// EventKind тип перехода, о котором уведомляем
type EventKind string

const (
	EventCreated           EventKind = "order_created"
	EventMethodChosen      EventKind = "payment_method_chosen"
	EventProofSubmitted    EventKind = "proof_submitted"
	EventPaymentRejected   EventKind = "payment_rejected"
	EventPaymentConfirmed  EventKind = "payment_confirmed"
	EventDeliverySubmitted EventKind = "delivery_info_submitted"
	EventCompleted         EventKind = "order_completed"
	EventCancelled         EventKind = "order_cancelled"
	EventDeclined          EventKind = "order_declined"
)

// Audience кому адресовано уведомление
type Audience string

const (
	AudienceBuyer Audience = "buyer"
	AudienceAdmin Audience = "admin"
)

// Event структурированное уведомление о переходе; текст формирует нотификатор
type Event struct {
	Kind      EventKind  `json:"kind"`
	Audiences []Audience `json:"audiences"`
	ActorID   int64      `json:"actor_id"`
	Order     Order      `json:"order"`
	At        time.Time  `json:"at"`
}
