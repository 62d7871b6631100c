package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderConfirmed     = "order_confirmed"
	EventOrderPaymentFailed = "order_payment_failed"
	EventOrderCancelled     = "order_cancelled"
)

// OrderEvent is published to SNS and Kafka after an order reaches a terminal outcome.
type OrderEvent struct {
	EventType   string          `json:"event_type"`
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	PaymentID   string          `json:"payment_id,omitempty"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItem     `json:"items,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// CheckoutMessage is the body of an asynchronous checkout request on SQS.
type CheckoutMessage struct {
	UserID      string      `json:"user_id"`
	UserEmail   string      `json:"user_email"`
	PaymentInfo PaymentInfo `json:"payment_info"`
}
