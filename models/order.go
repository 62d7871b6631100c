package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions lists, for each target status, the statuses an order may move from.
// A pending order belongs to a running checkout and cannot be cancelled.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusConfirmed: {OrderStatusPending},
	OrderStatusFailed:    {OrderStatusPending},
	OrderStatusCancelled: {OrderStatusConfirmed, OrderStatusFailed},
}

// AllowedFrom returns the statuses from which an order may move to target.
func AllowedFrom(target OrderStatus) []OrderStatus {
	return orderTransitions[target]
}

// CanTransition reports whether from → to is a legal order status change.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range orderTransitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// AmountScale is the number of decimal places amount columns store.
const AmountScale = 2

// Address is embedded with a column prefix (shipping_, billing_).
type Address struct {
	Street string `gorm:"type:varchar(255)" json:"street"`
	City   string `gorm:"type:varchar(100)" json:"city"`
	State  string `gorm:"type:varchar(100)" json:"state"`
	Zip    string `gorm:"type:varchar(20)" json:"zip"`
}

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	ShippingAddress Address         `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	PaymentID       *uuid.UUID      `gorm:"type:uuid" json:"payment_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is a snapshot of one validated cart line; it is never updated after creation.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID       string          `gorm:"type:varchar(64);not null" json:"product_id"`
	Quantity        int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	PriceAtPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_purchase"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
