package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusRejected
}

type Payment struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID               uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	IdempotencyKey        string          `gorm:"type:varchar(128);not null;uniqueIndex" json:"idempotency_key"`
	PaymentMethod         string          `gorm:"type:varchar(128);not null" json:"payment_method"`
	TotalAmount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency              string          `gorm:"type:varchar(3);not null" json:"currency"`
	BillingAddress        Address         `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`
	Status                PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	ExternalTransactionID *string         `gorm:"type:varchar(255)" json:"external_transaction_id"`
	ErrorMessage          *string         `gorm:"type:text" json:"error_message"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
