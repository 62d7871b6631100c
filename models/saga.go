package models

import (
	"time"

	"github.com/google/uuid"
)

type SagaState string

const (
	SagaStarted        SagaState = "started"
	SagaCartFetched    SagaState = "cart_fetched"
	SagaValidated      SagaState = "validated"
	SagaOrderPending   SagaState = "order_pending"
	SagaPaymentDecided SagaState = "payment_decided"
	SagaFinalized      SagaState = "finalized"
	SagaFailedRecorded SagaState = "failed_recorded"
	SagaAborted        SagaState = "aborted"
)

// SagaLog is one append-only row per checkout state transition.
type SagaLog struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	SagaID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"saga_id"`
	OrderID   *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	UserID    string     `gorm:"type:varchar(64);not null" json:"user_id"`
	State     SagaState  `gorm:"type:varchar(32);not null" json:"state"`
	Detail    string     `gorm:"type:text" json:"detail,omitempty"`
	TraceID   string     `gorm:"type:varchar(32);index" json:"trace_id,omitempty"`
	SpanID    string     `gorm:"type:varchar(16)" json:"span_id,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
