package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusConfirmed))
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusFailed))
	assert.True(t, CanTransition(OrderStatusConfirmed, OrderStatusCancelled))
	assert.True(t, CanTransition(OrderStatusFailed, OrderStatusCancelled))

	assert.False(t, CanTransition(OrderStatusConfirmed, OrderStatusFailed))
	assert.False(t, CanTransition(OrderStatusFailed, OrderStatusConfirmed))
	assert.False(t, CanTransition(OrderStatusPending, OrderStatusCancelled))
	assert.False(t, CanTransition(OrderStatusCancelled, OrderStatusPending))
	assert.False(t, CanTransition(OrderStatusConfirmed, OrderStatusPending))
}

func TestPaymentStatusTerminal(t *testing.T) {
	assert.False(t, PaymentStatusPending.Terminal())
	assert.True(t, PaymentStatusConfirmed.Terminal())
	assert.True(t, PaymentStatusRejected.Terminal())
}
