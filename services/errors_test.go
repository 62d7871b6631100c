package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	up := &UpstreamUnavailableError{Service: "cart", Err: errBoom}
	orderID := uuid.New()

	assert.True(t, IsRetryable(up))
	assert.True(t, IsRetryable(&SagaError{Err: up}))
	assert.False(t, IsRetryable(&SagaError{OrderID: &orderID, Err: up}))
	assert.False(t, IsRetryable(&SagaError{Err: ErrEmptyCart}))
	assert.False(t, IsRetryable(errBoom))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(&SagaError{Err: &InvalidQuantityError{ProductID: "1"}}))
	assert.True(t, IsValidation(ErrUserNotFound))
	assert.False(t, IsValidation(ErrCheckoutInProgress))
	assert.False(t, IsValidation(&UpstreamUnavailableError{Service: "user", Err: errBoom}))
}

func TestPartialFinalizationError_Unwraps(t *testing.T) {
	cartErr := errors.New("cart down")
	err := &SagaError{Err: &PartialFinalizationError{InventoryErr: errBoom, CartErr: cartErr}}

	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, cartErr)
	assert.Contains(t, err.Error(), "inventory: boom")
	assert.Contains(t, err.Error(), "cart: cart down")

	confirmErr := &SagaError{Err: &PartialFinalizationError{ConfirmErr: errBoom}}
	assert.ErrorIs(t, confirmErr, errBoom)
	assert.Contains(t, confirmErr.Error(), "confirm order: boom")
}
