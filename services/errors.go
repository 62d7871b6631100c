package services

import (
	"errors"
	"fmt"
	"strings"

	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validation failures. None of them leaves side effects behind.
var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrCartNotFound = errors.New("cart not found")
	ErrUserNotFound = errors.New("user not found")
)

// ErrInvalidPaymentInfo means the submitted payment details cannot be charged.
var ErrInvalidPaymentInfo = errors.New("invalid payment info")

// ErrNonPositiveTotal means the validated items add up to nothing chargeable.
var ErrNonPositiveTotal = errors.New("order total must be positive")

// ErrCheckoutInProgress means another checkout for the same user holds the lock.
var ErrCheckoutInProgress = errors.New("a checkout is already in progress for this user")

// ErrPaymentInProgress means the payment for this order is still pending under
// another attempt; the order is left for that attempt to finish.
var ErrPaymentInProgress = errors.New("payment for this order is still being processed")

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrOrderNotCancelable = errors.New("order cannot be cancelled in its current status")
)

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type ProductInactiveError struct {
	ProductID string
	Name      string
}

func (e *ProductInactiveError) Error() string {
	return fmt.Sprintf("product %q (%s) is no longer available", e.Name, e.ProductID)
}

type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (%s): requested %d, available %d", e.Name, e.ProductID, e.Requested, e.Available)
}

// InvalidPriceError is a catalog price that is negative or finer than the stored scale.
type InvalidPriceError struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("product %q (%s) has an unusable price %s", e.Name, e.ProductID, e.Price)
}

type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

// UpstreamUnavailableError wraps a collaborator that failed in transport, timed out or
// answered with an unexpected status.
type UpstreamUnavailableError struct {
	Service string
	Err     error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s service unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// PartialFinalizationError is returned after a confirmed payment when the order status
// update, inventory decrements or the cart clear did not all succeed. The payment is
// never rolled back. ConfirmErr set means the order could not be marked confirmed.
type PartialFinalizationError struct {
	OrderID      uuid.UUID
	PaymentID    uuid.UUID
	ConfirmErr   error
	InventoryErr error
	CartErr      error
}

func (e *PartialFinalizationError) Error() string {
	var parts []string
	if e.ConfirmErr != nil {
		parts = append(parts, "confirm order: "+e.ConfirmErr.Error())
	}
	if e.InventoryErr != nil {
		parts = append(parts, "inventory: "+e.InventoryErr.Error())
	}
	if e.CartErr != nil {
		parts = append(parts, "cart: "+e.CartErr.Error())
	}
	return fmt.Sprintf("order %s paid by payment %s but finalization incomplete (%s)", e.OrderID, e.PaymentID, strings.Join(parts, "; "))
}

func (e *PartialFinalizationError) Unwrap() []error {
	var errs []error
	if e.ConfirmErr != nil {
		errs = append(errs, e.ConfirmErr)
	}
	if e.InventoryErr != nil {
		errs = append(errs, e.InventoryErr)
	}
	if e.CartErr != nil {
		errs = append(errs, e.CartErr)
	}
	return errs
}

// SagaError records where in the checkout a failure happened. OrderID is set once
// a pending order exists.
type SagaError struct {
	State   models.SagaState
	OrderID *uuid.UUID
	Err     error
}

func (e *SagaError) Error() string {
	return fmt.Sprintf("checkout failed at %s: %v", e.State, e.Err)
}

func (e *SagaError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a business validation failure.
func IsValidation(err error) bool {
	if errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrCartNotFound) || errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrInvalidPaymentInfo) || errors.Is(err, ErrNonPositiveTotal) {
		return true
	}
	var (
		notFound *ProductNotFoundError
		inactive *ProductInactiveError
		stock    *InsufficientStockError
		qty      *InvalidQuantityError
		priced   *InvalidPriceError
	)
	return errors.As(err, &notFound) || errors.As(err, &inactive) || errors.As(err, &stock) ||
		errors.As(err, &qty) || errors.As(err, &priced)
}

// IsRetryable reports whether a failed checkout can be safely run again: only upstream
// failures that happened before any order was written qualify.
func IsRetryable(err error) bool {
	var up *UpstreamUnavailableError
	if !errors.As(err, &up) {
		return false
	}
	var saga *SagaError
	if errors.As(err, &saga) && saga.OrderID != nil {
		return false
	}
	return true
}
