package controllers

import (
	"errors"
	"net/http"

	apperrors "checkout-service/common/errors"
	"checkout-service/services"
)

// toAppError maps service failures onto HTTP errors.
func toAppError(err error) *apperrors.Error {
	var (
		partial  *services.PartialFinalizationError
		upstream *services.UpstreamUnavailableError
		notFound *services.ProductNotFoundError
		inactive *services.ProductInactiveError
		stock    *services.InsufficientStockError
		qty      *services.InvalidQuantityError
		priced   *services.InvalidPriceError
	)

	switch {
	case errors.Is(err, services.ErrEmptyCart):
		return apperrors.NotFound("CART_EMPTY", "Cart is empty", err)
	case errors.Is(err, services.ErrCartNotFound):
		return apperrors.NotFound("CART_NOT_FOUND", "Cart not found", err)
	case errors.Is(err, services.ErrCheckoutInProgress):
		return apperrors.Conflict("CHECKOUT_IN_PROGRESS", "A checkout is already in progress", err)
	case errors.Is(err, services.ErrPaymentInProgress):
		return apperrors.Conflict("PAYMENT_IN_PROGRESS", "Payment is still being processed", err)
	case errors.Is(err, services.ErrOrderNotFound):
		return apperrors.NotFound("ORDER_NOT_FOUND", "Order not found", err)
	case errors.Is(err, services.ErrPaymentNotFound):
		return apperrors.NotFound("PAYMENT_NOT_FOUND", "Payment not found", err)
	case errors.Is(err, services.ErrOrderNotCancelable):
		return apperrors.Conflict("ORDER_NOT_CANCELABLE", "Order cannot be cancelled", err)
	case errors.Is(err, services.ErrUserNotFound):
		return apperrors.BadRequest("USER_NOT_FOUND", "User not found", err)
	case errors.Is(err, services.ErrNonPositiveTotal):
		return apperrors.BadRequest("INVALID_ORDER_TOTAL", "Order total must be positive", err)
	case errors.Is(err, services.ErrInvalidPaymentInfo):
		return apperrors.BadRequest("INVALID_PAYMENT_INFO", err.Error(), err)
	case errors.As(err, &notFound):
		return apperrors.BadRequest("PRODUCT_NOT_FOUND", notFound.Error(), err).
			WithDetail("product_id", notFound.ProductID)
	case errors.As(err, &inactive):
		return apperrors.BadRequest("PRODUCT_INACTIVE", inactive.Error(), err).
			WithDetail("product_id", inactive.ProductID)
	case errors.As(err, &stock):
		return apperrors.BadRequest("INSUFFICIENT_STOCK", stock.Error(), err).
			WithDetail("product_id", stock.ProductID).
			WithDetail("requested", stock.Requested).
			WithDetail("available", stock.Available)
	case errors.As(err, &qty):
		return apperrors.BadRequest("INVALID_QUANTITY", qty.Error(), err).
			WithDetail("product_id", qty.ProductID)
	case errors.As(err, &priced):
		return apperrors.BadRequest("INVALID_PRICE", priced.Error(), err).
			WithDetail("product_id", priced.ProductID)
	case errors.As(err, &partial):
		return apperrors.New(http.StatusInternalServerError, "PARTIAL_FINALIZATION",
			"Payment captured but finalization incomplete", err)
	case errors.As(err, &upstream):
		return apperrors.BadGateway("UPSTREAM_UNAVAILABLE", upstream.Service+" service unavailable", err)
	default:
		return apperrors.Internal("Internal server error", err)
	}
}
