package controllers

import (
	"errors"
	"net/http"

	apperrors "checkout-service/common/errors"
	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

type CheckoutController struct {
	checkout services.Checkouter
}

func NewCheckoutController(checkout services.Checkouter) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// Checkout handles POST /checkout.
func (cc *CheckoutController) Checkout(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		_ = ctx.Error(apperrors.BadRequest("INVALID_REQUEST", "Invalid request", err).
			WithDetail("reason", err.Error()))
		return
	}

	result, err := cc.checkout.Checkout(ctx.Request.Context(), services.CheckoutInput{
		UserID:      userID,
		UserEmail:   middleware.GetUserEmail(ctx),
		PaymentInfo: req.PaymentInfo,
	})

	var partial *services.PartialFinalizationError
	switch {
	case err != nil && errors.As(err, &partial) && result != nil:
		_ = ctx.Error(toAppError(err).
			WithDetail("order", result.Order).
			WithDetail("payment", result.Payment))
	case err != nil:
		_ = ctx.Error(toAppError(err))
	case result.Outcome == services.OutcomePaymentFailed:
		ctx.JSON(http.StatusCreated, gin.H{
			"error":   "Payment failed",
			"order":   result.Order,
			"payment": result.Payment,
		})
	default:
		ctx.JSON(http.StatusCreated, gin.H{
			"order":   result.Order,
			"payment": result.Payment,
		})
	}
}
