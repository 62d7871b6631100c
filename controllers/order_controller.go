package controllers

import (
	"context"
	"net/http"
	"strconv"

	apperrors "checkout-service/common/errors"
	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderReader is the order service as the HTTP layer sees it.
type OrderReader interface {
	GetUserOrders(ctx context.Context, userID string, page, limit int) (*services.OrderResponse, error)
	GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*services.OrderDetails, error)
	GetOrderItems(ctx context.Context, userID string, orderID uuid.UUID) ([]models.OrderItem, error)
	GetPaymentForOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Payment, error)
	CancelOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error)
}

type OrderController struct {
	orders OrderReader
}

func NewOrderController(orders OrderReader) *OrderController {
	return &OrderController{orders: orders}
}

// GetOrders returns paginated orders for the authenticated user
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, limit := parsePaginationParams(ctx)
	result, err := oc.orders.GetUserOrders(ctx.Request.Context(), userID, page, limit)
	if err != nil {
		_ = ctx.Error(apperrors.Internal("Failed to fetch orders", err))
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetOrderByID returns a specific order and its payment
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	userID, orderID, ok := userAndOrder(ctx, "id")
	if !ok {
		return
	}

	details, err := oc.orders.GetOrder(ctx.Request.Context(), userID, orderID)
	if err != nil {
		_ = ctx.Error(toAppError(err))
		return
	}
	ctx.JSON(http.StatusOK, details)
}

func (oc *OrderController) GetOrderItems(ctx *gin.Context) {
	userID, orderID, ok := userAndOrder(ctx, "id")
	if !ok {
		return
	}

	items, err := oc.orders.GetOrderItems(ctx.Request.Context(), userID, orderID)
	if err != nil {
		_ = ctx.Error(toAppError(err))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"items": items})
}

func (oc *OrderController) CancelOrder(ctx *gin.Context) {
	userID, orderID, ok := userAndOrder(ctx, "id")
	if !ok {
		return
	}

	order, err := oc.orders.CancelOrder(ctx.Request.Context(), userID, orderID)
	if err != nil {
		_ = ctx.Error(toAppError(err))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// GetPaymentByOrderID returns the latest payment for one of the user's orders
func (oc *OrderController) GetPaymentByOrderID(ctx *gin.Context) {
	userID, orderID, ok := userAndOrder(ctx, "orderId")
	if !ok {
		return
	}

	payment, err := oc.orders.GetPaymentForOrder(ctx.Request.Context(), userID, orderID)
	if err != nil {
		_ = ctx.Error(toAppError(err))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": payment})
}

// userAndOrder reads the caller and the order id path parameter, writing the error
// response itself when either is missing.
func userAndOrder(ctx *gin.Context, param string) (string, uuid.UUID, bool) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", uuid.Nil, false
	}
	orderID, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		_ = ctx.Error(apperrors.BadRequest("INVALID_ORDER_ID", "Invalid order ID format", err))
		return "", uuid.Nil, false
	}
	return userID, orderID, true
}

// parsePaginationParams extracts and validates pagination parameters
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	pageInt := DefaultPage
	limitInt := DefaultLimit

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limitInt = l
	}
	if limitInt > MaxLimit {
		limitInt = MaxLimit
	}
	return pageInt, limitInt
}
