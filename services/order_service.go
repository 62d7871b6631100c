package services

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/common/logger"
	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderDetails is an order together with its latest payment, if any.
type OrderDetails struct {
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment,omitempty"`
}

// OrderService serves read access to orders and customer cancellation.
type OrderService struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	events   OrderEventPublisher
}

func NewOrderService(orders repository.OrderRepository, payments repository.PaymentRepository, events OrderEventPublisher) *OrderService {
	return &OrderService{orders: orders, payments: payments, events: events}
}

// GetUserOrders retrieves paginated orders for a specific user
func (s *OrderService) GetUserOrders(ctx context.Context, userID string, page, limit int) (*OrderResponse, error) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		logger.Error(ctx, "Failed to fetch orders", err, zap.String("user_id", userID))
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	return &OrderResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}, nil
}

// GetOrder returns the user's order and its latest payment.
func (s *OrderService) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*OrderDetails, error) {
	order, err := s.findOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}
	return &OrderDetails{Order: order, Payment: payment}, nil
}

func (s *OrderService) GetOrderItems(ctx context.Context, userID string, orderID uuid.UUID) ([]models.OrderItem, error) {
	if _, err := s.findOwned(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return s.orders.FindItems(ctx, orderID)
}

// GetPaymentForOrder returns the latest payment of an order the user owns.
func (s *OrderService) GetPaymentForOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Payment, error) {
	if _, err := s.findOwned(ctx, userID, orderID); err != nil {
		return nil, err
	}
	p, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// CancelOrder cancels a confirmed or failed order. A pending order is still owned by its
// checkout and gets ErrOrderNotCancelable. Payments are not refunded here;
// the order_cancelled event is what downstream refund handling listens to.
func (s *OrderService) CancelOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.findOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		return order, nil
	}
	if !models.CanTransition(order.Status, models.OrderStatusCancelled) {
		return nil, ErrOrderNotCancelable
	}

	cancelled, err := s.orders.UpdateStatus(ctx, orderID, models.OrderStatusCancelled, nil)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, ErrOrderNotCancelable
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	logger.Info(ctx, "Order cancelled", zap.String("order_id", orderID.String()), zap.String("user_id", userID))
	publishBestEffort(ctx, s.events, NewOrderEvent(models.EventOrderCancelled, cancelled))
	return cancelled, nil
}

func (s *OrderService) findOwned(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	return order, nil
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
