package services

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/clients"
	"checkout-service/models"
	"checkout-service/pkg/money"
	"checkout-service/repository"

	"github.com/shopspring/decimal"
)

// OrderBuilder turns validated items into a persisted pending order.
type OrderBuilder struct {
	users  UserDirectory
	orders repository.OrderRepository
}

func NewOrderBuilder(users UserDirectory, orders repository.OrderRepository) *OrderBuilder {
	return &OrderBuilder{users: users, orders: orders}
}

// CreatePendingOrder stores a pending order shipped to the user's profile address. The
// order and its items are written in one transaction.
func (b *OrderBuilder) CreatePendingOrder(ctx context.Context, userID string, items []models.ValidatedItem) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	total := OrderTotal(items)
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrNonPositiveTotal, total.StringFixed(models.AmountScale))
	}

	profile, err := b.users.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, upstream("user", err)
	}

	order := &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPending,
		ShippingAddress: profile.ShippingAddress,
		TotalAmount:     total,
		Items:           make([]models.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.UnitPrice,
		})
	}

	if err := b.orders.CreateWithItems(ctx, order); err != nil {
		return nil, fmt.Errorf("create pending order: %w", err)
	}
	return order, nil
}

// OrderTotal is the exact sum of quantity × unit price over items.
func OrderTotal(items []models.ValidatedItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(money.LineTotal(it.UnitPrice, it.Quantity))
	}
	return total
}
