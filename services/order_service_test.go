package services

import (
	"context"
	"testing"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	events   *fakeEvents
	svc      *OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := setupDB(t)
	f := &orderFixture{
		orders:   repository.NewGormOrderRepository(db),
		payments: repository.NewPaymentRepository(db),
		events:   &fakeEvents{},
	}
	f.svc = NewOrderService(f.orders, f.payments, f.events)
	return f
}

func (f *orderFixture) createOrder(t *testing.T, userID string, status models.OrderStatus) *models.Order {
	t.Helper()
	o := &models.Order{
		UserID:      userID,
		Status:      models.OrderStatusPending,
		TotalAmount: price("20.00"),
		Items:       []models.OrderItem{{ProductID: "1", Quantity: 2, PriceAtPurchase: price("10.00")}},
	}
	require.NoError(t, f.orders.CreateWithItems(context.Background(), o))
	if status != models.OrderStatusPending {
		var err error
		o, err = f.orders.UpdateStatus(context.Background(), o.ID, status, nil)
		require.NoError(t, err)
	}
	return o
}

func TestOrderService_GetOrderChecksOwner(t *testing.T) {
	f := newOrderFixture(t)
	o := f.createOrder(t, "42", models.OrderStatusPending)
	ctx := context.Background()

	details, err := f.svc.GetOrder(ctx, "42", o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, details.Order.ID)
	assert.Nil(t, details.Payment)

	_, err = f.svc.GetOrder(ctx, "7", o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.GetPaymentForOrder(ctx, "42", o.ID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	items, err := f.svc.GetOrderItems(ctx, "42", o.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestOrderService_Pagination(t *testing.T) {
	f := newOrderFixture(t)
	for i := 0; i < 3; i++ {
		f.createOrder(t, "42", models.OrderStatusPending)
	}
	f.createOrder(t, "other", models.OrderStatusPending)

	resp, err := f.svc.GetUserOrders(context.Background(), "42", 1, 2)
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 2)
	assert.EqualValues(t, 3, resp.Meta.TotalOrders)
	assert.EqualValues(t, 2, resp.Meta.TotalPages)
	assert.True(t, resp.Meta.HasMore)
}

func TestOrderService_Cancel(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	confirmed := f.createOrder(t, "42", models.OrderStatusConfirmed)
	cancelled, err := f.svc.CancelOrder(ctx, "42", confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, []string{models.EventOrderCancelled}, f.events.types())

	again, err := f.svc.CancelOrder(ctx, "42", confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, again.Status)
	assert.Len(t, f.events.types(), 1)

	failed := f.createOrder(t, "42", models.OrderStatusFailed)
	cancelled, err = f.svc.CancelOrder(ctx, "42", failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	pending := f.createOrder(t, "42", models.OrderStatusPending)
	_, err = f.svc.CancelOrder(ctx, "42", pending.ID)
	assert.ErrorIs(t, err, ErrOrderNotCancelable)
	stored, err := f.orders.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	_, err = f.svc.CancelOrder(ctx, "42", uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
