package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"checkout-service/clients"
	"checkout-service/database"
	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
)

type fakeCart struct {
	mu       sync.Mutex
	carts    map[string][]models.CartLine
	getErr   error
	clearErr error
	cleared  []string
}

func (f *fakeCart) GetCart(_ context.Context, userID string) (*models.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	lines, ok := f.carts[userID]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return &models.CartSnapshot{UserID: userID, Items: append([]models.CartLine(nil), lines...)}, nil
}

func (f *fakeCart) ClearCart(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.carts[userID] = nil
	f.cleared = append(f.cleared, userID)
	return nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
	getErr   error
	decErr   map[string]error
	lookups  int32
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	atomic.AddInt32(&f.lookups, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.products[id]
	if !ok {
		return nil, clients.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) DecreaseInventory(_ context.Context, id string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.decErr[id]; err != nil {
		return err
	}
	p, ok := f.products[id]
	if !ok {
		return clients.ErrNotFound
	}
	p.Inventory -= qty
	return nil
}

func (f *fakeCatalog) inventory(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Inventory
}

type fakeUsers struct {
	profiles map[string]*models.UserProfile
	err      error
}

func (f *fakeUsers) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return p, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	msgs []models.OrderConfirmation
}

func (f *fakeQueue) Enqueue(msg models.OrderConfirmation) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return true
}

type fakeProcessor struct {
	calls  int32
	status string
	err    error
	last   ChargeParams
	mu     sync.Mutex
}

func (f *fakeProcessor) CreateCharge(_ context.Context, params ChargeParams) (*ChargeResult, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.last = params
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == "" {
		status = ProcessorStatusSucceeded
	}
	return &ChargeResult{TransactionID: "txn_" + params.IdempotencyKey, Status: status}, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []models.OrderEvent
	err    error
}

func (f *fakeEvents) PublishOrderEvent(_ context.Context, evt models.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return f.err
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context, string) (func(context.Context) error, error) {
	if f.held {
		return nil, ErrCheckoutInProgress
	}
	f.held = true
	return func(context.Context) error {
		f.held = false
		f.released++
		return nil
	}, nil
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var errBoom = errors.New("boom")

const testUser = "42"

type harness struct {
	db        *gorm.DB
	carts     *fakeCart
	catalog   *fakeCatalog
	users     *fakeUsers
	queue     *fakeQueue
	processor *fakeProcessor
	events    *fakeEvents
	lock      *fakeLock
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	sagas     repository.SagaLogRepository
	spans     *tracetest.SpanRecorder
	deps      CheckoutDeps
	svc       *CheckoutService
}

// newHarness builds a checkout where user 42 has product 1 (price 10.00, inventory 5)
// twice in the cart.
func newHarness(t *testing.T) *harness {
	t.Helper()
	db := setupDB(t)
	h := &harness{
		db: db,
		carts: &fakeCart{carts: map[string][]models.CartLine{
			testUser: {{ProductID: "1", Quantity: 2}},
		}},
		catalog: &fakeCatalog{products: map[string]*models.Product{
			"1": {ID: "1", Name: "Widget", Price: price("10.00"), Inventory: 5, IsActive: true},
		}},
		users: &fakeUsers{profiles: map[string]*models.UserProfile{
			testUser: {ID: testUser, Email: "shopper@example.com", ShippingAddress: models.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701"}},
		}},
		queue:     &fakeQueue{},
		processor: &fakeProcessor{},
		events:    &fakeEvents{},
		lock:      &fakeLock{},
		orders:    repository.NewGormOrderRepository(db),
		payments:  repository.NewPaymentRepository(db),
		sagas:     repository.NewSagaLogRepository(db),
		spans:     tracetest.NewSpanRecorder(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	h.deps = CheckoutDeps{
		Carts:         h.carts,
		Catalog:       h.catalog,
		Users:         h.users,
		Orders:        h.orders,
		Payments:      NewPaymentService(h.payments, h.processor),
		SagaLogs:      h.sagas,
		Notifications: h.queue,
		Events:        h.events,
		Lock:          h.lock,
		Tracing:       tp,
		Concurrency:   4,
	}
	h.svc = NewCheckoutService(h.deps)
	return h
}

// rewire rebuilds the coordinator after fn adjusts its dependencies.
func (h *harness) rewire(fn func(d *CheckoutDeps)) {
	fn(&h.deps)
	h.svc = NewCheckoutService(h.deps)
}

// failingConfirm rejects every attempt to confirm an order.
type failingConfirm struct {
	repository.OrderRepository
	err error
}

func (f *failingConfirm) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, paymentID *uuid.UUID) (*models.Order, error) {
	if status == models.OrderStatusConfirmed {
		return nil, f.err
	}
	return f.OrderRepository.UpdateStatus(ctx, id, status, paymentID)
}

// cancellingProcessor cancels the order from inside the charge, the way a concurrent
// cancel request would land while payment is in flight.
type cancellingProcessor struct {
	*fakeProcessor
	orders    *OrderService
	userID    string
	cancelErr error
}

func (p *cancellingProcessor) CreateCharge(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	orderID, err := uuid.Parse(params.Metadata["order_id"])
	if err != nil {
		return nil, err
	}
	_, p.cancelErr = p.orders.CancelOrder(ctx, p.userID, orderID)
	return p.fakeProcessor.CreateCharge(ctx, params)
}

func (h *harness) checkout(t *testing.T) (*CheckoutResult, error) {
	t.Helper()
	return h.svc.Checkout(context.Background(), CheckoutInput{
		UserID:    testUser,
		UserEmail: "shopper@example.com",
		PaymentInfo: models.PaymentInfo{
			Method:      "pm_card_visa",
			BillingInfo: models.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701"},
		},
	})
}
