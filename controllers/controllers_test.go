package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "checkout-service/common/errors"
	"checkout-service/controllers"
	"checkout-service/models"
	"checkout-service/routes"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCheckout struct {
	result *services.CheckoutResult
	err    error
	got    services.CheckoutInput
}

func (m *mockCheckout) Checkout(_ context.Context, in services.CheckoutInput) (*services.CheckoutResult, error) {
	m.got = in
	return m.result, m.err
}

type mockOrders struct {
	order    *models.Order
	payment  *models.Payment
	err      error
	page     int
	limit    int
	cancelID uuid.UUID
}

func (m *mockOrders) GetUserOrders(_ context.Context, _ string, page, limit int) (*services.OrderResponse, error) {
	m.page, m.limit = page, limit
	if m.err != nil {
		return nil, m.err
	}
	return &services.OrderResponse{Orders: []models.Order{*m.order}, Meta: services.MetaData{Page: page, Limit: limit, TotalOrders: 1, TotalPages: 1}}, nil
}

func (m *mockOrders) GetOrder(context.Context, string, uuid.UUID) (*services.OrderDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &services.OrderDetails{Order: m.order, Payment: m.payment}, nil
}

func (m *mockOrders) GetOrderItems(context.Context, string, uuid.UUID) ([]models.OrderItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order.Items, nil
}

func (m *mockOrders) GetPaymentForOrder(context.Context, string, uuid.UUID) (*models.Payment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.payment, nil
}

func (m *mockOrders) CancelOrder(_ context.Context, _ string, id uuid.UUID) (*models.Order, error) {
	m.cancelID = id
	if m.err != nil {
		return nil, m.err
	}
	o := *m.order
	o.Status = models.OrderStatusCancelled
	return &o, nil
}

func setupRouter(checkout services.Checkouter, orders controllers.OrderReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	routes.RegisterRoutes(r, controllers.NewCheckoutController(checkout), controllers.NewOrderController(orders), nil)
	return r
}

func sampleOrder() (*models.Order, *models.Payment) {
	pid := uuid.New()
	order := &models.Order{
		ID:          uuid.New(),
		UserID:      "42",
		Status:      models.OrderStatusConfirmed,
		TotalAmount: decimal.RequireFromString("20.00"),
		PaymentID:   &pid,
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: "1", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("10.00")},
		},
	}
	payment := &models.Payment{ID: pid, OrderID: order.ID, Status: models.PaymentStatusConfirmed, TotalAmount: order.TotalAmount}
	return order, payment
}

func postCheckout(r *gin.Engine, body string, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Email", "shopper@example.com")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validBody = `{"paymentInfo":{"method":"pm_card_visa","billingInfo":{"street":"1 Main","city":"X","state":"Y","zip":"1"}}}`

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCheckout_Confirmed(t *testing.T) {
	order, payment := sampleOrder()
	mc := &mockCheckout{result: &services.CheckoutResult{Outcome: services.OutcomeConfirmed, Order: order, Payment: payment}}
	r := setupRouter(mc, &mockOrders{})

	w := postCheckout(r, validBody, "42")

	assert.Equal(t, http.StatusCreated, w.Code)
	out := decode(t, w)
	assert.NotContains(t, out, "error")
	assert.Contains(t, out, "order")
	assert.Contains(t, out, "payment")
	assert.Equal(t, "42", mc.got.UserID)
	assert.Equal(t, "shopper@example.com", mc.got.UserEmail)
	assert.Equal(t, "pm_card_visa", mc.got.PaymentInfo.Method)
	assert.Equal(t, "1 Main", mc.got.PaymentInfo.BillingInfo.Street)
}

func TestCheckout_PaymentFailedIs201WithError(t *testing.T) {
	order, payment := sampleOrder()
	order.Status = models.OrderStatusFailed
	payment.Status = models.PaymentStatusRejected
	mc := &mockCheckout{result: &services.CheckoutResult{Outcome: services.OutcomePaymentFailed, Order: order, Payment: payment}}
	r := setupRouter(mc, &mockOrders{})

	w := postCheckout(r, validBody, "42")

	assert.Equal(t, http.StatusCreated, w.Code)
	out := decode(t, w)
	assert.Equal(t, "Payment failed", out["error"])
	assert.Contains(t, out, "order")
}

func TestCheckout_ErrorMapping(t *testing.T) {
	orderID := uuid.New()
	cases := []struct {
		name string
		err  error
		code int
		typ  string
	}{
		{"empty cart", &services.SagaError{State: models.SagaStarted, Err: services.ErrEmptyCart}, http.StatusNotFound, "CART_EMPTY"},
		{"missing cart", services.ErrCartNotFound, http.StatusNotFound, "CART_NOT_FOUND"},
		{"inactive", &services.SagaError{Err: &services.ProductInactiveError{ProductID: "2"}}, http.StatusBadRequest, "PRODUCT_INACTIVE"},
		{"stock", &services.InsufficientStockError{ProductID: "3", Requested: 5, Available: 1}, http.StatusBadRequest, "INSUFFICIENT_STOCK"},
		{"zero total", &services.SagaError{Err: fmt.Errorf("%w: got 0.00", services.ErrNonPositiveTotal)}, http.StatusBadRequest, "INVALID_ORDER_TOTAL"},
		{"price", &services.InvalidPriceError{ProductID: "4"}, http.StatusBadRequest, "INVALID_PRICE"},
		{"user", services.ErrUserNotFound, http.StatusBadRequest, "USER_NOT_FOUND"},
		{"locked", services.ErrCheckoutInProgress, http.StatusConflict, "CHECKOUT_IN_PROGRESS"},
		{"pending payment", &services.SagaError{OrderID: &orderID, Err: services.ErrPaymentInProgress}, http.StatusConflict, "PAYMENT_IN_PROGRESS"},
		{"upstream", &services.SagaError{Err: &services.UpstreamUnavailableError{Service: "cart", Err: errors.New("boom")}}, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"other", errors.New("db gone"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouter(&mockCheckout{err: tc.err}, &mockOrders{})
			w := postCheckout(r, validBody, "42")
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.typ, decode(t, w)["code"])
		})
	}
}

func TestCheckout_PartialFinalizationCarriesOrder(t *testing.T) {
	order, payment := sampleOrder()
	partial := &services.PartialFinalizationError{OrderID: order.ID, PaymentID: payment.ID, CartErr: errors.New("cart down")}
	mc := &mockCheckout{
		result: &services.CheckoutResult{Outcome: services.OutcomeConfirmed, Order: order, Payment: payment},
		err:    &services.SagaError{State: models.SagaFinalized, OrderID: &order.ID, Err: partial},
	}
	r := setupRouter(mc, &mockOrders{})

	w := postCheckout(r, validBody, "42")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	out := decode(t, w)
	assert.Equal(t, "PARTIAL_FINALIZATION", out["code"])
	details, ok := out["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "order")
	assert.Contains(t, details, "payment")
}

func TestCheckout_RequiresUserAndBody(t *testing.T) {
	r := setupRouter(&mockCheckout{}, &mockOrders{})

	assert.Equal(t, http.StatusUnauthorized, postCheckout(r, validBody, "").Code)

	w := postCheckout(r, `{"paymentInfo":{}}`, "42")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])
}

func doGet(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-User-ID", "42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOrders_ListUsesPagination(t *testing.T) {
	order, _ := sampleOrder()
	mo := &mockOrders{order: order}
	r := setupRouter(&mockCheckout{}, mo)

	w := doGet(r, http.MethodGet, "/orders?page=2&limit=500")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, mo.page)
	assert.Equal(t, 100, mo.limit)
}

func TestOrders_GetAndItems(t *testing.T) {
	order, payment := sampleOrder()
	r := setupRouter(&mockCheckout{}, &mockOrders{order: order, payment: payment})

	w := doGet(r, http.MethodGet, "/orders/"+order.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Contains(t, out, "order")
	assert.Contains(t, out, "payment")

	w = doGet(r, http.MethodGet, "/orders/"+order.ID.String()+"/items")
	assert.Equal(t, http.StatusOK, w.Code)
	items, ok := decode(t, w)["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)

	w = doGet(r, http.MethodGet, "/payments/order/"+order.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrders_InvalidAndMissing(t *testing.T) {
	r := setupRouter(&mockCheckout{}, &mockOrders{err: services.ErrOrderNotFound})

	w := doGet(r, http.MethodGet, "/orders/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doGet(r, http.MethodGet, "/orders/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", decode(t, w)["code"])
}

func TestOrders_Cancel(t *testing.T) {
	order, _ := sampleOrder()
	mo := &mockOrders{order: order}
	r := setupRouter(&mockCheckout{}, mo)

	w := doGet(r, http.MethodPut, "/orders/"+order.ID.String()+"/cancel")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.ID, mo.cancelID)

	r = setupRouter(&mockCheckout{}, &mockOrders{order: order, err: services.ErrOrderNotCancelable})
	w = doGet(r, http.MethodPut, "/orders/"+order.ID.String()+"/cancel")
	assert.Equal(t, http.StatusConflict, w.Code)
}
