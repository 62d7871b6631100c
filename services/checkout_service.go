package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"checkout-service/common/logger"
	"checkout-service/models"
	"checkout-service/pkg/money"
	"checkout-service/repository"

	aws_pkg "checkout-service/pkg/aws"
	"checkout-service/pkg/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "checkout-service/services"

type CheckoutOutcome string

const (
	OutcomeConfirmed     CheckoutOutcome = "confirmed"
	OutcomePaymentFailed CheckoutOutcome = "payment_failed"
)

// CheckoutInput is one checkout request for an authenticated user.
type CheckoutInput struct {
	UserID      string
	UserEmail   string
	PaymentInfo models.PaymentInfo
}

// CheckoutResult is returned for both a confirmed order and a declined payment.
type CheckoutResult struct {
	SagaID  uuid.UUID       `json:"saga_id"`
	Outcome CheckoutOutcome `json:"outcome"`
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment"`
}

// ConfirmationQueue accepts order confirmations for asynchronous delivery.
type ConfirmationQueue interface {
	Enqueue(msg models.OrderConfirmation) bool
}

// CheckoutDeps wires the coordinator. Lock, Events, SagaLogs, Notifications, Metrics and
// Tracing are optional; Tracing defaults to the global provider.
type CheckoutDeps struct {
	Carts           CartService
	Catalog         ProductCatalog
	Users           UserDirectory
	Orders          repository.OrderRepository
	Payments        *PaymentService
	SagaLogs        repository.SagaLogRepository
	Notifications   ConfirmationQueue
	Events          OrderEventPublisher
	Lock            CheckoutLock
	Metrics         MetricsRecorder
	Logger          *zap.Logger
	Tracing         trace.TracerProvider
	DefaultCurrency string
	Concurrency     int
}

// CheckoutService runs the checkout saga: cart, validation, pending order, payment and
// then either finalization or failure recording.
type CheckoutService struct {
	carts     *CartSnapshotReader
	validator *ItemValidator
	builder   *OrderBuilder
	catalog   ProductCatalog
	orders    repository.OrderRepository
	payments  *PaymentService
	sagaLogs  repository.SagaLogRepository
	notify    ConfirmationQueue
	events    OrderEventPublisher
	lock      CheckoutLock
	metrics   MetricsRecorder
	logger    *zap.Logger
	tracer    trace.Tracer
	currency  string
	workers   int
}

func NewCheckoutService(d CheckoutDeps) *CheckoutService {
	if d.Lock == nil {
		d.Lock = noopLock{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Concurrency < 1 {
		d.Concurrency = 4
	}
	if d.Tracing == nil {
		d.Tracing = otel.GetTracerProvider()
	}
	return &CheckoutService{
		carts:     NewCartSnapshotReader(d.Carts),
		validator: NewItemValidator(d.Catalog, d.Concurrency),
		builder:   NewOrderBuilder(d.Users, d.Orders),
		catalog:   d.Catalog,
		orders:    d.Orders,
		payments:  d.Payments,
		sagaLogs:  d.SagaLogs,
		notify:    d.Notifications,
		events:    d.Events,
		lock:      d.Lock,
		metrics:   d.Metrics,
		logger:    d.Logger,
		tracer:    d.Tracing.Tracer(tracerName),
		currency:  money.NormalizeCurrency(d.DefaultCurrency),
		workers:   d.Concurrency,
	}
}

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Checkout runs one checkout for in.UserID. A declined payment is not an error: it
// returns a result with OutcomePaymentFailed. When payment succeeded but inventory or
// cart cleanup did not, both the result and a *PartialFinalizationError are returned.
// Every other failure is a *SagaError.
func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout", trace.WithAttributes(attribute.String("user.id", in.UserID)))
	defer span.End()

	result, err := s.checkout(ctx, in)
	if result != nil {
		span.SetAttributes(
			attribute.String("checkout.outcome", string(result.Outcome)),
			attribute.String("order.id", result.Order.ID.String()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (s *CheckoutService) checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	started := time.Now()
	run := &sagaRun{svc: s, id: uuid.New(), userID: in.UserID}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("saga.id", run.id.String()))
	run.log = logger.FromContext(ctx, s.logger).With(
		zap.String("saga_id", run.id.String()),
		zap.String("user_id", in.UserID))

	if strings.TrimSpace(in.UserID) == "" {
		return nil, &SagaError{State: models.SagaStarted, Err: ErrUserNotFound}
	}
	if err := checkPaymentInfo(in.PaymentInfo); err != nil {
		return nil, &SagaError{State: models.SagaStarted, Err: err}
	}

	release, err := s.lock.Acquire(ctx, in.UserID)
	if err != nil {
		return nil, &SagaError{State: models.SagaStarted, Err: err}
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			run.log.Warn("Failed to release checkout lock", zap.Error(err))
		}
	}()

	run.record(ctx, models.SagaStarted, "")

	cart, err := s.carts.GetCart(ctx, in.UserID)
	if err != nil {
		return nil, run.abort(ctx, models.SagaStarted, err)
	}
	if len(cart.Items) == 0 {
		return nil, run.abort(ctx, models.SagaStarted, ErrEmptyCart)
	}
	run.record(ctx, models.SagaCartFetched, fmt.Sprintf("%d lines", len(cart.Items)))

	items, err := s.validator.Validate(ctx, cart.Items)
	if err != nil {
		return nil, run.abort(ctx, models.SagaCartFetched, err)
	}
	run.record(ctx, models.SagaValidated, "")

	order, err := s.builder.CreatePendingOrder(ctx, in.UserID, items)
	if err != nil {
		return nil, run.abort(ctx, models.SagaValidated, err)
	}
	run.orderID = &order.ID
	run.record(ctx, models.SagaOrderPending, "total "+order.TotalAmount.StringFixed(2))
	run.log.Info("Pending order created",
		zap.String("order_id", order.ID.String()),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)))

	currency := s.currency
	if in.PaymentInfo.Currency != "" {
		currency = money.NormalizeCurrency(in.PaymentInfo.Currency)
	}
	payment, err := s.payments.Charge(ctx, ChargeRequest{
		OrderID:        order.ID,
		IdempotencyKey: PaymentIdempotencyKey(order.ID),
		Amount:         order.TotalAmount,
		Currency:       currency,
		PaymentMethod:  in.PaymentInfo.Method,
		BillingAddress: in.PaymentInfo.BillingInfo,
	})
	if err != nil {
		s.failUnpaidOrder(ctx, run, order)
		return nil, run.abort(ctx, models.SagaOrderPending, err)
	}
	run.record(ctx, models.SagaPaymentDecided, string(payment.Status))

	switch payment.Status {
	case models.PaymentStatusConfirmed:
		result, err := s.finalize(ctx, run, in, order, items, payment)
		s.recordLatency(started)
		return result, err
	case models.PaymentStatusRejected:
		result, err := s.recordFailure(ctx, run, order, payment)
		s.recordLatency(started)
		return result, err
	default:
		return nil, run.abort(ctx, models.SagaPaymentDecided, ErrPaymentInProgress)
	}
}

// finalize runs once the payment is confirmed. It is detached from request cancellation
// because the money has already moved.
func (s *CheckoutService) finalize(ctx context.Context, run *sagaRun, in CheckoutInput, order *models.Order, items []models.ValidatedItem, payment *models.Payment) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(context.WithoutCancel(ctx), "checkout.finalize")
	defer span.End()

	inventoryErr := s.decrementInventory(ctx, items)

	confirmed, err := s.orders.UpdateStatus(ctx, order.ID, models.OrderStatusConfirmed, &payment.ID)
	if err != nil {
		cartErr := s.carts.ClearCart(ctx, in.UserID)
		partial := &PartialFinalizationError{
			OrderID:      order.ID,
			PaymentID:    payment.ID,
			ConfirmErr:   err,
			InventoryErr: inventoryErr,
			CartErr:      cartErr,
		}
		return s.partialFinalization(ctx, run, order, payment, partial)
	}

	cartErr := s.carts.ClearCart(ctx, in.UserID)

	if s.notify != nil {
		s.notify.Enqueue(models.OrderConfirmation{
			OrderID:   confirmed.ID.String(),
			UserEmail: in.UserEmail,
			OrderDetails: models.OrderConfirmationDetails{
				TotalAmount: confirmed.TotalAmount,
				Status:      confirmed.Status,
				Items:       items,
			},
		})
	}

	publishBestEffort(ctx, s.events, NewOrderEvent(models.EventOrderConfirmed, confirmed))

	amount, _ := confirmed.TotalAmount.Float64()
	recordAsync(s.metrics, func(mctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(mctx, aws_pkg.MetricCheckoutsConfirmed, checkoutDims)
		_ = m.RecordValue(mctx, aws_pkg.MetricOrderAmount, amount, checkoutDims)
	})

	if inventoryErr != nil || cartErr != nil {
		return s.partialFinalization(ctx, run, confirmed, payment, &PartialFinalizationError{
			OrderID:      confirmed.ID,
			PaymentID:    payment.ID,
			InventoryErr: inventoryErr,
			CartErr:      cartErr,
		})
	}

	run.record(ctx, models.SagaFinalized, "")
	run.log.Info("Checkout completed",
		zap.String("order_id", confirmed.ID.String()),
		zap.String("payment_id", payment.ID.String()))
	return &CheckoutResult{SagaID: run.id, Outcome: OutcomeConfirmed, Order: confirmed, Payment: payment}, nil
}

// partialFinalization reports a checkout whose payment went through but whose follow-up
// steps did not all succeed. The result is returned alongside the error.
func (s *CheckoutService) partialFinalization(ctx context.Context, run *sagaRun, order *models.Order, payment *models.Payment, partial *PartialFinalizationError) (*CheckoutResult, error) {
	run.log.Error("Checkout finalization incomplete",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Error(partial))
	run.record(ctx, models.SagaFinalized, partial.Error())
	recordAsync(s.metrics, func(mctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(mctx, aws_pkg.MetricCheckoutsPartialFinalization, checkoutDims)
	})
	trace.SpanFromContext(ctx).RecordError(partial)

	result := &CheckoutResult{SagaID: run.id, Outcome: OutcomeConfirmed, Order: order, Payment: payment}
	return result, &SagaError{State: models.SagaFinalized, OrderID: run.orderID, Err: partial}
}

// failUnpaidOrder marks the pending order failed when the charge errored before any
// payment row was written. With a payment row present the order is left to whoever
// resolves that payment.
func (s *CheckoutService) failUnpaidOrder(ctx context.Context, run *sagaRun, order *models.Order) {
	ctx = context.WithoutCancel(ctx)

	if _, err := s.payments.GetByOrderID(ctx, order.ID); !errors.Is(err, ErrPaymentNotFound) {
		if err != nil {
			run.log.Warn("Could not check payment before failing order",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
		return
	}
	if _, err := s.orders.UpdateStatus(ctx, order.ID, models.OrderStatusFailed, nil); err != nil {
		run.log.Error("Failed to mark unpaid order failed",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	run.record(ctx, models.SagaFailedRecorded, "charge did not start")
}

func (s *CheckoutService) recordFailure(ctx context.Context, run *sagaRun, order *models.Order, payment *models.Payment) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(context.WithoutCancel(ctx), "checkout.record_failure")
	defer span.End()

	failed, err := s.orders.UpdateStatus(ctx, order.ID, models.OrderStatusFailed, &payment.ID)
	if err != nil {
		return nil, run.abort(ctx, models.SagaPaymentDecided, fmt.Errorf("mark order failed: %w", err))
	}

	reason := ""
	if payment.ErrorMessage != nil {
		reason = *payment.ErrorMessage
	}
	run.record(ctx, models.SagaFailedRecorded, reason)
	run.log.Warn("Payment declined",
		zap.String("order_id", failed.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("reason", reason))

	publishBestEffort(ctx, s.events, NewOrderEvent(models.EventOrderPaymentFailed, failed))
	recordAsync(s.metrics, func(mctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(mctx, aws_pkg.MetricCheckoutsPaymentFailed, checkoutDims)
	})

	return &CheckoutResult{SagaID: run.id, Outcome: OutcomePaymentFailed, Order: failed, Payment: payment}, nil
}

// decrementInventory attempts every decrement, even after one fails, and returns all
// failures combined.
func (s *CheckoutService) decrementInventory(ctx context.Context, items []models.ValidatedItem) error {
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, it := range items {
		g.Go(func() error {
			if err := s.catalog.DecreaseInventory(ctx, it.ProductID, it.Quantity); err != nil {
				errs[i] = fmt.Errorf("decrease inventory for %s: %w", it.ProductID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}

func (s *CheckoutService) recordLatency(started time.Time) {
	elapsed := time.Since(started)
	recordAsync(s.metrics, func(ctx context.Context, m MetricsRecorder) {
		_ = m.RecordLatency(ctx, aws_pkg.MetricCheckoutLatency, elapsed, checkoutDims)
	})
}

func checkPaymentInfo(info models.PaymentInfo) error {
	if strings.TrimSpace(info.Method) == "" {
		return fmt.Errorf("%w: payment method is required", ErrInvalidPaymentInfo)
	}
	if info.Currency != "" && !currencyPattern.MatchString(info.Currency) {
		return fmt.Errorf("%w: currency %q is not a 3-letter code", ErrInvalidPaymentInfo, info.Currency)
	}
	return nil
}

// sagaRun tracks one checkout and appends its transitions to the saga log.
type sagaRun struct {
	svc     *CheckoutService
	log     *zap.Logger
	id      uuid.UUID
	userID  string
	orderID *uuid.UUID
}

// record appends a transition. Saga log failures are logged and never fail the checkout.
func (r *sagaRun) record(ctx context.Context, state models.SagaState, detail string) {
	if r.svc.sagaLogs == nil {
		return
	}
	traceID, spanID := telemetry.IDs(ctx)
	entry := &models.SagaLog{
		SagaID:  r.id,
		OrderID: r.orderID,
		UserID:  r.userID,
		State:   state,
		Detail:  detail,
		TraceID: traceID,
		SpanID:  spanID,
	}
	if err := r.svc.sagaLogs.Append(context.WithoutCancel(ctx), entry); err != nil {
		r.log.Warn("Failed to append saga log",
			zap.String("state", string(state)), zap.Error(err))
	}
}

// abort records the aborted transition and wraps err with the last state reached.
func (r *sagaRun) abort(ctx context.Context, at models.SagaState, err error) error {
	r.record(ctx, models.SagaAborted, err.Error())

	if IsValidation(err) {
		r.log.Info("Checkout rejected", zap.String("state", string(at)), zap.Error(err))
		recordAsync(r.svc.metrics, func(mctx context.Context, m MetricsRecorder) {
			_ = m.RecordCount(mctx, aws_pkg.MetricCheckoutsRejected, checkoutDims)
		})
	} else {
		r.log.Error("Checkout failed", zap.String("state", string(at)), zap.Error(err))
	}
	return &SagaError{State: at, OrderID: r.orderID, Err: err}
}
