package services

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/common/logger"
	"checkout-service/models"
	"checkout-service/pkg/money"
	"checkout-service/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ChargeRequest is one payment attempt for an order.
type ChargeRequest struct {
	OrderID        uuid.UUID       `validate:"required"`
	IdempotencyKey string          `validate:"required,max=128"`
	Amount         decimal.Decimal `validate:"-"`
	Currency       string          `validate:"omitempty,len=3,alpha"`
	PaymentMethod  string          `validate:"required,max=128"`
	BillingAddress models.Address  `validate:"-"`
}

// PaymentIdempotencyKey is the key every charge for orderID is stored and sent under.
func PaymentIdempotencyKey(orderID uuid.UUID) string {
	return "order_" + orderID.String()
}

// PaymentService records payments and drives them through the processor exactly once
// per idempotency key.
type PaymentService struct {
	payments  repository.PaymentRepository
	processor PaymentProcessor
	validate  *validator.Validate
}

func NewPaymentService(payments repository.PaymentRepository, processor PaymentProcessor) *PaymentService {
	return &PaymentService{
		payments:  payments,
		processor: processor,
		validate:  validator.New(),
	}
}

// Charge creates the pending payment row, calls the processor and stores the terminal
// status. If a payment already exists under the key it is returned unchanged and the
// processor is not called again. A pending result therefore means another attempt owns
// the charge.
func (s *PaymentService) Charge(ctx context.Context, req ChargeRequest) (*models.Payment, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "payment.charge",
		trace.WithAttributes(attribute.String("order.id", req.OrderID.String())))
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid charge request: %w", err)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("invalid charge request: amount must be positive, got %s", req.Amount)
	}

	currency := money.NormalizeCurrency(req.Currency)
	amountMinor, err := money.ToMinorUnits(req.Amount, currency)
	if err != nil {
		return nil, fmt.Errorf("invalid charge request: %w", err)
	}

	payment, created, err := s.payments.CreateIfAbsent(ctx, &models.Payment{
		OrderID:        req.OrderID,
		IdempotencyKey: req.IdempotencyKey,
		PaymentMethod:  req.PaymentMethod,
		TotalAmount:    req.Amount,
		Currency:       currency,
		BillingAddress: req.BillingAddress,
		Status:         models.PaymentStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	if !created {
		logger.Info(ctx, "Payment already exists for idempotency key",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)))
		return payment, nil
	}

	result, chargeErr := s.processor.CreateCharge(ctx, ChargeParams{
		AmountMinor:    amountMinor,
		Currency:       currency,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
		Metadata: map[string]string{
			"order_id":   req.OrderID.String(),
			"payment_id": payment.ID.String(),
		},
	})

	var (
		status models.PaymentStatus
		txnID  *string
		errMsg *string
	)
	switch {
	case chargeErr != nil:
		logger.Warn(ctx, "Payment processor call failed",
			zap.String("payment_id", payment.ID.String()), zap.Error(chargeErr))
		status = models.PaymentStatusRejected
		errMsg = strPtr(chargeErr.Error())
	case result.Succeeded():
		status = models.PaymentStatusConfirmed
		txnID = strPtr(result.TransactionID)
	default:
		status = models.PaymentStatusRejected
		if result != nil && result.TransactionID != "" {
			txnID = strPtr(result.TransactionID)
		}
		statusText := "unknown"
		if result != nil {
			statusText = result.Status
		}
		errMsg = strPtr("Payment status: " + statusText)
	}

	// A processor that answered must never leave the row pending, so the update runs
	// even if the request context has ended.
	updated, applied, err := s.payments.MarkTerminal(context.WithoutCancel(ctx), payment.ID, status, txnID, errMsg)
	if err != nil {
		return nil, fmt.Errorf("store payment outcome: %w", err)
	}
	if !applied {
		logger.Warn(ctx, "Payment was already terminal when storing outcome",
			zap.String("payment_id", payment.ID.String()),
			zap.String("stored_status", string(updated.Status)))
	}
	return updated, nil
}

// GetByOrderID returns the latest payment recorded for an order.
func (s *PaymentService) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	p, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func strPtr(s string) *string { return &s }
