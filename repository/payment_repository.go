package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository interface {
	CreateIfAbsent(ctx context.Context, payment *models.Payment) (*models.Payment, bool, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	MarkTerminal(ctx context.Context, id uuid.UUID, status models.PaymentStatus, transactionID, errorMessage *string) (*models.Payment, bool, error)
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

// CreateIfAbsent inserts payment unless a row with the same idempotency key exists.
// It returns the stored row and whether this call created it. The unique index on
// idempotency_key makes the check-and-insert atomic across concurrent callers.
func (r *gormPaymentRepo) CreateIfAbsent(ctx context.Context, payment *models.Payment) (*models.Payment, bool, error) {
	if payment.IdempotencyKey == "" {
		return nil, false, fmt.Errorf("idempotency key is required")
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(payment)
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert payment: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return payment, true, nil
	}

	existing, err := r.FindByIdempotencyKey(ctx, payment.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *gormPaymentRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&p).Error; err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	return &p, nil
}

// FindByOrderID returns the most recent payment for an order.
func (r *gormPaymentRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&p).Error; err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	return &p, nil
}

// MarkTerminal applies the single pending → confirmed|rejected update. transactionID and
// errorMessage only overwrite stored values when non-nil. When the payment is no longer
// pending nothing changes and the stored row is returned with applied=false.
func (r *gormPaymentRepo) MarkTerminal(ctx context.Context, id uuid.UUID, status models.PaymentStatus, transactionID, errorMessage *string) (*models.Payment, bool, error) {
	if !status.Terminal() {
		return nil, false, fmt.Errorf("status %q is not terminal", status)
	}

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":                  status,
			"external_transaction_id": gorm.Expr("COALESCE(?, external_transaction_id)", nullableString(transactionID)),
			"error_message":           gorm.Expr("COALESCE(?, error_message)", nullableString(errorMessage)),
			"updated_at":              time.Now(),
		})
	if res.Error != nil {
		return nil, false, fmt.Errorf("update payment: %w", res.Error)
	}

	var p models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, false, notFound(err, ErrPaymentNotFound)
	}
	return &p, res.RowsAffected == 1, nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
