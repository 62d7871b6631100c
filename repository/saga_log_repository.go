package repository

import (
	"context"

	"checkout-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SagaLogRepository appends and reads checkout state transitions.
type SagaLogRepository interface {
	Append(ctx context.Context, entry *models.SagaLog) error
	ListBySagaID(ctx context.Context, sagaID uuid.UUID) ([]models.SagaLog, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.SagaLog, error)
}

type gormSagaLogRepo struct {
	db *gorm.DB
}

func NewSagaLogRepository(db *gorm.DB) SagaLogRepository {
	return &gormSagaLogRepo{db: db}
}

func (r *gormSagaLogRepo) Append(ctx context.Context, entry *models.SagaLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *gormSagaLogRepo) ListBySagaID(ctx context.Context, sagaID uuid.UUID) ([]models.SagaLog, error) {
	var entries []models.SagaLog
	err := r.db.WithContext(ctx).Where("saga_id = ?", sagaID).Order("id ASC").Find(&entries).Error
	return entries, err
}

func (r *gormSagaLogRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.SagaLog, error) {
	var entries []models.SagaLog
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&entries).Error
	return entries, err
}
