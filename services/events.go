package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/common/logger"
	"checkout-service/models"
	aws_pkg "checkout-service/pkg/aws"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// OrderEventPublisher announces order outcomes to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error
}

// SNSOrderEventPublisher publishes order events to an SNS topic with an event_type
// attribute for subscription filtering.
type SNSOrderEventPublisher struct {
	sns      aws_pkg.SNSPublisher
	topicArn string
}

func NewSNSOrderEventPublisher(sns aws_pkg.SNSPublisher, topicArn string) *SNSOrderEventPublisher {
	return &SNSOrderEventPublisher{sns: sns, topicArn: topicArn}
}

func (p *SNSOrderEventPublisher) PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return p.sns.Publish(ctx, p.topicArn, body, map[string]string{"event_type": evt.EventType})
}

// MultiPublisher fans an event out to every configured publisher and attempts all of them.
type MultiPublisher []OrderEventPublisher

func (m MultiPublisher) PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error {
	var err error
	for _, p := range m {
		err = multierr.Append(err, p.PublishOrderEvent(ctx, evt))
	}
	return err
}

// NewOrderEvent builds the event for order in its current status.
func NewOrderEvent(eventType string, order *models.Order) models.OrderEvent {
	evt := models.OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID.String(),
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Items:       order.Items,
		OccurredAt:  time.Now().UTC(),
	}
	if order.PaymentID != nil {
		evt.PaymentID = order.PaymentID.String()
	}
	return evt
}

// publishBestEffort publishes evt without letting a failure reach the caller.
func publishBestEffort(ctx context.Context, pub OrderEventPublisher, evt models.OrderEvent) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := pub.PublishOrderEvent(ctx, evt); err != nil {
		logger.Warn(ctx, "Failed to publish order event",
			zap.String("event_type", evt.EventType),
			zap.String("order_id", evt.OrderID),
			zap.Error(err))
	}
}
