package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"checkout-service/models"
	aws_pkg "checkout-service/pkg/aws"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Checkouter runs one checkout.
type Checkouter interface {
	Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error)
}

// QueuePoller delivers queue message bodies to a handler until ctx ends.
type QueuePoller interface {
	StartPolling(ctx context.Context, handler aws_pkg.MessageHandler) error
}

// SQSCheckoutConsumer runs checkouts requested asynchronously through an SQS queue,
// optionally fed by an SNS subscription.
type SQSCheckoutConsumer struct {
	poller   QueuePoller
	checkout Checkouter
	metrics  MetricsRecorder
	logger   *zap.Logger
	validate *validator.Validate
	timeout  time.Duration
}

func NewSQSCheckoutConsumer(poller QueuePoller, checkout Checkouter, metrics MetricsRecorder, logger *zap.Logger) *SQSCheckoutConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQSCheckoutConsumer{
		poller:   poller,
		checkout: checkout,
		metrics:  metrics,
		logger:   logger,
		validate: validator.New(),
		timeout:  60 * time.Second,
	}
}

type checkoutMessage struct {
	UserID    string `validate:"required"`
	UserEmail string `validate:"omitempty,email"`
	Method    string `validate:"required"`
}

// Start blocks polling the checkout queue until ctx is cancelled.
func (c *SQSCheckoutConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting checkout queue consumer")
	if err := c.poller.StartPolling(ctx, c.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Checkout queue polling stopped", zap.Error(err))
	}
}

// HandleMessage runs the checkout described by body. Malformed messages and business
// outcomes are acknowledged; only failures that are safe to retry are returned, which
// leaves the message on the queue for redelivery.
func (c *SQSCheckoutConsumer) HandleMessage(ctx context.Context, body string) error {
	var envelope struct {
		Type    string `json:"Type"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	}

	var msg models.CheckoutMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		c.logger.Warn("Discarding checkout message with invalid JSON", zap.Error(err))
		c.count(ctx, "invalid")
		return nil
	}
	if err := c.validate.Struct(checkoutMessage{
		UserID:    msg.UserID,
		UserEmail: msg.UserEmail,
		Method:    msg.PaymentInfo.Method,
	}); err != nil {
		c.logger.Warn("Discarding invalid checkout message", zap.String("user_id", msg.UserID), zap.Error(err))
		c.count(ctx, "invalid")
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.checkout.Checkout(runCtx, CheckoutInput{
		UserID:      msg.UserID,
		UserEmail:   msg.UserEmail,
		PaymentInfo: msg.PaymentInfo,
	})
	switch {
	case err == nil:
		c.logger.Info("Queued checkout processed",
			zap.String("user_id", msg.UserID),
			zap.String("order_id", result.Order.ID.String()),
			zap.String("outcome", string(result.Outcome)))
		c.count(ctx, string(result.Outcome))
		return nil
	case IsRetryable(err):
		c.logger.Warn("Queued checkout failed, will retry", zap.String("user_id", msg.UserID), zap.Error(err))
		c.count(ctx, "retry")
		return err
	case errors.Is(err, ErrCheckoutInProgress):
		// Another checkout holds the user's lock; try again after the visibility timeout.
		c.count(ctx, "retry")
		return err
	default:
		c.logger.Warn("Queued checkout did not complete", zap.String("user_id", msg.UserID), zap.Error(err))
		c.count(ctx, "failed")
		return nil
	}
}

func (c *SQSCheckoutConsumer) count(_ context.Context, outcome string) {
	recordAsync(c.metrics, func(ctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(ctx, aws_pkg.MetricSQSMessages, map[string]string{
			"Service": "checkout-service",
			"Outcome": outcome,
		})
	})
}
