package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"checkout-service/models"

	"go.uber.org/zap"
)

// ErrNotificationQueueFull is reported when a confirmation is dropped because the
// dispatcher queue has no room.
var ErrNotificationQueueFull = errors.New("notification queue full")

// NotificationError reports a confirmation that was not delivered.
type NotificationError struct {
	OrderID string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("order confirmation for %s not delivered: %v", e.OrderID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// DispatcherConfig sizes the notification dispatcher.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	Attempts    int
	Backoff     time.Duration
	SendTimeout time.Duration
}

// NotificationDispatcher delivers order confirmations off the checkout path. Enqueue
// never blocks; failures are logged and reported on Errors, never to the checkout.
type NotificationDispatcher struct {
	sender NotificationSender
	logger *zap.Logger
	cfg    DispatcherConfig

	queue  chan models.OrderConfirmation
	errs   chan error
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func NewNotificationDispatcher(sender NotificationSender, logger *zap.Logger, cfg DispatcherConfig) *NotificationDispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{
		sender: sender,
		logger: logger,
		cfg:    cfg,
		queue:  make(chan models.OrderConfirmation, cfg.QueueSize),
		errs:   make(chan error, cfg.QueueSize),
	}
}

// Start launches the workers. They exit once Stop has drained the queue or ctx ends.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.logger.Info("Notification dispatcher started",
		zap.Int("workers", d.cfg.Workers), zap.Int("queue_size", d.cfg.QueueSize))
}

// Stop closes the queue, waits for queued confirmations to be attempted and closes
// the error channel.
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	if d.cancel != nil {
		d.cancel()
	}
	close(d.errs)
}

// Enqueue schedules a confirmation. It returns false when the queue is full and the
// confirmation was dropped, or when the dispatcher is stopped.
func (d *NotificationDispatcher) Enqueue(msg models.OrderConfirmation) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("Notification dispatcher stopped, dropping confirmation", zap.String("order_id", msg.OrderID))
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("Notification queue full, dropping confirmation", zap.String("order_id", msg.OrderID))
		d.report(&NotificationError{OrderID: msg.OrderID, Err: ErrNotificationQueueFull})
		return false
	}
}

// Errors returns delivery failures. Reports are dropped when nobody reads them.
func (d *NotificationDispatcher) Errors() <-chan error {
	return d.errs
}

func (d *NotificationDispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for msg := range d.queue {
		if err := d.deliver(ctx, msg); err != nil {
			d.logger.Error("Failed to send order confirmation",
				zap.String("order_id", msg.OrderID),
				zap.String("user_email", msg.UserEmail),
				zap.Error(err))
			d.report(&NotificationError{OrderID: msg.OrderID, Err: err})
			continue
		}
		d.logger.Info("Order confirmation sent", zap.String("order_id", msg.OrderID))
	}
}

func (d *NotificationDispatcher) deliver(ctx context.Context, msg models.OrderConfirmation) error {
	var err error
	for attempt := 1; attempt <= d.cfg.Attempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		err = d.sender.SendOrderConfirmation(sendCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == d.cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(d.cfg.Backoff * time.Duration(attempt)):
		}
	}
	return err
}

func (d *NotificationDispatcher) report(err error) {
	select {
	case d.errs <- err:
	default:
	}
}
