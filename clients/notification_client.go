package clients

import (
	"context"
	"net/http"
	"time"

	"checkout-service/models"
)

type NotificationClient struct {
	baseClient
}

func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	return &NotificationClient{baseClient: newBaseClient("notification", baseURL, timeout)}
}

func (c *NotificationClient) SendOrderConfirmation(ctx context.Context, msg models.OrderConfirmation) error {
	return c.do(ctx, "order confirmation", http.MethodPost, "/notifications/order-confirmation", "", msg, nil)
}
