package services

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/clients"
	"checkout-service/models"
)

// CartService is the cart collaborator.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*models.CartSnapshot, error)
	ClearCart(ctx context.Context, userID string) error
}

// ProductCatalog is the product collaborator.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	DecreaseInventory(ctx context.Context, productID string, quantity int) error
}

// UserDirectory is the user profile collaborator.
type UserDirectory interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// NotificationSender delivers order confirmations.
type NotificationSender interface {
	SendOrderConfirmation(ctx context.Context, msg models.OrderConfirmation) error
}

// upstream wraps a collaborator error as UpstreamUnavailableError unless it already
// carries a domain meaning.
func upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	var already *UpstreamUnavailableError
	if errors.As(err, &already) {
		return err
	}
	var upErr *clients.UpstreamError
	if errors.As(err, &upErr) {
		return &UpstreamUnavailableError{Service: upErr.Service, Err: err}
	}
	if errors.Is(err, clients.ErrNotFound) {
		return &UpstreamUnavailableError{Service: service, Err: fmt.Errorf("unexpected not found: %w", err)}
	}
	return &UpstreamUnavailableError{Service: service, Err: err}
}
