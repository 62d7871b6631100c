package services

import (
	"context"
	"errors"

	"checkout-service/clients"
	"checkout-service/models"
)

// CartSnapshotReader turns the cart collaborator's answers into checkout semantics.
type CartSnapshotReader struct {
	carts CartService
}

func NewCartSnapshotReader(carts CartService) *CartSnapshotReader {
	return &CartSnapshotReader{carts: carts}
}

// GetCart returns the user's cart. A missing cart is ErrCartNotFound; any other failure
// is an UpstreamUnavailableError. Calls are not retried.
func (r *CartSnapshotReader) GetCart(ctx context.Context, userID string) (*models.CartSnapshot, error) {
	snapshot, err := r.carts.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, upstream("cart", err)
	}
	if snapshot == nil {
		return &models.CartSnapshot{UserID: userID}, nil
	}
	return snapshot, nil
}

// ClearCart empties the cart after a confirmed checkout.
func (r *CartSnapshotReader) ClearCart(ctx context.Context, userID string) error {
	return upstream("cart", r.carts.ClearCart(ctx, userID))
}
