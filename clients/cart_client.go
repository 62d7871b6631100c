package clients

import (
	"context"
	"errors"
	"net/http"
	"time"

	"checkout-service/models"
)

type CartClient struct {
	baseClient
}

func NewCartClient(baseURL string, timeout time.Duration) *CartClient {
	return &CartClient{baseClient: newBaseClient("cart", baseURL, timeout)}
}

type cartResponse struct {
	Cart struct {
		ID     flexibleID `json:"id"`
		UserID flexibleID `json:"userId"`
	} `json:"cart"`
	Items []struct {
		ID        flexibleID  `json:"id"`
		ProductID flexibleID  `json:"productId"`
		Quantity  flexibleInt `json:"quantity"`
	} `json:"items"`
}

// GetCart returns the user's cart lines in cart order. Rows without a product id
// (an empty cart joined against its items) are skipped.
func (c *CartClient) GetCart(ctx context.Context, userID string) (*models.CartSnapshot, error) {
	var resp cartResponse
	if err := c.do(ctx, "get cart", http.MethodGet, "/cart", userID, nil, &resp); err != nil {
		return nil, err
	}

	snapshot := &models.CartSnapshot{UserID: userID, Items: make([]models.CartLine, 0, len(resp.Items))}
	for _, it := range resp.Items {
		if it.ProductID == "" {
			continue
		}
		snapshot.Items = append(snapshot.Items, models.CartLine{
			ProductID: string(it.ProductID),
			Quantity:  int(it.Quantity),
		})
	}
	return snapshot, nil
}

// ClearCart empties the user's cart. A cart that no longer exists counts as cleared.
func (c *CartClient) ClearCart(ctx context.Context, userID string) error {
	err := c.do(ctx, "clear cart", http.MethodDelete, "/cart", userID, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
