package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"checkout-service/models"

	"github.com/shopspring/decimal"
)

type ProductClient struct {
	baseClient
}

func NewProductClient(baseURL string, timeout time.Duration) *ProductClient {
	return &ProductClient{baseClient: newBaseClient("product", baseURL, timeout)}
}

type productResponse struct {
	ID        flexibleID      `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Inventory flexibleInt     `json:"inventory"`
	IsActive  bool            `json:"is_active"`
}

func (c *ProductClient) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var resp productResponse
	path := "/products/" + url.PathEscape(productID)
	if err := c.do(ctx, "get product", http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}

	id := string(resp.ID)
	if id == "" {
		id = productID
	}
	return &models.Product{
		ID:        id,
		Name:      resp.Name,
		Price:     resp.Price,
		Inventory: int(resp.Inventory),
		IsActive:  resp.IsActive,
	}, nil
}

// DecreaseInventory subtracts quantity from the product's stock.
func (c *ProductClient) DecreaseInventory(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("product decrease inventory: quantity must be positive, got %d", quantity)
	}
	path := "/products/inventory/" + url.PathEscape(productID)
	body := map[string]int{"quantity": quantity}
	return c.do(ctx, "decrease inventory", http.MethodPut, path, "", body, nil)
}
