package clients

import (
	"context"
	"net/http"
	"time"

	"checkout-service/models"
)

type UserClient struct {
	baseClient
}

func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{baseClient: newBaseClient("user", baseURL, timeout)}
}

type profileResponse struct {
	ID             flexibleID `json:"id"`
	Email          string     `json:"email"`
	ShippingStreet string     `json:"shipping_street"`
	ShippingCity   string     `json:"shipping_city"`
	ShippingState  string     `json:"shipping_state"`
	ShippingZip    string     `json:"shipping_zip"`
}

func (c *UserClient) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var resp profileResponse
	if err := c.do(ctx, "get profile", http.MethodGet, "/users/profile", userID, nil, &resp); err != nil {
		return nil, err
	}

	id := string(resp.ID)
	if id == "" {
		id = userID
	}
	return &models.UserProfile{
		ID:    id,
		Email: resp.Email,
		ShippingAddress: models.Address{
			Street: resp.ShippingStreet,
			City:   resp.ShippingCity,
			State:  resp.ShippingState,
			Zip:    resp.ShippingZip,
		},
	}, nil
}
