package models

import (
	"github.com/shopspring/decimal"
)

// CartLine is one {product, quantity} entry of a cart snapshot.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartSnapshot is the read-only view of a user's cart taken at checkout start.
type CartSnapshot struct {
	UserID string     `json:"user_id"`
	Items  []CartLine `json:"items"`
}

// Product is the subset of the catalog record checkout relies on.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Inventory int             `json:"inventory"`
	IsActive  bool            `json:"is_active"`
}

// UserProfile carries the shipping address used for new orders.
type UserProfile struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	ShippingAddress Address `json:"shipping_address"`
}

// ValidatedItem is a cart line confirmed against the catalog, with its price frozen.
type ValidatedItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PaymentInfo is what the shopper submits with a checkout.
type PaymentInfo struct {
	Method      string  `json:"method" binding:"required"`
	Currency    string  `json:"currency"`
	BillingInfo Address `json:"billingInfo"`
}

type CheckoutRequest struct {
	PaymentInfo PaymentInfo `json:"paymentInfo" binding:"required"`
}

// OrderConfirmation is the payload sent to the notification service.
type OrderConfirmation struct {
	OrderID      string                   `json:"orderId"`
	UserEmail    string                   `json:"userEmail"`
	OrderDetails OrderConfirmationDetails `json:"orderDetails"`
}

type OrderConfirmationDetails struct {
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      OrderStatus     `json:"status"`
	Items       []ValidatedItem `json:"items"`
}
