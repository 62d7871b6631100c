package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

// StripeProcessor charges through confirmed Stripe PaymentIntents.
type StripeProcessor struct {
	client *paymentintent.Client
}

// NewStripeProcessor uses the default Stripe API backend.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	return NewStripeProcessorWithBackend(secretKey, stripe.GetBackend(stripe.APIBackend))
}

// NewStripeProcessorWithBackend lets callers point the client at another backend.
func NewStripeProcessorWithBackend(secretKey string, backend stripe.Backend) *StripeProcessor {
	return &StripeProcessor{client: &paymentintent.Client{B: backend, Key: secretKey}}
}

// CreateCharge creates and confirms a PaymentIntent in one call. Redirect-based payment
// methods are disabled so the outcome is known when the call returns.
func (p *StripeProcessor) CreateCharge(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	pi := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(params.AmountMinor),
		Currency:      stripe.String(params.Currency),
		PaymentMethod: stripe.String(params.PaymentMethod),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	pi.Context = ctx
	pi.SetIdempotencyKey(params.IdempotencyKey)
	for k, v := range params.Metadata {
		pi.AddMetadata(k, v)
	}

	intent, err := p.client.New(pi)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
			return nil, fmt.Errorf("stripe: %s", stripeErr.Msg)
		}
		return nil, fmt.Errorf("stripe: %w", err)
	}
	return &ChargeResult{TransactionID: intent.ID, Status: string(intent.Status)}, nil
}
