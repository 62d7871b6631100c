package services

import (
	"context"
	"errors"

	"checkout-service/clients"
	"checkout-service/models"

	"golang.org/x/sync/errgroup"
)

// ItemValidator checks cart lines against the catalog and freezes their prices.
type ItemValidator struct {
	catalog     ProductCatalog
	concurrency int
}

func NewItemValidator(catalog ProductCatalog, concurrency int) *ItemValidator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ItemValidator{catalog: catalog, concurrency: concurrency}
}

// Validate looks every line up and returns one ValidatedItem per line, in cart order.
// Lookups run concurrently; when several lines fail, the error of the earliest line in
// the cart is returned so the outcome never depends on scheduling.
func (v *ItemValidator) Validate(ctx context.Context, lines []models.CartLine) ([]models.ValidatedItem, error) {
	results := make([]models.ValidatedItem, len(lines))
	errs := make([]error, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, line := range lines {
		g.Go(func() error {
			results[i], errs[i] = v.validateLine(gctx, line)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (v *ItemValidator) validateLine(ctx context.Context, line models.CartLine) (models.ValidatedItem, error) {
	if line.Quantity <= 0 {
		return models.ValidatedItem{}, &InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
	}

	product, err := v.catalog.GetProduct(ctx, line.ProductID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return models.ValidatedItem{}, &ProductNotFoundError{ProductID: line.ProductID}
		}
		return models.ValidatedItem{}, upstream("product", err)
	}
	if !product.IsActive {
		return models.ValidatedItem{}, &ProductInactiveError{ProductID: line.ProductID, Name: product.Name}
	}
	if product.Price.IsNegative() || !product.Price.Equal(product.Price.Round(models.AmountScale)) {
		return models.ValidatedItem{}, &InvalidPriceError{ProductID: line.ProductID, Name: product.Name, Price: product.Price}
	}
	if product.Inventory < line.Quantity {
		return models.ValidatedItem{}, &InsufficientStockError{
			ProductID: line.ProductID,
			Name:      product.Name,
			Requested: line.Quantity,
			Available: product.Inventory,
		}
	}

	return models.ValidatedItem{
		ProductID: line.ProductID,
		Name:      product.Name,
		Quantity:  line.Quantity,
		UnitPrice: product.Price,
	}, nil
}
