package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ProcessorStatusSucceeded is the only processor status that confirms a payment.
const ProcessorStatusSucceeded = "succeeded"

// ChargeParams is one charge request. The idempotency key is forwarded to the processor
// so a retried call can never charge twice.
type ChargeParams struct {
	AmountMinor    int64
	Currency       string
	PaymentMethod  string
	IdempotencyKey string
	Metadata       map[string]string
}

// ChargeResult is what the processor reported for a charge that reached it.
type ChargeResult struct {
	TransactionID string
	Status        string
}

func (r *ChargeResult) Succeeded() bool {
	return r != nil && r.Status == ProcessorStatusSucceeded
}

// PaymentProcessor is the external card processor.
type PaymentProcessor interface {
	CreateCharge(ctx context.Context, params ChargeParams) (*ChargeResult, error)
}

// SimulatedProcessor stands in for a real processor in local runs. Payment methods listed
// in declineMethods come back with a non-success status; every other charge succeeds.
// Repeated idempotency keys return the first result.
type SimulatedProcessor struct {
	declineMethods map[string]bool

	mu      sync.Mutex
	results map[string]*ChargeResult
}

func NewSimulatedProcessor(declineMethods []string) *SimulatedProcessor {
	m := make(map[string]bool, len(declineMethods))
	for _, method := range declineMethods {
		m[strings.TrimSpace(method)] = true
	}
	return &SimulatedProcessor{declineMethods: m, results: make(map[string]*ChargeResult)}
}

func (p *SimulatedProcessor) CreateCharge(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.results[params.IdempotencyKey]; ok {
		return r, nil
	}

	status := ProcessorStatusSucceeded
	if p.declineMethods[params.PaymentMethod] {
		status = "requires_payment_method"
	}
	r := &ChargeResult{TransactionID: "sim_" + uuid.NewString(), Status: status}
	p.results[params.IdempotencyKey] = r
	return r, nil
}
