// Package payments implements the checkout flow: creating a provider
// transaction for a catalog item, confirming it, and reading its
// authoritative status back. The payment provider owns transaction status
// entirely; this package never mutates status locally, only reads it.
//
// The Provider interface is the package boundary. The production
// implementation wraps Stripe PaymentIntents (stripe.go); tests substitute a
// fake.
package payments

import (
	"context"
	"errors"
	"fmt"
)

// Status is the provider-owned lifecycle state of a transaction.
type Status string

// Transaction status values. The provider is the single source of truth;
// these are read-only projections of its state.
const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Metadata keys attached to every provider transaction so downstream
// components can reconstruct purchase context from the transaction alone.
const (
	MetaCatalogItemID    = "catalog_item_id"
	MetaCatalogItemTitle = "catalog_item_title"
	MetaCustomerName     = "customer_name"
	MetaCustomerEmail    = "customer_email"
)

// Transaction is the provider-side payment object as seen by this system.
type Transaction struct {
	// ID is the provider transaction id, the primary correlation key.
	ID string `json:"id"`
	// ClientSecret lets the buyer-side client complete the payment.
	ClientSecret string `json:"client_secret,omitempty"`
	Status       Status `json:"status"`
	AmountCents  int64  `json:"amount_cents"`
	CurrencyCode string `json:"currency_code"`
	// Metadata carries the purchase context (see Meta* keys).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateRequest describes a new transaction to open with the provider.
type CreateRequest struct {
	AmountCents  int64
	CurrencyCode string
	Metadata     map[string]string
	ReceiptEmail string
}

// Provider is the payment-gateway boundary. Implementations must honor the
// context for cancellation and apply their own request timeouts; callers
// treat provider latency and failure as a normal error path.
type Provider interface {
	// CreateTransaction opens a pending transaction.
	CreateTransaction(ctx context.Context, req CreateRequest) (*Transaction, error)
	// ConfirmTransaction submits a payment method for an open transaction.
	ConfirmTransaction(ctx context.Context, id, paymentMethod string) (*Transaction, error)
	// GetTransaction re-fetches current provider state for a transaction.
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
}

// Service-level errors. ErrProviderNotConfigured is a configuration fault
// (missing credentials) and is surfaced distinctly from provider-side
// rejections such as card declines.
var (
	ErrProviderNotConfigured = errors.New("payment provider not configured: set STRIPE_SECRET_KEY")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidCurrency       = errors.New("currency must be a valid ISO 4217 code")
	ErrInvalidCustomer       = errors.New("customer name and email are required")
	ErrInvalidConfirmation   = errors.New("client secret and payment method are required")
)

// DeclinedError is a provider-side rejection of the payment (e.g. a card
// decline). Message carries the provider's user-visible text verbatim and is
// safe to surface; the buyer can retry with different payment details.
type DeclinedError struct {
	Message string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Message)
}
