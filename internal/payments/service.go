// Package payments – Service
//
// Service is the payment session manager: it validates checkout input,
// derives the provider amount from the catalog item, and delegates
// transaction lifecycle to the configured Provider. Predictable failures are
// returned as service-level errors so handlers can map them to HTTP results
// consistently.
package payments

import (
	"context"
	"strconv"
	"strings"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/money"
)

// Service coordinates checkout against the payment provider.
type Service struct {
	// Provider is the payment gateway; nil means credentials were never
	// configured and every operation fails with ErrProviderNotConfigured.
	Provider Provider
	// DefaultCurrency is the ISO 4217 code used for catalog purchases.
	DefaultCurrency string
}

// NewService constructs a Service with the given provider and currency.
func NewService(p Provider, currency string) *Service {
	return &Service{Provider: p, DefaultCurrency: strings.ToLower(currency)}
}

// CreateTransaction opens a pending provider transaction for one catalog
// item, tagged with metadata (item id and title, customer name and email) so
// downstream components can reconstruct the purchase from the transaction
// alone.
//
// Validation: the item price must be positive, the currency a valid ISO
// code, and the customer name and email non-empty.
func (s *Service) CreateTransaction(ctx context.Context, item *domain.CatalogItem, cust domain.Customer) (*Transaction, error) {
	if s.Provider == nil {
		return nil, ErrProviderNotConfigured
	}
	if item == nil || item.PriceCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if !money.ValidCurrency(s.DefaultCurrency) {
		return nil, ErrInvalidCurrency
	}
	if strings.TrimSpace(cust.Name) == "" || strings.TrimSpace(cust.Email) == "" {
		return nil, ErrInvalidCustomer
	}

	return s.Provider.CreateTransaction(ctx, CreateRequest{
		AmountCents:  item.PriceCents,
		CurrencyCode: s.DefaultCurrency,
		ReceiptEmail: strings.TrimSpace(cust.Email),
		Metadata: map[string]string{
			MetaCatalogItemID:    strconv.FormatInt(item.ID, 10),
			MetaCatalogItemTitle: item.Title,
			MetaCustomerName:     strings.TrimSpace(cust.Name),
			MetaCustomerEmail:    strings.TrimSpace(cust.Email),
		},
	})
}

// ConfirmTransaction submits payment method details for the transaction
// identified by clientSecret. Confirmation is wholly the provider's job; a
// decline surfaces as *DeclinedError with the provider's message verbatim.
func (s *Service) ConfirmTransaction(ctx context.Context, clientSecret, paymentMethod string) (*Transaction, error) {
	if s.Provider == nil {
		return nil, ErrProviderNotConfigured
	}
	id := TransactionIDFromClientSecret(clientSecret)
	if id == "" || strings.TrimSpace(paymentMethod) == "" {
		return nil, ErrInvalidConfirmation
	}
	return s.Provider.ConfirmTransaction(ctx, id, paymentMethod)
}

// GetTransaction re-fetches provider state for a transaction id.
func (s *Service) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	if s.Provider == nil {
		return nil, ErrProviderNotConfigured
	}
	return s.Provider.GetTransaction(ctx, id)
}

// TransactionIDFromClientSecret extracts the transaction id from a client
// secret of the form "<id>_secret_<nonce>". A bare id passes through
// unchanged.
func TransactionIDFromClientSecret(clientSecret string) string {
	s := strings.TrimSpace(clientSecret)
	if i := strings.Index(s, "_secret_"); i > 0 {
		return s[:i]
	}
	return s
}
