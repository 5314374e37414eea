// Package downloads resolves a confirmed payment to the purchased asset.
//
// The resolver never trusts a client-supplied "success" flag: transaction
// status is re-fetched from the payment provider on every resolution
// request, and the entitlement is persisted from the provider's
// authoritative amount and metadata before an asset URL is handed out. This
// covers the buyer who never hit the client-driven save path.
package downloads

import (
	"context"
	"fmt"
	"strings"

	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/entitlements"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
)

// TransactionReader re-fetches provider state for a transaction id.
type TransactionReader interface {
	GetTransaction(ctx context.Context, id string) (*payments.Transaction, error)
}

// ItemFinder resolves a raw catalog item id to an item.
type ItemFinder interface {
	FindItem(ctx context.Context, rawID string) (*domain.CatalogItem, error)
}

// ForbiddenError means the transaction has not succeeded; the current
// provider status is disclosed for diagnostics, never the asset.
type ForbiddenError struct {
	Status payments.Status
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("payment not completed: status is %s", e.Status)
}

// Service resolves downloads for confirmed purchases.
type Service struct {
	Transactions TransactionReader
	Recorder     *entitlements.Service
	Items        ItemFinder
	// AssetBaseURL prefixes resolved asset paths, e.g. "/assets".
	AssetBaseURL string
}

// Resolve validates the payment behind providerTxID and returns the asset
// URL for the purchased catalog item.
//
// Returns *ForbiddenError when the provider-side status is anything but
// succeeded, catalog.ErrItemNotFound when the item or its asset cannot be
// resolved, and the raw provider error on a transient communication failure
// (the caller may retry the whole request; this call does not).
func (s *Service) Resolve(ctx context.Context, providerTxID, rawItemID string) (string, error) {
	providerTxID = strings.TrimSpace(providerTxID)
	if providerTxID == "" {
		return "", entitlements.ErrMissingTransactionID
	}

	tx, err := s.Transactions.GetTransaction(ctx, providerTxID)
	if err != nil {
		return "", err
	}
	if tx.Status != payments.StatusSucceeded {
		return "", &ForbiddenError{Status: tx.Status}
	}

	// Persist the entitlement from the provider's authoritative values
	// before resolving the asset; the already-stored record wins if a
	// client-driven save got there first.
	if _, _, err := s.Recorder.RecordPurchase(ctx, recordFromTransaction(tx, rawItemID)); err != nil {
		return "", err
	}

	itemID := rawItemID
	if v := tx.Metadata[payments.MetaCatalogItemID]; strings.TrimSpace(itemID) == "" && v != "" {
		itemID = v
	}
	item, err := s.Items.FindItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(item.AssetPath) == "" {
		return "", catalog.ErrItemNotFound
	}
	return s.assetURL(item.AssetPath), nil
}

// recordFromTransaction builds the entitlement from the transaction alone;
// the metadata tagged at checkout carries the purchase context.
func recordFromTransaction(tx *payments.Transaction, rawItemID string) domain.EntitlementRecord {
	itemID, _ := catalog.NormalizeID(tx.Metadata[payments.MetaCatalogItemID])
	if itemID == 0 {
		itemID, _ = catalog.NormalizeID(rawItemID)
	}
	return domain.EntitlementRecord{
		ProviderTransactionID: tx.ID,
		CustomerName:          tx.Metadata[payments.MetaCustomerName],
		CustomerEmail:         tx.Metadata[payments.MetaCustomerEmail],
		CatalogItemID:         itemID,
		CatalogItemTitle:      tx.Metadata[payments.MetaCatalogItemTitle],
		AmountCents:           tx.AmountCents,
		CurrencyCode:          tx.CurrencyCode,
	}
}

func (s *Service) assetURL(assetPath string) string {
	base := strings.TrimRight(s.AssetBaseURL, "/")
	return base + "/" + strings.TrimLeft(assetPath, "/")
}
