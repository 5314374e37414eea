// Package entitlements – Service
//
// Service is the entitlement recorder. RecordPurchase is safe to call from
// multiple independent triggers; the lookup-then-insert sequence plus the
// store's atomic InsertIfAbsent guarantee one record per transaction with
// the first write's values kept.
package entitlements

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
)

// ErrMissingTransactionID is returned when a record has no provider
// transaction id to key idempotence on.
var ErrMissingTransactionID = errors.New("provider transaction id is required")

// Service records purchases idempotently against the configured Store.
type Service struct {
	Store Store
}

// NewService constructs a Service over the given store.
func NewService(store Store) *Service {
	return &Service{Store: store}
}

// RecordPurchase persists the purchase represented by rec, idempotently on
// rec.ProviderTransactionID. The returned flag is true only when this call
// inserted the record.
//
// If a record already exists for the transaction it is returned unchanged:
// the already-recorded, provider-confirmed amount and currency are
// authoritative, and a possibly-stale payload from a later trigger never
// overwrites them. Otherwise rec is inserted. A lost insert race is served
// from the winner's row.
func (s *Service) RecordPurchase(ctx context.Context, rec domain.EntitlementRecord) (*domain.EntitlementRecord, bool, error) {
	if strings.TrimSpace(rec.ProviderTransactionID) == "" {
		return nil, false, ErrMissingTransactionID
	}

	if existing, err := s.Store.FindByTransactionID(ctx, rec.ProviderTransactionID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	stored, created, err := s.Store.InsertIfAbsent(ctx, &rec)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// Find returns the stored record for a transaction, or ErrNotFound.
func (s *Service) Find(ctx context.Context, providerTxID string) (*domain.EntitlementRecord, error) {
	if strings.TrimSpace(providerTxID) == "" {
		return nil, ErrMissingTransactionID
	}
	return s.Store.FindByTransactionID(ctx, providerTxID)
}
