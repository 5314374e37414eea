// Package entitlements persists the durable proof that a customer paid for a
// catalog item. The recorder is idempotent on the provider transaction id:
// however many independent triggers attempt the write (the buyer's own
// success-page save, the server's download-time save, a webhook replay), at
// most one record exists per transaction and the first successful write's
// amounts stay authoritative.
//
// Persistence is pluggable behind the Store interface: a relational store
// (GORM, unique index) and a file-backed store (BoltDB, check-then-insert in
// a single write transaction) are interchangeable; the recorder is written
// once against the interface.
package entitlements

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/repo"
)

// ErrNotFound is returned when no record exists for a transaction id.
var ErrNotFound = errors.New("entitlement not found")

// Store is the persistence contract for entitlement records. Both
// implementations guarantee that concurrent or repeated InsertIfAbsent calls
// with the same provider transaction id converge to a single stored record.
type Store interface {
	// FindByTransactionID returns the stored record or ErrNotFound.
	FindByTransactionID(ctx context.Context, providerTxID string) (*domain.EntitlementRecord, error)

	// InsertIfAbsent stores rec unless a record for the same provider
	// transaction id already exists, in which case the existing record is
	// returned unchanged. created reports whether a write happened.
	InsertIfAbsent(ctx context.Context, rec *domain.EntitlementRecord) (stored *domain.EntitlementRecord, created bool, err error)
}

// GormStore is the relational Store backed by the entitlements table.
// Uniqueness is enforced by the database-level unique index, not in-process
// locking, so independent processes converge too.
type GormStore struct {
	DB *gorm.DB
}

// FindByTransactionID implements Store.
func (s *GormStore) FindByTransactionID(ctx context.Context, providerTxID string) (*domain.EntitlementRecord, error) {
	rec, err := repo.FindEntitlementByTransactionID(ctx, s.DB, providerTxID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rec, err
}

// InsertIfAbsent implements Store. A unique violation means another trigger
// won the race; the stored row is fetched and returned unchanged.
func (s *GormStore) InsertIfAbsent(ctx context.Context, rec *domain.EntitlementRecord) (*domain.EntitlementRecord, bool, error) {
	stored, err := repo.InsertEntitlement(ctx, s.DB, rec)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, repo.ErrDuplicate) {
		return nil, false, err
	}
	existing, err := repo.FindEntitlementByTransactionID(ctx, s.DB, rec.ProviderTransactionID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
