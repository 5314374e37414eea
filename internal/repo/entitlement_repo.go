// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// EntitlementRecord model used to implement idempotent purchase persistence:
// the unique index on provider_transaction_id guarantees at most one record
// per provider transaction, no matter how many independent triggers attempt
// the write.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
)

// ErrDuplicate indicates that an entitlement record already exists for the
// given provider transaction id.
var ErrDuplicate = errors.New("duplicate")

// FindEntitlementByTransactionID returns the stored record for a provider
// transaction, or ErrNotFound.
func FindEntitlementByTransactionID(ctx context.Context, db *gorm.DB, providerTxID string) (*domain.EntitlementRecord, error) {
	if strings.TrimSpace(providerTxID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.EntitlementRecord
	err := db.WithContext(ctx).
		Where("provider_transaction_id = ?", providerTxID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertEntitlement inserts a record and returns ErrDuplicate on unique
// violation. The caller decides whether a duplicate is an error or a replay
// to be served from the existing row.
func InsertEntitlement(ctx context.Context, db *gorm.DB, rec *domain.EntitlementRecord) (*domain.EntitlementRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// isUniqueViolation detects unique-constraint violations across the drivers
// we support, some of which surface plain-text errors rather than
// gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite: "UNIQUE constraint failed" / "constraint failed: UNIQUE"
	// MySQL: "Error 1062 ... Duplicate entry"
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate entry")
}
