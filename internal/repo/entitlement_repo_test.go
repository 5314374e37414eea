package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
)

func TestFindEntitlement_BlankID_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := FindEntitlementByTransactionID(context.Background(), db, "   "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank id, got %v", err)
	}
}

func TestInsertEntitlement_GeneratesIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := InsertEntitlement(ctx, db, &domain.EntitlementRecord{
		ProviderTransactionID: "pi_123",
		CustomerName:          "Ana",
		CustomerEmail:         "ana@example.com",
		CatalogItemID:         7,
		CatalogItemTitle:      "Edition 7",
		AmountCents:           1550,
		CurrencyCode:          "brl",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec.ID == "" || rec.RecordedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp: %+v", rec)
	}

	got, err := FindEntitlementByTransactionID(ctx, db, "pi_123")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.AmountCents != 1550 || got.CurrencyCode != "brl" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestInsertEntitlement_DuplicateTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &domain.EntitlementRecord{ProviderTransactionID: "pi_dup", CustomerName: "Ana", CustomerEmail: "a@x", CatalogItemID: 1, AmountCents: 100, CurrencyCode: "brl"}
	if _, err := InsertEntitlement(ctx, db, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Second write with a different payload must trip the unique index.
	second := &domain.EntitlementRecord{ProviderTransactionID: "pi_dup", CustomerName: "Eve", CustomerEmail: "e@x", CatalogItemID: 2, AmountCents: 999, CurrencyCode: "usd"}
	if _, err := InsertEntitlement(ctx, db, second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// The stored record keeps the first write's values.
	got, err := FindEntitlementByTransactionID(ctx, db, "pi_dup")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.AmountCents != 100 || got.CustomerName != "Ana" {
		t.Fatalf("first write should be authoritative: %+v", got)
	}
}
