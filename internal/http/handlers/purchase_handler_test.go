package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
)

func TestRecordPurchaseCreatesThenReplays(t *testing.T) {
	h := newHarness(t)
	h.pay.getTx = succeededTx("pi_save", 1550)

	w := h.do(t, http.MethodPost, "/purchases", RecordPurchaseRequest{TransactionID: "pi_save"})
	if w.Code != http.StatusCreated {
		t.Fatalf("first save: status = %d, body = %s", w.Code, w.Body.String())
	}
	rec := decode[domain.EntitlementRecord](t, w)
	if rec.AmountCents != 1550 || rec.CatalogItemID != 7 || rec.CustomerEmail != "ana@example.com" {
		t.Fatalf("record = %+v", rec)
	}

	// Replay is a 200 returning the same record.
	w = h.do(t, http.MethodPost, "/purchases", RecordPurchaseRequest{TransactionID: "pi_save"})
	if w.Code != http.StatusOK {
		t.Fatalf("replay: status = %d", w.Code)
	}
	again := decode[domain.EntitlementRecord](t, w)
	if again.ID != rec.ID {
		t.Fatalf("replay returned a different record: %s vs %s", again.ID, rec.ID)
	}
}

func TestRecordPurchaseIgnoresClientClaims(t *testing.T) {
	h := newHarness(t)
	tx := succeededTx("pi_claims", 1550)
	h.pay.getTx = tx

	// The body only names the transaction; amount, buyer, and item all come
	// from the provider's record.
	w := h.do(t, http.MethodPost, "/purchases", map[string]any{
		"transaction_id": "pi_claims",
		"amount_cents":   1, // ignored
		"customer_email": "mallory@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	rec := decode[domain.EntitlementRecord](t, w)
	if rec.AmountCents != 1550 || rec.CustomerEmail != "ana@example.com" {
		t.Fatalf("client-supplied values leaked into the record: %+v", rec)
	}
}

func TestRecordPurchaseIncompletePayment(t *testing.T) {
	h := newHarness(t)
	tx := succeededTx("pi_pending", 1550)
	tx.Status = payments.StatusPending
	h.pay.getTx = tx

	w := h.do(t, http.MethodPost, "/purchases", RecordPurchaseRequest{TransactionID: "pi_pending"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != ErrCodePaymentRequired || resp.PaymentStatus != "pending" {
		t.Fatalf("resp = %+v", resp)
	}

	// Nothing was stored for the unfinished payment.
	if _, err := h.ent.Find(context.Background(), "pi_pending"); err == nil {
		t.Fatal("entitlement stored for pending payment")
	}
}

func TestRecordPurchaseProviderDown(t *testing.T) {
	h := newHarness(t)
	h.pay.getErr = errBoom

	w := h.do(t, http.MethodPost, "/purchases", RecordPurchaseRequest{TransactionID: "pi_x"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRecordPurchaseMissingTransactionID(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodPost, "/purchases", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
