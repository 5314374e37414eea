package handlers

import (
	"net/http"
	"testing"

	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/downloads"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
)

func TestResolveDownloadOK(t *testing.T) {
	h := newHarness(t)
	h.dl.url = "/assets/issues/7.pdf"

	w := h.do(t, http.MethodPost, "/downloads", DownloadRequest{
		TransactionID: "pi_1",
		ItemID:        "jornal_7",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[DownloadResponse](t, w)
	if resp.URL != "/assets/issues/7.pdf" {
		t.Fatalf("url = %q", resp.URL)
	}
}

func TestResolveDownloadForbiddenDisclosesStatus(t *testing.T) {
	h := newHarness(t)
	h.dl.err = &downloads.ForbiddenError{Status: payments.StatusFailed}

	w := h.do(t, http.MethodPost, "/downloads", DownloadRequest{TransactionID: "pi_1"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != ErrCodePaymentRequired || resp.PaymentStatus != "failed" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestResolveDownloadUnknownItem(t *testing.T) {
	h := newHarness(t)
	h.dl.err = catalog.ErrItemNotFound

	w := h.do(t, http.MethodPost, "/downloads", DownloadRequest{TransactionID: "pi_1", ItemID: "999"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestResolveDownloadProviderDown(t *testing.T) {
	h := newHarness(t)
	h.dl.err = errBoom

	w := h.do(t, http.MethodPost, "/downloads", DownloadRequest{TransactionID: "pi_1"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestResolveDownloadMissingTransaction(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodPost, "/downloads", map[string]any{"item_id": "7"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
