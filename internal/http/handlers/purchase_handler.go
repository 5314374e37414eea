// Purchase record HTTP handler.
//
// POST /purchases is the storefront's success-page save: after the provider
// confirms a payment client-side, the buyer's browser asks the backend to
// persist the purchase. The handler never trusts the client's word for it;
// the transaction is re-fetched from the provider and the record is built
// from the provider's authoritative amount, currency, and metadata. Replays
// are harmless: the first stored record wins.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/entitlements"
	"github.com/acervopress/go-newsstand-backend/internal/http/middleware"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
)

// RecordPurchaseRequest asks the backend to persist a confirmed purchase.
type RecordPurchaseRequest struct {
	TransactionID string `json:"transaction_id" binding:"required" example:"pi_3NxyzABC"`
}

// RecordPurchase godoc
// @ID          recordPurchase
// @Summary     Persist a confirmed purchase
// @Description Re-validates the transaction with the payment provider and stores an entitlement record. Idempotent on the transaction id.
// @Tags        Purchases
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RecordPurchaseRequest  true  "Purchase payload"
//
// @Success     201  {object} domain.EntitlementRecord "Newly recorded"
// @Success     200  {object} domain.EntitlementRecord "Already recorded"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     403  {object} handlers.ErrorResponse "Payment not completed"
// @Failure     502  {object} handlers.ErrorResponse "Provider unavailable"
// @Router      /purchases [post]
func (h *Handlers) RecordPurchase(c *gin.Context) {
	var req RecordPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.TransactionID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transaction_id required")
		return
	}

	ctx := c.Request.Context()
	tx, err := h.paySvc.GetTransaction(ctx, strings.TrimSpace(req.TransactionID))
	if err != nil {
		h.failPayment(c, err)
		return
	}
	if tx.Status != payments.StatusSucceeded {
		failWith(c, http.StatusForbidden, ErrorResponse{
			Code:          ErrCodePaymentRequired,
			Message:       "payment not completed",
			PaymentStatus: string(tx.Status),
		})
		return
	}

	itemID, _ := catalog.NormalizeID(tx.Metadata[payments.MetaCatalogItemID])
	rec, created, err := h.entSvc.RecordPurchase(ctx, domain.EntitlementRecord{
		ProviderTransactionID: tx.ID,
		CustomerName:          tx.Metadata[payments.MetaCustomerName],
		CustomerEmail:         tx.Metadata[payments.MetaCustomerEmail],
		CatalogItemID:         itemID,
		CatalogItemTitle:      tx.Metadata[payments.MetaCatalogItemTitle],
		AmountCents:           tx.AmountCents,
		CurrencyCode:          tx.CurrencyCode,
	})
	if err != nil {
		if errors.Is(err, entitlements.ErrMissingTransactionID) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}

	middleware.ObserveEntitlementWrite(created)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, rec)
}
