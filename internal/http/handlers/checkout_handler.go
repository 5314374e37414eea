// Checkout HTTP handlers.
//
// This file exposes the payment session endpoints:
//   - POST /checkout          (open a payment session for an issue)
//   - POST /checkout/confirm  (confirm the session with a payment method)
//
// Amounts never come from the client: the issue's stored price is converted
// to provider minor units server-side. Provider decline messages are passed
// through verbatim so the storefront can show the real reason.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/http/middleware"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
)

//
// DTOs
//

// CheckoutRequest opens a payment session for one issue.
type CheckoutRequest struct {
	// ItemID accepts bare numeric and namespaced ids ("7", "jornal_7").
	ItemID   string          `json:"item_id" binding:"required" example:"jornal_7"`
	Customer domain.Customer `json:"customer" binding:"required"`
}

// CheckoutResponse carries what the storefront needs to drive the
// provider's client-side confirmation flow.
type CheckoutResponse struct {
	TransactionID string `json:"transaction_id" example:"pi_3NxyzABC"`
	ClientSecret  string `json:"client_secret" example:"pi_3NxyzABC_secret_xyz"`
	AmountCents   int64  `json:"amount_cents" example:"1550"`
	Currency      string `json:"currency" example:"brl"`
	Status        string `json:"status" example:"pending"`
}

// ConfirmRequest confirms a payment session server-side.
type ConfirmRequest struct {
	ClientSecret  string `json:"client_secret" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required" example:"pm_card_visa"`
}

// ConfirmResponse reports the transaction's status after confirmation.
type ConfirmResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status" example:"succeeded"`
}

//
// Handlers
//

// Checkout godoc
// @ID          checkout
// @Summary     Open a payment session
// @Description Resolves the issue, converts its price to minor units, and creates a provider transaction tagged with the purchase context.
// @Tags        Checkout
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CheckoutRequest  true  "Checkout payload"
//
// @Success     200  {object} handlers.CheckoutResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Issue not found"
// @Failure     500  {object} handlers.ErrorResponse "Payment provider not configured"
// @Failure     502  {object} handlers.ErrorResponse "Catalog or provider unavailable"
// @Router      /checkout [post]
func (h *Handlers) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	item, err := h.lookup.FindItem(ctx, strings.TrimSpace(req.ItemID))
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrItemNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "issue not found")
		return
	case errors.Is(err, catalog.ErrSourceUnavailable):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnavailable, "catalog sources unavailable")
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	tx, err := h.paySvc.CreateTransaction(ctx, item, req.Customer)
	if err != nil {
		h.failPayment(c, err)
		return
	}

	ok(c, http.StatusOK, CheckoutResponse{
		TransactionID: tx.ID,
		ClientSecret:  tx.ClientSecret,
		AmountCents:   tx.AmountCents,
		Currency:      tx.CurrencyCode,
		Status:        string(tx.Status),
	})
}

// ConfirmCheckout godoc
// @ID          confirmCheckout
// @Summary     Confirm a payment session
// @Description Confirms the provider transaction with the given payment method. Declines answer 402 with the provider's message verbatim.
// @Tags        Checkout
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ConfirmRequest  true  "Confirmation payload"
//
// @Success     200  {object} handlers.ConfirmResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     402  {object} handlers.ErrorResponse "Payment declined"
// @Failure     500  {object} handlers.ErrorResponse "Payment provider not configured"
// @Failure     502  {object} handlers.ErrorResponse "Provider unavailable"
// @Router      /checkout/confirm [post]
func (h *Handlers) ConfirmCheckout(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	tx, err := h.paySvc.ConfirmTransaction(c.Request.Context(), req.ClientSecret, req.PaymentMethod)
	if err != nil {
		var declined *payments.DeclinedError
		if errors.As(err, &declined) {
			middleware.ObservePaymentOutcome("declined")
		}
		h.failPayment(c, err)
		return
	}

	middleware.ObservePaymentOutcome(string(tx.Status))
	ok(c, http.StatusOK, ConfirmResponse{
		TransactionID: tx.ID,
		Status:        string(tx.Status),
	})
}

// failPayment maps payment-layer errors onto the HTTP error taxonomy.
func (h *Handlers) failPayment(c *gin.Context, err error) {
	var declined *payments.DeclinedError
	switch {
	case errors.As(err, &declined):
		// The provider's own message, verbatim.
		fail(c, http.StatusPaymentRequired, ErrCodePaymentDeclined, declined.Message)
	case errors.Is(err, payments.ErrProviderNotConfigured):
		fail(c, http.StatusInternalServerError, ErrCodeProviderNotConfigured, err.Error())
	case errors.Is(err, payments.ErrInvalidAmount),
		errors.Is(err, payments.ErrInvalidCurrency),
		errors.Is(err, payments.ErrInvalidCustomer),
		errors.Is(err, payments.ErrInvalidConfirmation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnavailable, "payment provider unavailable")
	}
}
