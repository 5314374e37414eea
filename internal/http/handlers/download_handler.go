// Download HTTP handler.
//
// POST /downloads trades a confirmed payment for the purchased asset's URL.
// The transaction id in the body is only a claim; the resolver re-validates
// it with the payment provider before anything is handed out.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/downloads"
	"github.com/acervopress/go-newsstand-backend/internal/entitlements"
	"github.com/acervopress/go-newsstand-backend/internal/http/middleware"
)

// DownloadRequest claims a purchase and asks for the asset URL.
type DownloadRequest struct {
	TransactionID string `json:"transaction_id" binding:"required" example:"pi_3NxyzABC"`
	// ItemID is optional; when absent the item tagged on the transaction at
	// checkout is used.
	ItemID string `json:"item_id" example:"jornal_7"`
}

// DownloadResponse carries the resolved asset URL.
type DownloadResponse struct {
	URL string `json:"url" example:"/assets/issues/7.pdf"`
}

// ResolveDownload godoc
// @ID          resolveDownload
// @Summary     Resolve a purchased asset
// @Description Re-validates the payment with the provider, records the entitlement if missing, and returns the asset URL.
// @Tags        Downloads
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.DownloadRequest  true  "Download payload"
//
// @Success     200  {object} handlers.DownloadResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     403  {object} handlers.ErrorResponse "Payment not completed (current status disclosed)"
// @Failure     404  {object} handlers.ErrorResponse "Issue or asset not found"
// @Failure     502  {object} handlers.ErrorResponse "Provider or catalog unavailable"
// @Router      /downloads [post]
func (h *Handlers) ResolveDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.TransactionID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transaction_id required")
		return
	}

	url, err := h.dlSvc.Resolve(c.Request.Context(), req.TransactionID, req.ItemID)
	if err == nil {
		middleware.ObserveDownloadResolution("ok")
		ok(c, http.StatusOK, DownloadResponse{URL: url})
		return
	}

	var forbidden *downloads.ForbiddenError
	switch {
	case errors.As(err, &forbidden):
		middleware.ObserveDownloadResolution("forbidden")
		failWith(c, http.StatusForbidden, ErrorResponse{
			Code:          ErrCodePaymentRequired,
			Message:       "payment not completed",
			PaymentStatus: string(forbidden.Status),
		})
	case errors.Is(err, entitlements.ErrMissingTransactionID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, catalog.ErrItemNotFound):
		middleware.ObserveDownloadResolution("not_found")
		fail(c, http.StatusNotFound, ErrCodeNotFound, "issue not found")
	case errors.Is(err, catalog.ErrSourceUnavailable):
		middleware.ObserveDownloadResolution("error")
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnavailable, "catalog sources unavailable")
	default:
		middleware.ObserveDownloadResolution("error")
		h.failPayment(c, err)
	}
}
