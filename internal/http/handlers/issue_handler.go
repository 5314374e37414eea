// Issue (catalog) HTTP handlers.
//
// This file exposes the public, read-only catalog endpoints:
//   - GET /issues        (list, paginated, ETag support)
//   - GET /issues/{id}   (single issue, accepts namespaced ids)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/acervopress/go-newsstand-backend/internal/auth"
	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/money"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
	"github.com/acervopress/go-newsstand-backend/internal/repo"
)

//
// Service contracts (context-aware)
//

// ItemLookup resolves a raw catalog item id (bare numeric or namespaced)
// to an item, whichever configured source answers first.
type ItemLookup interface {
	FindItem(ctx context.Context, rawID string) (*domain.CatalogItem, error)
}

// PaymentService covers the checkout lifecycle against the payment
// provider. Implementations must honor context cancellation.
type PaymentService interface {
	CreateTransaction(ctx context.Context, item *domain.CatalogItem, cust domain.Customer) (*payments.Transaction, error)
	ConfirmTransaction(ctx context.Context, clientSecret, paymentMethod string) (*payments.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*payments.Transaction, error)
}

// EntitlementService records purchases idempotently by provider
// transaction id.
type EntitlementService interface {
	RecordPurchase(ctx context.Context, rec domain.EntitlementRecord) (*domain.EntitlementRecord, bool, error)
	Find(ctx context.Context, providerTxID string) (*domain.EntitlementRecord, error)
}

// DownloadService resolves a confirmed payment to the purchased asset URL.
type DownloadService interface {
	Resolve(ctx context.Context, providerTxID, rawItemID string) (string, error)
}

// AuthService guards the administrative surface.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *auth.Session, error)
	Authorize(ctx context.Context, token string) (*auth.Session, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the catalog, checkout, downloads,
// and administration. It depends on abstract service interfaces to keep
// transport concerns separate from business logic. DB may be nil when the
// catalog is served remotely; the list endpoint then reads from Remote.
type Handlers struct {
	lookup    ItemLookup
	paySvc    PaymentService
	entSvc    EntitlementService
	dlSvc     DownloadService
	authSvc   AuthService
	db        *gorm.DB
	remote    *catalog.Client
	secureTLS bool
}

// New constructs a Handlers instance bound to the given services.
func New(lookup ItemLookup, paySvc PaymentService, entSvc EntitlementService, dlSvc DownloadService, authSvc AuthService, db *gorm.DB, remote *catalog.Client, secureTLS bool) *Handlers {
	return &Handlers{
		lookup:    lookup,
		paySvc:    paySvc,
		entSvc:    entSvc,
		dlSvc:     dlSvc,
		authSvc:   authSvc,
		db:        db,
		remote:    remote,
		secureTLS: secureTLS,
	}
}

//
// DTOs
//

// IssueResponse is a catalog item plus its display price. The asset path
// never leaves the server.
type IssueResponse struct {
	domain.CatalogItem
	// Price is the decimal display form of PriceCents, e.g. "15.50".
	Price string `json:"price"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListIssuesResponse wraps a page of issues and pagination information.
type ListIssuesResponse struct {
	Issues     []IssueResponse `json:"issues"`
	Pagination Pagination      `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = atoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = atoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// atoiDefault parses s as an int, falling back to def when s is empty or
// malformed.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func toIssueResponse(item domain.CatalogItem) IssueResponse {
	return IssueResponse{
		CatalogItem: item,
		Price:       money.FromMinorUnits(item.PriceCents).StringFixed(2),
	}
}

func toIssueResponses(items []domain.CatalogItem) []IssueResponse {
	out := make([]IssueResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toIssueResponse(it))
	}
	return out
}

//
// Handlers
//

// ListIssues godoc
// @ID          listIssues
// @Summary     List catalog issues (paginated)
// @Description Returns a page of active issues. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Issues
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListIssuesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     502  {object} handlers.ErrorResponse "Catalog sources unavailable"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /issues [get]
func (h *Handlers) ListIssues(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	if h.db == nil {
		h.listIssuesRemote(c, page, pageSize)
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := repo.CatalogStats(ctx, h.db); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"issues:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	total, err := repo.CountCatalogItems(ctx, h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListCatalogItemsPage(ctx, h.db, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	writeIssuePage(c, items, page, pageSize, total)
}

// listIssuesRemote serves the list from the remote catalog sources when no
// local store is configured. The full collection is small enough that
// in-memory pagination is fine here.
func (h *Handlers) listIssuesRemote(c *gin.Context, page, pageSize int) {
	if h.remote == nil {
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnavailable, "no catalog source configured")
		return
	}
	all, err := h.remote.Collection(c.Request.Context())
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnavailable, "catalog sources unavailable")
		return
	}

	active := all[:0]
	for _, it := range all {
		if it.Active {
			active = append(active, it)
		}
	}
	total := int64(len(active))
	start := (page - 1) * pageSize
	if start > len(active) {
		start = len(active)
	}
	end := start + pageSize
	if end > len(active) {
		end = len(active)
	}
	writeIssuePage(c, active[start:end], page, pageSize, total)
}

func writeIssuePage(c *gin.Context, items []domain.CatalogItem, page, pageSize int, total int64) {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListIssuesResponse{
		Issues: toIssueResponses(items),
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetIssue godoc
// @ID          getIssue
// @Summary     Get one catalog issue
// @Description Resolves an issue by id. Namespaced ids such as "jornal_7" are accepted and treated as issue 7.
// @Tags        Issues
// @Produce     json
//
// @Param       id  path  string  true  "Issue id (numeric or namespaced)"  example(jornal_7)
//
// @Success     200  {object} handlers.IssueResponse
// @Failure     404  {object} handlers.ErrorResponse "Issue not found"
// @Failure     502  {object} handlers.ErrorResponse "Catalog sources unavailable"
// @Router      /issues/{id} [get]
func (h *Handlers) GetIssue(c *gin.Context) {
	rawID := strings.TrimSpace(c.Param("id"))

	item, err := h.lookup.FindItem(c.Request.Context(), rawID)
	switch {
	case err == nil:
		ok(c, http.StatusOK, toIssueResponse(*item))
	case errors.Is(err, catalog.ErrItemNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "issue not found")
	case errors.Is(err, catalog.ErrSourceUnavailable):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnavailable, "catalog sources unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
