// Administrative HTTP handlers.
//
// This file exposes the session endpoints and the catalog management CRUD:
//   - POST   /admin/login    (issue a session cookie)
//   - GET    /admin/session  (who am I)
//   - POST   /admin/logout   (destroy the session)
//   - POST   /admin/issues   (create)
//   - PUT    /admin/issues/{id}
//   - DELETE /admin/issues/{id}
//
// All of it except login sits behind RequireAdmin. A structurally valid
// session belonging to any identity other than the configured administrator
// is destroyed on sight, not just rejected.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acervopress/go-newsstand-backend/internal/auth"
	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/money"
	"github.com/acervopress/go-newsstand-backend/internal/repo"
)

// sessionCookie is the administrative session cookie name.
const sessionCookie = "newsstand_session"

//
// DTOs
//

// AdminLoginRequest carries the administrator's credentials.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required" example:"admin@example.com"`
	Password string `json:"password" binding:"required"`
}

// AdminSessionResponse describes the authenticated session.
type AdminSessionResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateIssueRequest creates a catalog issue. Price is the decimal display
// form ("15.50"); it is converted to minor units server-side.
type CreateIssueRequest struct {
	Title          string `json:"title" binding:"required,min=1,max=255"`
	Description    string `json:"description"`
	Price          string `json:"price" binding:"required" example:"15.50"`
	CoverImagePath string `json:"cover_image_path"`
	AssetPath      string `json:"asset_path"`
	Month          int    `json:"month"`
	Year           int    `json:"year"`
	Active         *bool  `json:"active"`
}

// UpdateIssueRequest patches a catalog issue; only set fields are applied.
type UpdateIssueRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Price          *string `json:"price" example:"12.00"`
	CoverImagePath *string `json:"cover_image_path"`
	AssetPath      *string `json:"asset_path"`
	Month          *int    `json:"month"`
	Year           *int    `json:"year"`
	Active         *bool   `json:"active"`
}

//
// Session endpoints
//

// AdminLogin godoc
// @ID          adminLogin
// @Summary     Administrator login
// @Description Validates the credentials and issues an HttpOnly session cookie.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.AdminLoginRequest  true  "Credentials"
//
// @Success     200  {object} handlers.AdminSessionResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     401  {object} handlers.ErrorResponse "Invalid credentials"
// @Router      /admin/login [post]
func (h *Handlers) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}

	token, sess, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credentials")
		return
	case errors.Is(err, auth.ErrNotConfigured):
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", h.secureTLS, true)
	ok(c, http.StatusOK, AdminSessionResponse{Email: sess.Email, ExpiresAt: sess.ExpiresAt})
}

// AdminSession godoc
// @ID          adminSession
// @Summary     Current administrative session
// @Tags        Admin
// @Produce     json
// @Success     200  {object} handlers.AdminSessionResponse
// @Failure     401  {object} handlers.ErrorResponse "Not authenticated"
// @Failure     403  {object} handlers.ErrorResponse "Wrong identity (session destroyed)"
// @Router      /admin/session [get]
func (h *Handlers) AdminSession(c *gin.Context) {
	sess := sessionFrom(c)
	if sess == nil {
		// RequireAdmin should have aborted already.
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "not authenticated")
		return
	}
	ok(c, http.StatusOK, AdminSessionResponse{Email: sess.Email, ExpiresAt: sess.ExpiresAt})
}

// AdminLogout godoc
// @ID          adminLogout
// @Summary     Destroy the administrative session
// @Tags        Admin
// @Success     204  {string} string "No Content"
// @Router      /admin/logout [post]
func (h *Handlers) AdminLogout(c *gin.Context) {
	h.clearSession(c)
	noContent(c)
}

// RequireAdmin is the session guard for the administrative surface.
//
// No or invalid token answers 401. A valid token for any identity other
// than the configured administrator answers 403 and clears the cookie, so
// the stray session cannot be replayed.
func (h *Handlers) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(sessionCookie)
		sess, err := h.authSvc.Authorize(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set("adminEmail", sess.Email)
			c.Set("adminSession", sess)
			c.Next()
		case errors.Is(err, auth.ErrWrongIdentity):
			h.clearSession(c)
			fail(c, http.StatusForbidden, ErrCodeForbidden, "this account is not authorized")
		case errors.Is(err, auth.ErrNotConfigured):
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		default:
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "not authenticated")
		}
	}
}

func (h *Handlers) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", h.secureTLS, true)
}

func sessionFrom(c *gin.Context) *auth.Session {
	if v, ok := c.Get("adminSession"); ok {
		if s, ok := v.(*auth.Session); ok {
			return s
		}
	}
	return nil
}

//
// Catalog management
//

// CreateIssue godoc
// @ID          createIssue
// @Summary     Create a catalog issue
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateIssueRequest  true  "Issue payload"
// @Success     201  {object} handlers.IssueResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/issues [post]
func (h *Handlers) CreateIssue(c *gin.Context) {
	if h.db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "catalog store not configured")
		return
	}
	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	amount, err := money.ParseAmount(req.Price)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "price must be a decimal amount")
		return
	}

	item := &domain.CatalogItem{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		PriceCents:     money.MinorUnits(amount),
		CoverImagePath: req.CoverImagePath,
		AssetPath:      req.AssetPath,
		Month:          req.Month,
		Year:           req.Year,
		Active:         true,
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	created, err := repo.CreateCatalogItem(c.Request.Context(), h.db, item)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, toIssueResponse(*created))
}

// UpdateIssue godoc
// @ID          updateIssue
// @Summary     Update a catalog issue
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Issue id"
// @Param       body  body  handlers.UpdateIssueRequest  true  "Fields to update"
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Issue not found"
// @Router      /admin/issues/{id} [put]
func (h *Handlers) UpdateIssue(c *gin.Context) {
	if h.db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "catalog store not configured")
		return
	}
	id, err := catalog.NormalizeID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid issue id")
		return
	}

	var req UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title must not be empty")
			return
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		amount, err := money.ParseAmount(*req.Price)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "price must be a decimal amount")
			return
		}
		updates["price_cents"] = money.MinorUnits(amount)
	}
	if req.CoverImagePath != nil {
		updates["cover_image_path"] = *req.CoverImagePath
	}
	if req.AssetPath != nil {
		updates["asset_path"] = *req.AssetPath
	}
	if req.Month != nil {
		updates["month"] = *req.Month
	}
	if req.Year != nil {
		updates["year"] = *req.Year
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no fields to update")
		return
	}

	if err := repo.UpdateCatalogItem(c.Request.Context(), h.db, id, updates); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "issue not found")
		return
	}
	noContent(c)
}

// DeleteIssue godoc
// @ID          deleteIssue
// @Summary     Delete a catalog issue
// @Tags        Admin
// @Param       id  path  string  true  "Issue id"
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Issue not found"
// @Router      /admin/issues/{id} [delete]
func (h *Handlers) DeleteIssue(c *gin.Context) {
	if h.db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "catalog store not configured")
		return
	}
	id, err := catalog.NormalizeID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid issue id")
		return
	}
	if err := repo.DeleteCatalogItem(c.Request.Context(), h.db, id); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "issue not found")
		return
	}
	noContent(c)
}
