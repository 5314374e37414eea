package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/acervopress/go-newsstand-backend/internal/auth"
	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/entitlements"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
)

func init() {
	gin.SetMode(gin.TestMode)
}

//
// Fakes
//

// fakePayments scripts the payment provider behind the handler interfaces.
type fakePayments struct {
	createTx   *payments.Transaction
	createErr  error
	confirmTx  *payments.Transaction
	confirmErr error
	getTx      *payments.Transaction
	getErr     error

	lastItem *domain.CatalogItem
	lastCust domain.Customer
}

func (f *fakePayments) CreateTransaction(ctx context.Context, item *domain.CatalogItem, cust domain.Customer) (*payments.Transaction, error) {
	f.lastItem, f.lastCust = item, cust
	return f.createTx, f.createErr
}

func (f *fakePayments) ConfirmTransaction(ctx context.Context, clientSecret, paymentMethod string) (*payments.Transaction, error) {
	return f.confirmTx, f.confirmErr
}

func (f *fakePayments) GetTransaction(ctx context.Context, id string) (*payments.Transaction, error) {
	return f.getTx, f.getErr
}

type fakeDownloads struct {
	url string
	err error
}

func (f *fakeDownloads) Resolve(ctx context.Context, providerTxID, rawItemID string) (string, error) {
	return f.url, f.err
}

//
// Harness
//

type harness struct {
	db  *gorm.DB
	pay *fakePayments
	ent *entitlements.Service
	dl  *fakeDownloads
	au  *auth.Service
	h   *Handlers
	r   *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.CatalogItem{}, &domain.EntitlementRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pay := &fakePayments{}
	ent := entitlements.NewService(&entitlements.GormStore{DB: db})
	dl := &fakeDownloads{}
	au := auth.NewService("admin@example.com", mustHash(t, "letmein"), "handlers-test-key", time.Hour)

	h := New(&catalog.Lookup{DB: db}, pay, ent, dl, au, db, nil, false)

	r := gin.New()
	r.GET("/issues", h.ListIssues)
	r.GET("/issues/:id", h.GetIssue)
	r.POST("/checkout", h.Checkout)
	r.POST("/checkout/confirm", h.ConfirmCheckout)
	r.POST("/purchases", h.RecordPurchase)
	r.POST("/downloads", h.ResolveDownload)
	r.POST("/admin/login", h.AdminLogin)
	guarded := r.Group("")
	guarded.Use(h.RequireAdmin())
	guarded.GET("/admin/session", h.AdminSession)
	guarded.POST("/admin/logout", h.AdminLogout)
	guarded.POST("/admin/issues", h.CreateIssue)
	guarded.PUT("/admin/issues/:id", h.UpdateIssue)
	guarded.DELETE("/admin/issues/:id", h.DeleteIssue)

	return &harness{db: db, pay: pay, ent: ent, dl: dl, au: au, h: h, r: r}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func (h *harness) seedIssue(t *testing.T, id int64, title string, priceCents int64, assetPath string) {
	t.Helper()
	item := domain.CatalogItem{
		ID:         id,
		Title:      title,
		PriceCents: priceCents,
		AssetPath:  assetPath,
		Month:      7,
		Year:       2024,
		Active:     true,
	}
	if err := h.db.Create(&item).Error; err != nil {
		t.Fatalf("seed issue: %v", err)
	}
}

func (h *harness) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func succeededTx(id string, amount int64) *payments.Transaction {
	return &payments.Transaction{
		ID:           id,
		ClientSecret: id + "_secret_x",
		Status:       payments.StatusSucceeded,
		AmountCents:  amount,
		CurrencyCode: "brl",
		Metadata: map[string]string{
			payments.MetaCatalogItemID:    "7",
			payments.MetaCatalogItemTitle: "July",
			payments.MetaCustomerName:     "Ana",
			payments.MetaCustomerEmail:    "ana@example.com",
		},
	}
}

var errBoom = errors.New("boom")
