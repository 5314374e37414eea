package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/acervopress/go-newsstand-backend/internal/auth"
	"github.com/acervopress/go-newsstand-backend/internal/config"
	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/entitlements"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptedProvider is an in-memory payment provider: transactions move to
// succeeded on confirmation, like the real one on a happy path.
type scriptedProvider struct {
	mu  sync.Mutex
	txs map[string]*payments.Transaction
	n   int
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{txs: make(map[string]*payments.Transaction)}
}

func (p *scriptedProvider) CreateTransaction(ctx context.Context, req payments.CreateRequest) (*payments.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	id := fmt.Sprintf("pi_%d", p.n)
	tx := &payments.Transaction{
		ID:           id,
		ClientSecret: id + "_secret_x",
		Status:       payments.StatusPending,
		AmountCents:  req.AmountCents,
		CurrencyCode: req.CurrencyCode,
		Metadata:     req.Metadata,
	}
	p.txs[id] = tx
	return tx, nil
}

func (p *scriptedProvider) ConfirmTransaction(ctx context.Context, id, paymentMethod string) (*payments.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, ok := p.txs[id]
	if !ok {
		return nil, fmt.Errorf("no such transaction %q", id)
	}
	tx.Status = payments.StatusSucceeded
	return tx, nil
}

func (p *scriptedProvider) GetTransaction(ctx context.Context, id string) (*payments.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, ok := p.txs[id]
	if !ok {
		return nil, fmt.Errorf("no such transaction %q", id)
	}
	cp := *tx
	return &cp, nil
}

func testConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	cfg.APIBasePath = "/api/v1"
	cfg.AssetBaseURL = "/assets"
	cfg.RateRPS = 1000
	cfg.RateBurst = 1000
	return cfg
}

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB, *scriptedProvider) {
	t.Helper()

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.CatalogItem{}, &domain.EntitlementRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	provider := newScriptedProvider()
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	r := gin.New()
	RegisterRoutes(r, Deps{
		DB:       db,
		Payments: payments.NewService(provider, "brl"),
		Records:  entitlements.NewService(&entitlements.GormStore{DB: db}),
		Auth:     auth.NewService("admin@example.com", string(hash), "router-test-key", time.Hour),
	}, testConfig())

	return r, db, provider
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"not_found"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestMethodNotAllowedEnvelope(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodDelete, "/api/v1/issues", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

// TestPurchaseFlow walks the whole storefront path: look up the issue by
// its namespaced id, open a checkout for R$ 15.50, confirm it, save the
// purchase, and resolve the download. One entitlement record must exist at
// the end, holding the provider-confirmed 1550 minor units.
func TestPurchaseFlow(t *testing.T) {
	r, db, _ := newTestServer(t)

	seed := domain.CatalogItem{
		ID: 7, Title: "July", PriceCents: 1550, AssetPath: "issues/7.pdf",
		Month: 7, Year: 2024, Active: true,
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Storefront shows the issue.
	w := doJSON(t, r, http.MethodGet, "/api/v1/issues/jornal_7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get issue: %d, body = %s", w.Code, w.Body.String())
	}

	// Open the payment session.
	w = doJSON(t, r, http.MethodPost, "/api/v1/checkout", map[string]any{
		"item_id":  "jornal_7",
		"customer": map[string]string{"name": "Ana", "email": "ana@example.com"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("checkout: %d, body = %s", w.Code, w.Body.String())
	}
	var checkout struct {
		TransactionID string `json:"transaction_id"`
		ClientSecret  string `json:"client_secret"`
		AmountCents   int64  `json:"amount_cents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &checkout); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if checkout.AmountCents != 1550 {
		t.Fatalf("amount = %d, want 1550", checkout.AmountCents)
	}

	// Confirm it.
	w = doJSON(t, r, http.MethodPost, "/api/v1/checkout/confirm", map[string]any{
		"client_secret":  checkout.ClientSecret,
		"payment_method": "pm_card_visa",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: %d, body = %s", w.Code, w.Body.String())
	}

	// The success page saves the purchase, then resolves the download; the
	// download path would also have recorded it on its own.
	w = doJSON(t, r, http.MethodPost, "/api/v1/purchases", map[string]any{
		"transaction_id": checkout.TransactionID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("purchase: %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/downloads", map[string]any{
		"transaction_id": checkout.TransactionID,
		"item_id":        "jornal_7",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("download: %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "/assets/issues/7.pdf") {
		t.Fatalf("download body = %s", w.Body.String())
	}

	// Exactly one entitlement, with the provider's amount.
	var recs []domain.EntitlementRecord
	if err := db.Find(&recs).Error; err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("entitlements = %d, want 1", len(recs))
	}
	if recs[0].AmountCents != 1550 || recs[0].CurrencyCode != "brl" || recs[0].CatalogItemID != 7 {
		t.Fatalf("record = %+v", recs[0])
	}
}

// Downloads must work even when the success-page save never happened.
func TestDownloadWithoutPriorSave(t *testing.T) {
	r, db, provider := newTestServer(t)

	seed := domain.CatalogItem{ID: 7, Title: "July", PriceCents: 1550, AssetPath: "issues/7.pdf", Active: true}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	tx, err := provider.CreateTransaction(context.Background(), payments.CreateRequest{
		AmountCents: 1550, CurrencyCode: "brl",
		Metadata: map[string]string{
			payments.MetaCatalogItemID:    "7",
			payments.MetaCatalogItemTitle: "July",
			payments.MetaCustomerName:     "Ana",
			payments.MetaCustomerEmail:    "ana@example.com",
		},
	})
	if err != nil {
		t.Fatalf("create tx: %v", err)
	}
	if _, err := provider.ConfirmTransaction(context.Background(), tx.ID, "pm_card_visa"); err != nil {
		t.Fatalf("confirm tx: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/downloads", map[string]any{
		"transaction_id": tx.ID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("download: %d, body = %s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.Model(&domain.EntitlementRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("entitlements = %d, want 1", count)
	}
}

func TestDownloadUnpaidForbidden(t *testing.T) {
	r, db, provider := newTestServer(t)

	seed := domain.CatalogItem{ID: 7, Title: "July", PriceCents: 1550, AssetPath: "issues/7.pdf", Active: true}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	tx, err := provider.CreateTransaction(context.Background(), payments.CreateRequest{
		AmountCents: 1550, CurrencyCode: "brl",
		Metadata:    map[string]string{payments.MetaCatalogItemID: "7"},
	})
	if err != nil {
		t.Fatalf("create tx: %v", err)
	}

	// No confirmation: the client claims success anyway.
	w := doJSON(t, r, http.MethodPost, "/api/v1/downloads", map[string]any{
		"transaction_id": tx.ID,
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"payment_status":"pending"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}
