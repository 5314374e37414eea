package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limitedRouter(rps float64, burst int) *gin.Engine {
	r := gin.New()
	rl := NewRateLimiter(rps, burst, KeyBySessionOrIP())
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	r := limitedRouter(100, 5)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
}

func TestRateLimiterRejectsBeyondBurst(t *testing.T) {
	r := limitedRouter(0.0001, 1)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After not set")
	}
	if !strings.Contains(w.Body.String(), "rate_limited") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestRateLimiterKeysAdminSessionSeparately(t *testing.T) {
	rl := NewRateLimiter(0.0001, 1, KeyBySessionOrIP())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-Admin") != "" {
			c.Set("adminEmail", c.GetHeader("X-Test-Admin"))
		}
	})
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Exhaust the anonymous (IP) bucket.
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	}

	// The admin bucket is independent and still has its burst token.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Test-Admin", "admin@example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("admin request: status = %d", w.Code)
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyBySessionOrIP())
	rl.ttl = time.Millisecond

	rl.getVisitor("ip:203.0.113.7")
	time.Sleep(5 * time.Millisecond)

	// Force a sweep.
	rl.mu.Lock()
	rl.cleanupN = 4999
	rl.mu.Unlock()
	rl.getVisitor("ip:198.51.100.1")

	rl.mu.Lock()
	_, stale := rl.visitors["ip:203.0.113.7"]
	rl.mu.Unlock()
	if stale {
		t.Fatal("idle bucket not evicted")
	}
}
