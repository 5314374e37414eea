package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogs swaps the global logger for a buffer for the test's duration.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestRedactingLoggerScrubsBuyerData(t *testing.T) {
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/downloads", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet,
		"/downloads?email=ada@example.com&tx=pi_3NxyzABCdef12345&card=4242%204242%204242%204242", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := buf.String()
	for _, leaked := range []string{"ada@example.com", "pi_3NxyzABCdef12345", "4242 4242"} {
		if strings.Contains(out, leaked) {
			t.Errorf("log leaked %q:\n%s", leaked, out)
		}
	}
	for _, marker := range []string{"[REDACTED:email]", "[REDACTED:tx]", "[REDACTED:number]"} {
		if !strings.Contains(out, marker) {
			t.Errorf("missing %q in log:\n%s", marker, out)
		}
	}
}

func TestRedactingLoggerMasksHeaders(t *testing.T) {
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	req.Header.Set("Cookie", "newsstand_session=opaque")
	req.Header.Set("X-Api-Key", "sk_live_abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := buf.String()
	for _, leaked := range []string{"topsecret", "opaque", "sk_live_abc"} {
		if strings.Contains(out, leaked) {
			t.Errorf("log leaked %q:\n%s", leaked, out)
		}
	}
}

func TestRedactingLoggerKeepsPricesIntact(t *testing.T) {
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/issues", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/issues?page=2&page_size=20", nil))

	out := buf.String()
	if !strings.Contains(out, "page=2") || !strings.Contains(out, "page_size=20") {
		t.Fatalf("benign query was mangled:\n%s", out)
	}
}
