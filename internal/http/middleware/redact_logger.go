// Package middleware contains the Gin middleware shared by the HTTP layer.
//
// RedactingLogger is the access logger used in production: checkout requests
// carry buyer names, email addresses, and payment transaction ids, none of
// which belong in logs. The logger scrubs those from query strings and
// header values before emitting anything, and it never logs request or
// response bodies at all.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions adds extra headers to mask on top of the built-in set
// (Authorization, Cookie, Set-Cookie). Matching is case-insensitive.
type RedactOptions struct {
	MaskHeaders []string
}

// RedactingLogger logs method, path, query, status, size, and latency with
// buyer-identifying values scrubbed.
//
// Scrub order matters: transaction ids and UUIDs first, then emails, then
// long digit runs (card-number-shaped values), so the looser digit pattern
// never chews on the structured ids.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	txRE := regexp.MustCompile(`\b(?:pi|pm|seti|ch|cs)_[A-Za-z0-9_]{8,}\b`)
	uuidRE := regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE := regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// 12+ digits with optional separators; matches PAN-shaped values without
	// touching prices or item ids.
	panRE := regexp.MustCompile(`\b(?:\d[ -]?){12,19}\b`)

	redact := func(s string) string {
		if s == "" {
			return s
		}
		out := s
		out = txRE.ReplaceAllString(out, "[REDACTED:tx]")
		out = uuidRE.ReplaceAllString(out, "[REDACTED:id]")
		out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
		out = panRE.ReplaceAllString(out, "[REDACTED:number]")
		return out
	}

	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redact(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			val := strings.Join(vv, ", ")
			if _, masked := maskHeaders[strings.ToLower(k)]; masked {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(val)
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", latency).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
