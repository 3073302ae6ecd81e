package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Policy lists the headers stamped on every response of the app.
type Policy struct {
	// Directives are joined into Content-Security-Policy.
	Directives []string
	// HSTS is sent on TLS connections only; zero turns it off.
	HSTS time.Duration
	// Private pages show salaries and expenses and are never cached.
	Private bool
	Extra   map[string]string
}

// DefaultPolicy allows htmx from unpkg and nothing else from outside.
func DefaultPolicy() Policy {
	return Policy{
		Directives: []string{
			"default-src 'self'",
			"script-src 'self' https://unpkg.com",
			"style-src 'self' 'unsafe-inline'",
			"img-src 'self' data:",
			"connect-src 'self'",
			"object-src 'none'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		},
		HSTS:    365 * 24 * time.Hour,
		Private: true,
		Extra: map[string]string{
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "same-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
	}
}

// Headers applies a Policy. Header values are computed once.
type Headers struct {
	fixed http.Header
	hsts  string
}

func NewHeaders(p Policy) *Headers {
	fixed := make(http.Header, len(p.Extra)+2)
	for k, v := range p.Extra {
		fixed.Set(k, v)
	}
	if len(p.Directives) > 0 {
		fixed.Set("Content-Security-Policy", strings.Join(p.Directives, "; "))
	}
	if p.Private {
		fixed.Set("Cache-Control", "no-store")
	}

	h := &Headers{fixed: fixed}
	if p.HSTS > 0 {
		h.hsts = fmt.Sprintf("max-age=%d; includeSubDomains", int(p.HSTS.Seconds()))
	}
	return h
}

func (h *Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for k, v := range h.fixed {
			dst[k] = append([]string(nil), v...)
		}
		if r.TLS != nil && h.hsts != "" {
			dst.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// CacheStatic lets browsers keep embedded assets for maxAge. It overrides the
// no-store set for pages.
func CacheStatic(maxAge time.Duration) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}
