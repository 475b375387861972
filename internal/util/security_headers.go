package util

import (
	"net/http"
	"strings"
)

// Applied to every response. The app serves JSON, inline certificate
// PDFs, and image blobs; all of it is same-origin, so the CSP admits
// nothing but self-hosted images.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "no-referrer",
	"Permissions-Policy":      "geolocation=(), camera=(), microphone=()",
	"Content-Security-Policy": "default-src 'none'; img-src 'self'; frame-ancestors 'none'; base-uri 'none'",
}

const hstsValue = "max-age=31536000; includeSubDomains"

// WithSecurityHeaders sets hardening headers on every response. HSTS is
// emitted only when the request arrived over HTTPS, directly or through
// a forwarding proxy.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, value := range securityHeaders {
			w.Header().Set(name, value)
		}
		if secureRequest(r) {
			w.Header().Set("Strict-Transport-Security", hstsValue)
		}
		next.ServeHTTP(w, r)
	})
}

func secureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}
