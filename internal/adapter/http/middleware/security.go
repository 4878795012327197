package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders adds security-related HTTP headers to all responses.
// mediaOrigins are the origins generated videos and audio are served from.
func SecurityHeaders(mediaOrigins ...string) func(http.Handler) http.Handler {
	csp := buildCSP(mediaOrigins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			w.Header().Set("Content-Security-Policy", csp)

			if isTLS(r) {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// buildCSP constructs the Content-Security-Policy header value.
func buildCSP(mediaOrigins []string) string {
	media := strings.TrimSpace("'self' " + strings.Join(mediaOrigins, " "))
	directives := []string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net",
		"style-src 'self' 'unsafe-inline'",
		// Google profile pictures.
		"img-src 'self' data: https://lh3.googleusercontent.com",
		"media-src " + media,
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}
	return strings.Join(directives, "; ")
}

// isTLS checks both the connection and X-Forwarded-Proto.
func isTLS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}
