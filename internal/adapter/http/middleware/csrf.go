package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"golang.org/x/crypto/blake2b"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	CSRFFormField  = "csrf_token"
	csrfCookiePath = "/"
	csrfMaxAge     = 86400 // 24 hours
	tokenSize      = 32
	macSize        = blake2b.Size256
)

// CSRFProtection implements double-submit cookies whose tokens carry a keyed
// BLAKE2b MAC.
type CSRFProtection struct {
	secretKey []byte
}

// NewCSRFProtection derives a 32-byte MAC key from secretKey.
func NewCSRFProtection(secretKey string) *CSRFProtection {
	key := blake2b.Sum256([]byte(secretKey))
	return &CSRFProtection{secretKey: key[:]}
}

// Middleware sets the token cookie when missing and rejects unsafe methods
// whose form field or header does not match it.
func (c *CSRFProtection) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(csrfCookieName); err != nil {
			c.setCSRFCookie(w, r, c.GenerateToken())
		}

		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		if !c.validateRequest(r) {
			http.Error(w, "Forbidden - Invalid CSRF token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GenerateToken returns base64(32 random bytes + BLAKE2b-256 MAC).
func (c *CSRFProtection) GenerateToken() string {
	randomBytes := make([]byte, tokenSize)
	_, _ = rand.Read(randomBytes)

	token := make([]byte, 0, tokenSize+macSize)
	token = append(token, randomBytes...)
	token = append(token, c.sign(randomBytes)...)
	return base64.URLEncoding.EncodeToString(token)
}

// ValidateToken checks the MAC of token.
func (c *CSRFProtection) ValidateToken(token string) bool {
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(decoded) != tokenSize+macSize {
		return false
	}
	return subtle.ConstantTimeCompare(decoded[tokenSize:], c.sign(decoded[:tokenSize])) == 1
}

// Token returns the request's CSRF cookie value, or a fresh token when the
// cookie is missing or forged. Pages embed it in their forms.
func (c *CSRFProtection) Token(r *http.Request) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && c.ValidateToken(cookie.Value) {
		return cookie.Value
	}
	return c.GenerateToken()
}

func (c *CSRFProtection) sign(data []byte) []byte {
	mac, err := blake2b.New256(c.secretKey)
	if err != nil {
		panic(err) // key is always 32 bytes
	}
	mac.Write(data)
	return mac.Sum(nil)
}

func (c *CSRFProtection) validateRequest(r *http.Request) bool {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil {
		return false
	}

	requestToken := r.Header.Get(csrfHeaderName)
	if requestToken == "" {
		requestToken = r.FormValue(CSRFFormField)
	}
	if requestToken == "" {
		return false
	}

	if subtle.ConstantTimeCompare([]byte(requestToken), []byte(cookie.Value)) != 1 {
		return false
	}
	return c.ValidateToken(requestToken)
}

func (c *CSRFProtection) setCSRFCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     csrfCookiePath,
		MaxAge:   csrfMaxAge,
		Secure:   isTLS(r),
		HttpOnly: false, // Must be readable by JavaScript for HTMX
		SameSite: http.SameSiteStrictMode,
	})
	// Make the token visible to handlers rendering forms in this response.
	r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
