package middleware

import (
	"net/http"
	"strings"
)

// GateConfig lists what may be reached without a session cookie.
type GateConfig struct {
	CookieName     string
	LoginPath      string
	PublicPaths    []string
	PublicPrefixes []string
}

// SessionGate redirects requests for non-public paths that carry no session
// cookie to the login path. It only checks presence; handlers validate the
// session itself.
func SessionGate(cfg GateConfig) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path, public, cfg.PublicPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
				next.ServeHTTP(w, r)
				return
			}

			RedirectToLogin(w, r, cfg.LoginPath)
		})
	}
}

func isPublic(path string, exact map[string]bool, prefixes []string) bool {
	if exact[path] {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// RedirectToLogin sends the browser to loginPath. HTMX requests get an
// HX-Redirect header so the whole page navigates.
func RedirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.Header.Get("Accept") == "text/event-stream" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}
