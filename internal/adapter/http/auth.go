package http

import (
	"context"
	"encoding/hex"
	"net/http"

	"golang.org/x/crypto/blake2b"

	"github.com/bnema/shortsdash/internal/adapter/http/middleware"
	"github.com/bnema/shortsdash/internal/adapter/http/templates"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/port"
	"github.com/bnema/shortsdash/internal/service"
)

// BackendFor binds the backend to one browser's session cookie.
type BackendFor func(cookie string) port.Backend

type ctxKey int

const sessionCtxKey ctxKey = iota

// requestSession is the signed-in browser behind a request.
type requestSession struct {
	// key identifies the cookie without exposing it in logs or maps.
	key     string
	backend port.Backend
	session *service.Session
}

// sessionKey fingerprints a session cookie.
func sessionKey(cookie string) string {
	sum := blake2b.Sum256([]byte(cookie))
	return hex.EncodeToString(sum[:16])
}

type Auth struct {
	cookieName string
	loginPath  string
	googleURL  string
	backendFor BackendFor
	sessions   *service.Sessions
	views      *service.Views
}

func NewAuth(cookieName, loginPath, googleURL string, backendFor BackendFor, sessions *service.Sessions, views *service.Views) *Auth {
	return &Auth{
		cookieName: cookieName,
		loginPath:  loginPath,
		googleURL:  googleURL,
		backendFor: backendFor,
		sessions:   sessions,
		views:      views,
	}
}

// resolve returns the session for the request's cookie, running whoami the
// first time the cookie is seen.
func (a *Auth) resolve(r *http.Request) (*requestSession, bool) {
	cookie, err := r.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	backend := a.backendFor(cookie.Value)
	key := sessionKey(cookie.Value)
	return &requestSession{
		key:     key,
		backend: backend,
		session: a.sessions.Get(r.Context(), key, backend),
	}, true
}

// RequireSession only lets requests with an active session through.
func (a *Auth) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, ok := a.resolve(r)
		if !ok || !rs.session.Active() {
			middleware.RedirectToLogin(w, r, a.loginPath)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey, rs)))
	}
}

func sessionFrom(ctx context.Context) *requestSession {
	rs, _ := ctx.Value(sessionCtxKey).(*requestSession)
	return rs
}

func (a *Auth) Landing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signedIn := false
		if rs, ok := a.resolve(r); ok {
			signedIn = rs.session.Active()
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.Landing(signedIn).Render(r.Context(), w)
	}
}

func (a *Auth) LoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.Login(a.googleURL).Render(r.Context(), w)
	}
}

// Logout ends the backend session, closes the browser's live views and
// clears the cookie. Local state is cleared even when the backend fails.
func (a *Auth) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rs, ok := a.resolve(r); ok {
			if err := rs.session.Logout(r.Context()); err != nil {
				logger.Warn.Printf("backend logout failed: %v", err)
			}
			a.sessions.Forget(rs.key)
			if n := a.views.CloseOwner(rs.key); n > 0 {
				logger.Info.Printf("closed %d dashboard views on logout", n)
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     a.cookieName,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
