package http

import (
	"context"
	"net/http"
	"time"

	"github.com/bnema/shortsdash/internal/adapter/http/middleware"
	"github.com/bnema/shortsdash/internal/adapter/http/ratelimit"
	"github.com/bnema/shortsdash/internal/port"
	"github.com/bnema/shortsdash/internal/service"
	"github.com/bnema/shortsdash/static"
)

type Options struct {
	BackendFor BackendFor
	History    port.StatusHistory
	Sessions   *service.Sessions
	Views      *service.Views
	EventBus   *service.EventBus

	CSRFSecret     string
	Gate           middleware.GateConfig
	GoogleLoginURL string
	// MediaOrigins may serve the videos and audio the dashboard embeds.
	MediaOrigins []string
	KeepAlive    time.Duration

	CreatesPerMinute float64
	CreateBurst      int

	HealthCheck func(ctx context.Context) error
	Version     string
}

type Server struct {
	mux        *http.ServeMux
	handler    http.Handler
	auth       *Auth
	handlers   *Handlers
	sseHandler *SSEHandler
	limiter    *ratelimit.Limiter
	views      *service.Views
}

func NewServer(opts Options) *Server {
	if opts.Sessions == nil {
		opts.Sessions = service.NewSessions()
	}
	if opts.Views == nil {
		opts.Views = service.NewViews()
	}
	if opts.EventBus == nil {
		opts.EventBus = service.NewEventBus()
	}
	if opts.Gate.LoginPath == "" {
		opts.Gate.LoginPath = "/auth/login"
	}

	mux := http.NewServeMux()
	csrf := middleware.NewCSRFProtection(opts.CSRFSecret)
	limiter := ratelimit.NewLimiter(opts.CreatesPerMinute, opts.CreateBurst, 30*time.Minute)

	handlers := NewHandlers(csrf, opts.Views, opts.History, limiter, opts.Gate.LoginPath, opts.Version)
	handlers.healthCheck = opts.HealthCheck

	s := &Server{
		mux:        mux,
		auth:       NewAuth(opts.Gate.CookieName, opts.Gate.LoginPath, opts.GoogleLoginURL, opts.BackendFor, opts.Sessions, opts.Views),
		handlers:   handlers,
		sseHandler: NewSSEHandler(opts.EventBus, opts.Views, opts.History, opts.KeepAlive),
		limiter:    limiter,
		views:      opts.Views,
	}

	s.registerRoutes()
	s.registerStatic()

	s.handler = middleware.SecurityHeaders(opts.MediaOrigins...)(
		middleware.SessionGate(opts.Gate)(
			csrf.Middleware(mux),
		),
	)
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.auth.Landing())
	s.mux.HandleFunc("GET "+s.auth.loginPath, s.auth.LoginPage())
	s.mux.HandleFunc("POST /logout", s.auth.Logout())

	s.mux.HandleFunc("GET /dashboard", s.auth.RequireSession(s.handlers.Dashboard()))
	s.mux.HandleFunc("GET /dashboard/events", s.auth.RequireSession(s.sseHandler.Events()))
	s.mux.HandleFunc("POST /dashboard/videos", s.auth.RequireSession(s.handlers.CreateVideo()))
	s.mux.HandleFunc("GET /dashboard/videos/{id}/history", s.auth.RequireSession(s.handlers.History()))

	s.mux.HandleFunc("GET /healthz", s.handlers.Healthz())
}

func (s *Server) registerStatic() {
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static.FS))))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close tears down every live dashboard view. Call it after the HTTP server
// has stopped accepting requests.
func (s *Server) Close() {
	s.views.CloseAll()
	s.limiter.Stop()
}
