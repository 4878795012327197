package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/shortsdash/internal/adapter/backend"
	"github.com/bnema/shortsdash/internal/adapter/http/middleware"
	"github.com/bnema/shortsdash/internal/adapter/http/ratelimit"
	"github.com/bnema/shortsdash/internal/adapter/http/templates"
	"github.com/bnema/shortsdash/internal/adapter/http/validation"
	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/port"
	"github.com/bnema/shortsdash/internal/service"
)

const (
	msgViewGone    = "This page lost its live connection. Reload to continue."
	msgUnavailable = "The video service is unavailable right now. Try again shortly."
)

type Handlers struct {
	csrf        *middleware.CSRFProtection
	views       *service.Views
	history     port.StatusHistory
	limiter     *ratelimit.Limiter
	loginPath   string
	healthCheck func(ctx context.Context) error
	version     string
}

func NewHandlers(csrf *middleware.CSRFProtection, views *service.Views, history port.StatusHistory, limiter *ratelimit.Limiter, loginPath, version string) *Handlers {
	return &Handlers{
		csrf:      csrf,
		views:     views,
		history:   history,
		limiter:   limiter,
		loginPath: loginPath,
		version:   version,
	}
}

func (h *Handlers) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs := sessionFrom(r.Context())
		user, _ := rs.session.User()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = templates.Dashboard(templates.DashboardData{
			User: user,
			Form: templates.FormState{
				ViewID:    uuid.NewString(),
				CSRFToken: h.csrf.Token(r),
			},
		}).Render(r.Context(), w)
	}
}

// CreateVideo submits the create form to the view the page is streaming
// from. The form fragment is always swapped back: empty with a notice on
// success, with the submitted values and an error otherwise.
func (h *Handlers) CreateVideo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs := sessionFrom(r.Context())
		form := templates.FormState{
			ViewID:    r.FormValue("view"),
			CSRFToken: h.csrf.Token(r),
			Topic:     validation.FormText(r.FormValue("topic")),
			Voice:     validation.FormText(r.FormValue("voice")),
		}

		if !validation.ViewID(form.ViewID) {
			http.Error(w, "Invalid view", http.StatusBadRequest)
			return
		}

		view, ok := h.views.Get(rs.key, form.ViewID)
		if !ok {
			form.Error = msgViewGone
			renderForm(w, r, form)
			return
		}

		if allowed, wait := h.limiter.Check(rs.key); !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			form.Error = fmt.Sprintf("Too many videos requested. Try again in %s.", wait.Round(time.Second))
			renderForm(w, r, form)
			return
		}

		video, err := view.Create(r.Context(), form.Topic, form.Voice)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				middleware.RedirectToLogin(w, r, h.loginPath)
				return
			}
			form.Error = createErrorMessage(err)
			renderForm(w, r, form)
			return
		}

		renderForm(w, r, templates.FormState{
			ViewID:    form.ViewID,
			CSRFToken: form.CSRFToken,
			Notice:    fmt.Sprintf("Queued %q.", video.DisplayTitle()),
		})
	}
}

func createErrorMessage(err error) string {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, domain.ErrViewClosed):
		return msgViewGone
	case errors.Is(err, backend.ErrUnavailable):
		return msgUnavailable
	case errors.As(err, &apiErr) && apiErr.Detail != "" && !apiErr.Temporary():
		return "Failed to create video: " + apiErr.Detail
	default:
		return "Failed to create video. Try again."
	}
}

func renderForm(w http.ResponseWriter, r *http.Request, form templates.FormState) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = templates.CreateForm(form).Render(r.Context(), w)
}

// History shows the recorded status timeline of one of the user's videos,
// as an HTML fragment or as CSV with ?format=csv.
func (h *Handlers) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !validation.VideoID(id) {
			http.Error(w, "Invalid video ID", http.StatusBadRequest)
			return
		}

		rs := sessionFrom(r.Context())
		video, err := h.ownedVideo(r, rs, id)
		switch {
		case errors.Is(err, domain.ErrUnauthenticated):
			rs.session.Invalidate()
			middleware.RedirectToLogin(w, r, h.loginPath)
			return
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Video not found", http.StatusNotFound)
			return
		case err != nil:
			logger.Error.Printf("failed to list videos for history: %v", err)
			http.Error(w, "Failed to load videos", http.StatusBadGateway)
			return
		}

		entries, err := h.history.ListHistory(r.Context(), id)
		if err != nil {
			logger.Error.Printf("failed to list history for video %s: %v", id, err)
			http.Error(w, "Failed to load history", http.StatusInternalServerError)
			return
		}

		if r.URL.Query().Get("format") == "csv" {
			writeHistoryCSV(w, video, entries)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.History(id, entries).Render(r.Context(), w)
	}
}

// ownedVideo returns the video when it belongs to the session's user.
func (h *Handlers) ownedVideo(r *http.Request, rs *requestSession, id string) (domain.Video, error) {
	videos, err := rs.backend.ListVideos(r.Context())
	if err != nil {
		return domain.Video{}, err
	}
	for _, v := range videos {
		if v.ID == id {
			return v, nil
		}
	}
	return domain.Video{}, domain.ErrNotFound
}

func writeHistoryCSV(w http.ResponseWriter, video domain.Video, entries []domain.HistoryEntry) {
	filename := validation.Filename(video.DisplayTitle()+"-history", ".csv")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", validation.ContentDisposition(filename))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"observed_at", "kind", "status", "reason"})
	for _, e := range entries {
		_ = cw.Write([]string{
			e.ObservedAt.UTC().Format(time.RFC3339Nano),
			string(e.Kind),
			string(e.Status),
			e.Reason,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.Error.Printf("failed to write history csv: %v", err)
	}
}

func (h *Handlers) Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if h.healthCheck != nil {
			if err := h.healthCheck(r.Context()); err != nil {
				logger.Warn.Printf("health check failed: %v", err)
				status, code = "unavailable", http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status, "version": h.version})
	}
}
