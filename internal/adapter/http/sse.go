package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/shortsdash/internal/adapter/http/templates"
	"github.com/bnema/shortsdash/internal/adapter/http/validation"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/port"
	"github.com/bnema/shortsdash/internal/service"
)

const (
	defaultKeepAlive = 15 * time.Second
	// replaceTimeout bounds how long a reconnecting page waits for the
	// previous connection's view to tear down.
	replaceTimeout = 5 * time.Second
)

// SSEHandler runs one View per open dashboard page for as long as the
// browser holds the event stream, and relays its roster as HTML fragments.
type SSEHandler struct {
	eventBus  *service.EventBus
	views     *service.Views
	history   port.StatusHistory
	keepAlive time.Duration
}

func NewSSEHandler(eventBus *service.EventBus, views *service.Views, history port.StatusHistory, keepAlive time.Duration) *SSEHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &SSEHandler{
		eventBus:  eventBus,
		views:     views,
		history:   history,
		keepAlive: keepAlive,
	}
}

// sseWrite writes an SSE event, handling multi-line data correctly.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sendKeepAlive writes an SSE comment to keep the connection active.
func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sendRosterEvent renders ev as the fragment the page swaps for it: the
// whole list on reset, a new row on insert and the changed row on update.
func sendRosterEvent(w http.ResponseWriter, ev service.RosterEvent) error {
	var buf bytes.Buffer
	var name string
	var err error

	switch ev.Kind {
	case service.RosterReset:
		name = "reset"
		err = templates.VideoList(ev.Videos).Render(context.Background(), &buf)
	case service.RosterInserted:
		name = "insert"
		err = templates.VideoRow(ev.Video).Render(context.Background(), &buf)
	case service.RosterUpdated:
		name = templates.RowEvent(ev.Video.ID)
		err = templates.VideoRow(ev.Video).Render(context.Background(), &buf)
	default:
		return nil
	}

	if err != nil {
		return err
	}
	sseWrite(w, name, buf.String())
	return nil
}

func sendNotice(w http.ResponseWriter, msg string) {
	var buf bytes.Buffer
	_ = templates.Notice(msg).Render(context.Background(), &buf)
	sseWrite(w, "notice", buf.String())
}

// register adds v, replacing the view a reconnecting page left behind under
// the same id.
func (h *SSEHandler) register(owner string, v *service.View) error {
	err := h.views.Add(owner, v)
	if !errors.Is(err, service.ErrViewExists) {
		return err
	}

	old, ok := h.views.Get(owner, v.ID())
	if !ok {
		return err
	}
	old.Close()
	select {
	case <-old.Done():
	case <-time.After(replaceTimeout):
		return err
	}
	h.views.Remove(old)
	return h.views.Add(owner, v)
}

func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewID := r.URL.Query().Get("view")
		if !validation.ViewID(viewID) {
			http.Error(w, "Invalid view", http.StatusBadRequest)
			return
		}
		if _, ok := w.(http.Flusher); !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		rs := sessionFrom(r.Context())
		view := service.NewView(service.ViewOptions{
			ID:      viewID,
			Backend: rs.backend,
			Session: rs.session,
			Bus:     h.eventBus,
			History: h.history,
		})

		if err := h.register(rs.key, view); err != nil {
			logger.Warn.Printf("dashboard view %s rejected: %v", viewID, err)
			http.Error(w, "View already open", http.StatusConflict)
			return
		}
		defer h.views.Remove(view)

		// Subscribe before running so the initial reset is not missed.
		ch := h.eventBus.Subscribe(viewID)
		defer h.eventBus.Unsubscribe(viewID, ch)

		ctx, cancel := context.WithCancel(r.Context())
		go func() { _ = view.Run(ctx) }()
		defer func() {
			cancel()
			<-view.Done()
		}()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		sendKeepAlive(w)

		loaded := view.Loaded()
		keepAlive := time.NewTicker(h.keepAlive)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case <-loaded:
				loaded = nil
				if !rs.session.Active() {
					sendNotice(w, "Your session has expired. Sign in again to see live updates.")
				}
			case ev, ok := <-ch:
				if !ok {
					sendNotice(w, "Live updates stopped. Reload the page to resume.")
					return
				}
				if err := sendRosterEvent(w, ev); err != nil {
					logger.Error.Printf("failed to render %s event for view %s: %v", ev.Kind, viewID, err)
				}
			}
		}
	}
}
