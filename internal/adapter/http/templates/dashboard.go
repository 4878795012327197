package templates

import (
	"time"

	"github.com/a-h/templ"

	"github.com/bnema/shortsdash/internal/domain"
)

// Voices offered by the create form.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// FormState is the create form as last submitted.
type FormState struct {
	ViewID    string
	CSRFToken string
	Topic     string
	Voice     string
	Error     string
	Notice    string
}

type DashboardData struct {
	User *domain.User
	Form FormState
}

// Dashboard renders the page shell. The video list is filled by the
// page's event stream.
func Dashboard(data DashboardData) templ.Component {
	return layout("Dashboard", data.User, data.Form.CSRFToken, component(func(h *html) {
		h.raw(`<div class="tabs" role="tablist">`)
		h.raw(`<input type="radio" name="tab" id="tab-videos" checked><label for="tab-videos">Videos</label>`)
		h.raw(`<input type="radio" name="tab" id="tab-series"><label for="tab-series">Series</label>`)

		h.raw(`<section class="tab-panel" id="panel-videos"><div class="panel-head"><h2>My Videos</h2></div>`)
		h.render(CreateForm(data.Form))

		h.raw(`<div hx-ext="sse"`)
		h.attr("sse-connect", "/dashboard/events?view="+data.Form.ViewID)
		h.raw(`><div class="status-line" sse-swap="notice" hx-swap="innerHTML"></div>`)
		h.raw(`<div id="video-list" class="grid" sse-swap="reset" hx-swap="innerHTML">`)
		h.raw(`<p class="empty">Loading videos…</p></div></div></section>`)

		h.raw(`<section class="tab-panel" id="panel-series"><h2>Series management coming soon...</h2></section>`)
		h.raw(`</div>`)
	}))
}

// CreateForm is swapped in place after every submission.
func CreateForm(f FormState) templ.Component {
	return component(func(h *html) {
		h.raw(`<form id="create-form" class="card" hx-post="/dashboard/videos" hx-swap="outerHTML" method="post" action="/dashboard/videos">`)
		h.raw(`<input type="hidden" name="view"`)
		h.attr("value", f.ViewID)
		h.raw(`><input type="hidden" name="csrf_token"`)
		h.attr("value", f.CSRFToken)
		h.raw(`>`)

		h.raw(`<label>Theme<input name="topic" required placeholder="Enter video theme"`)
		h.rawf(` maxlength="%d"`, domain.MaxTopicLength)
		h.attr("value", f.Topic)
		h.raw(`></label>`)

		h.raw(`<label>Voice Style<select name="voice" required><option value="">Choose a voice</option>`)
		for _, v := range Voices {
			h.raw(`<option`)
			h.attr("value", v)
			if v == f.Voice {
				h.raw(` selected`)
			}
			h.raw(`>`)
			h.text(v)
			h.raw(`</option>`)
		}
		h.raw(`</select></label>`)

		if f.Error != "" {
			h.raw(`<p class="error" role="alert">`)
			h.text(f.Error)
			h.raw(`</p>`)
		}
		if f.Notice != "" {
			h.raw(`<p class="notice">`)
			h.text(f.Notice)
			h.raw(`</p>`)
		}
		h.raw(`<button type="submit">Create Video</button></form>`)
	})
}

// VideoList renders every row plus the anchor new rows are inserted after.
func VideoList(videos []domain.Video) templ.Component {
	return component(func(h *html) {
		h.raw(`<div class="insert-anchor" sse-swap="insert" hx-swap="afterend"></div>`)
		if len(videos) == 0 {
			h.raw(`<p class="empty">No videos yet. Create your first one above.</p>`)
			return
		}
		for _, v := range videos {
			h.render(VideoRow(v))
		}
	})
}

// RowEvent is the SSE event name a row listens on.
func RowEvent(videoID string) string {
	return "row-" + videoID
}

func VideoRow(v domain.Video) templ.Component {
	return component(func(h *html) {
		h.raw(`<article`)
		h.attr("id", "video-"+v.ID)
		h.attr("class", "card video status-"+string(v.Status))
		h.attr("sse-swap", RowEvent(v.ID))
		h.raw(` hx-swap="outerHTML">`)

		h.raw(`<header><h3>`)
		h.text(v.DisplayTitle())
		h.raw(`</h3><span class="badge">`)
		h.text(v.Status.Label())
		h.raw(`</span></header>`)

		if !v.Status.IsTerminal() {
			h.rawf(`<progress max="100" value="%d"></progress>`, int(v.Status.Progress()*100))
		}

		h.raw(`<p class="meta">`)
		if v.Voice != "" {
			h.raw(`Voice: `)
			h.text(v.Voice)
			h.raw(` · `)
		}
		h.raw(`Created: `)
		h.text(formatDate(v.CreatedAt))
		h.raw(`</p>`)

		if url := v.ArtifactURL(); url != "" {
			h.raw(`<video controls preload="none"`)
			h.url("src", url)
			h.raw(`></video><a class="download"`)
			h.url("href", url)
			h.raw(` download>Download</a>`)
		} else if v.AudioURL != "" {
			h.raw(`<audio controls preload="none"`)
			h.url("src", v.AudioURL)
			h.raw(`></audio>`)
		}

		h.raw(`<details><summary`)
		h.attr("hx-get", "/dashboard/videos/"+v.ID+"/history")
		h.attr("hx-target", "#history-"+v.ID)
		h.raw(` hx-trigger="click once">Status history</summary><div`)
		h.attr("id", "history-"+v.ID)
		h.raw(`></div></details></article>`)
	})
}

// History renders the recorded timeline of one video.
func History(videoID string, entries []domain.HistoryEntry) templ.Component {
	return component(func(h *html) {
		if len(entries) == 0 {
			h.raw(`<p class="empty">Nothing recorded yet.</p>`)
			return
		}
		h.raw(`<ol class="timeline">`)
		for _, e := range entries {
			h.raw(`<li><time`)
			h.attr("datetime", e.ObservedAt.UTC().Format(time.RFC3339))
			h.raw(`>`)
			h.text(e.ObservedAt.UTC().Format("15:04:05"))
			h.raw(`</time> `)
			if e.Kind == domain.HistoryKindClosed {
				h.raw(`stream closed: `)
				h.text(e.Reason)
			} else {
				h.text(e.Status.Label())
			}
			h.raw(`</li>`)
		}
		h.raw(`</ol><a`)
		h.attr("href", "/dashboard/videos/"+videoID+"/history?format=csv")
		h.raw(`>Download CSV</a>`)
	})
}

// Notice is a one-line status message for the page.
func Notice(msg string) templ.Component {
	return component(func(h *html) {
		if msg == "" {
			return
		}
		h.raw(`<p class="notice">`)
		h.text(msg)
		h.raw(`</p>`)
	})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format("Jan 2, 2006")
}
