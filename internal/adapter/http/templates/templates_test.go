package templates

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shortsdash/internal/domain"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestVideoRow(t *testing.T) {
	v := domain.Video{
		ID:        "v1",
		Topic:     "<script>alert(1)</script>",
		Voice:     "nova",
		Status:    domain.VideoStatusGeneratingImages,
		CreatedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
	}

	t.Run("escapes user text", func(t *testing.T) {
		out := render(t, VideoRow(v))
		assert.NotContains(t, out, "<script>")
		assert.Contains(t, out, "&lt;script&gt;")
	})

	t.Run("listens on its own row event", func(t *testing.T) {
		out := render(t, VideoRow(v))
		assert.Contains(t, out, `id="video-v1"`)
		assert.Contains(t, out, `sse-swap="row-v1"`)
		assert.Contains(t, out, "Crafting Images")
		assert.Contains(t, out, `<progress max="100" value="66">`)
		assert.Contains(t, out, "Feb 3, 2026")
	})

	t.Run("completed video shows the final cut", func(t *testing.T) {
		done := v
		done.Status = domain.VideoStatusCompleted
		done.FinalURL = "https://cdn.example.com/v1.mp4"
		out := render(t, VideoRow(done))
		assert.NotContains(t, out, "<progress")
		assert.Contains(t, out, `src="https://cdn.example.com/v1.mp4"`)
	})

	t.Run("unsafe artifact urls are neutralized", func(t *testing.T) {
		bad := v
		bad.FinalURL = "javascript:alert(1)"
		out := render(t, VideoRow(bad))
		assert.NotContains(t, out, "javascript:")
	})
}

func TestVideoList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		out := render(t, VideoList(nil))
		assert.Contains(t, out, "No videos yet")
		assert.Contains(t, out, `sse-swap="insert"`)
	})

	t.Run("rows in order", func(t *testing.T) {
		out := render(t, VideoList([]domain.Video{
			{ID: "b", Status: domain.VideoStatusPending},
			{ID: "a", Status: domain.VideoStatusPending},
		}))
		assert.Less(t, bytes.Index([]byte(out), []byte("video-b")), bytes.Index([]byte(out), []byte("video-a")))
	})
}

func TestCreateForm(t *testing.T) {
	t.Run("keeps submitted values on error", func(t *testing.T) {
		out := render(t, CreateForm(FormState{
			ViewID: "view-1", CSRFToken: "tok", Topic: `cats "and" dogs`, Voice: "nova", Error: "quota exceeded",
		}))
		assert.Contains(t, out, `value="cats &#34;and&#34; dogs"`)
		assert.Contains(t, out, `<option value="nova" selected>`)
		assert.Contains(t, out, "quota exceeded")
		assert.Contains(t, out, `name="view" value="view-1"`)
	})

	t.Run("cleared form", func(t *testing.T) {
		out := render(t, CreateForm(FormState{ViewID: "view-1", Notice: "Video queued"}))
		assert.Contains(t, out, `name="topic" required placeholder="Enter video theme" maxlength="200" value=""`)
		assert.NotContains(t, out, "selected")
		assert.Contains(t, out, "Video queued")
	})
}

func TestDashboard(t *testing.T) {
	out := render(t, Dashboard(DashboardData{
		User: &domain.User{Email: "ada@example.com"},
		Form: FormState{ViewID: "view-1", CSRFToken: "tok"},
	}))
	assert.Contains(t, out, `sse-connect="/dashboard/events?view=view-1"`)
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "Series management coming soon")
}

func TestHistory(t *testing.T) {
	at := time.Date(2026, 2, 3, 10, 11, 12, 0, time.UTC)
	out := render(t, History("v1", []domain.HistoryEntry{
		{Kind: domain.HistoryKindStatus, Status: domain.VideoStatusCompiling, ObservedAt: at},
		{Kind: domain.HistoryKindClosed, Reason: "completed", ObservedAt: at},
	}))
	assert.Contains(t, out, "10:11:12")
	assert.Contains(t, out, "Video Rendering")
	assert.Contains(t, out, "stream closed: completed")
	assert.Contains(t, out, "/dashboard/videos/v1/history?format=csv")

	assert.Contains(t, render(t, History("v1", nil)), "Nothing recorded yet")
}
