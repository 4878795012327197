package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shortsdash/internal/adapter/backend"
	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/port/mocks"
)

func createForm(viewID, topic, voice string) url.Values {
	return url.Values{"view": {viewID}, "topic": {topic}, "voice": {voice}}
}

func TestCreateVideo(t *testing.T) {
	created := &domain.Video{
		ID:        "v1",
		Topic:     "cats",
		Voice:     "nova",
		Status:    domain.VideoStatusPending,
		CreatedAt: time.Now(),
	}

	t.Run("queues the video and resets the form", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		b.On("ListVideos", mock.Anything).Return([]domain.Video{}, nil).Once()
		b.On("CreateVideo", mock.Anything, "cats and dogs", "nova").Return(created, nil).Once()
		s := newTestServer(t, b, nil)
		view := startView(t, s, b)

		rec := serve(s, postForm(s, "/dashboard/videos", createForm(view.ID(), "  cats\n and dogs ", "nova")))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Queued")
		assert.NotContains(t, body, `class="error"`)
		assert.NotContains(t, body, "cats and dogs")

		videos, err := view.Snapshot(t.Context())
		require.NoError(t, err)
		require.Len(t, videos, 1)
		assert.Equal(t, "v1", videos[0].ID)
	})

	t.Run("keeps the input on validation errors", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		b.On("ListVideos", mock.Anything).Return([]domain.Video{}, nil).Once()
		s := newTestServer(t, b, nil)
		view := startView(t, s, b)

		rec := serve(s, postForm(s, "/dashboard/videos", createForm(view.ID(), "   ", "nova")))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "topic is required")
		assert.Contains(t, rec.Body.String(), `value="nova" selected`)
		b.AssertNotCalled(t, "CreateVideo", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("shows backend errors and leaves the roster alone", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		b.On("ListVideos", mock.Anything).Return([]domain.Video{}, nil).Once()
		b.On("CreateVideo", mock.Anything, "cats", "nova").
			Return(nil, &backend.APIError{StatusCode: 422, Detail: "voice not available"}).Once()
		s := newTestServer(t, b, nil)
		view := startView(t, s, b)

		rec := serve(s, postForm(s, "/dashboard/videos", createForm(view.ID(), "cats", "nova")))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "voice not available")
		assert.Contains(t, rec.Body.String(), `value="cats"`)

		videos, err := view.Snapshot(t.Context())
		require.NoError(t, err)
		assert.Empty(t, videos)
	})

	t.Run("unknown view", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		s := newTestServer(t, b, nil)

		rec := serve(s, postForm(s, "/dashboard/videos", createForm(uuid.NewString(), "cats", "nova")))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), msgViewGone)
	})

	t.Run("malformed view id", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		s := newTestServer(t, b, nil)

		rec := serve(s, postForm(s, "/dashboard/videos", createForm("not-a-view", "cats", "nova")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("throttles per session", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		b.On("ListVideos", mock.Anything).Return([]domain.Video{}, nil).Once()
		s := newTestServer(t, b, nil)
		view := startView(t, s, b)

		for range 2 {
			rec := serve(s, postForm(s, "/dashboard/videos", createForm(view.ID(), "", "nova")))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.NotContains(t, rec.Body.String(), "Too many")
		}

		rec := serve(s, postForm(s, "/dashboard/videos", createForm(view.ID(), "", "nova")))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Too many videos requested")
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})
}

func TestCreateErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid input", fmt.Errorf("%w: topic is required", domain.ErrInvalidInput), "invalid input: topic is required"},
		{"view closed", domain.ErrViewClosed, msgViewGone},
		{"breaker open", fmt.Errorf("create: %w", backend.ErrUnavailable), msgUnavailable},
		{"client error detail", &backend.APIError{StatusCode: 400, Detail: "bad topic"}, "Failed to create video: bad topic"},
		{"server error", &backend.APIError{StatusCode: 500, Detail: "traceback"}, "Failed to create video. Try again."},
		{"other", errors.New("boom"), "Failed to create video. Try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, createErrorMessage(tt.err))
		})
	}
}

func TestHistory(t *testing.T) {
	observed := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	entries := []domain.HistoryEntry{
		{ID: 1, VideoID: "a", Kind: domain.HistoryKindStatus, Status: domain.VideoStatusGeneratingScript, ObservedAt: observed},
		{ID: 2, VideoID: "a", Kind: domain.HistoryKindStatus, Status: domain.VideoStatusCompleted, ObservedAt: observed.Add(time.Minute)},
		{ID: 3, VideoID: "a", Kind: domain.HistoryKindClosed, Reason: "completed", ObservedAt: observed.Add(time.Minute)},
	}
	owned := []domain.Video{{ID: "a", Topic: "cats", Status: domain.VideoStatusCompleted}}

	t.Run("html fragment", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		b.On("ListVideos", mock.Anything).Return(owned, nil).Once()
		history := mocks.NewHistoryMock(t)
		history.On("ListHistory", mock.Anything, "a").Return(entries, nil).Once()
		s := newTestServer(t, b, history)

		rec := serve(s, signedIn(httptest.NewRequest(http.MethodGet, "/dashboard/videos/a/history", nil)))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Writing Script")
		assert.Contains(t, body, "stream closed: completed")
		assert.Contains(t, body, "12:30:00")
	})

	t.Run("csv download", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		b.On("ListVideos", mock.Anything).Return(owned, nil).Once()
		history := mocks.NewHistoryMock(t)
		history.On("ListHistory", mock.Anything, "a").Return(entries, nil).Once()
		s := newTestServer(t, b, history)

		rec := serve(s, signedIn(httptest.NewRequest(http.MethodGet, "/dashboard/videos/a/history?format=csv", nil)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="cats-history.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t,
			"observed_at,kind,status,reason\n"+
				"2026-03-01T12:30:00Z,status,generating_script,\n"+
				"2026-03-01T12:31:00Z,status,completed,\n"+
				"2026-03-01T12:31:00Z,closed,,completed\n",
			rec.Body.String())
	})

	t.Run("video of another user", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		b.On("ListVideos", mock.Anything).Return([]domain.Video{}, nil).Once()
		history := mocks.NewHistoryMock(t)
		s := newTestServer(t, b, history)

		rec := serve(s, signedIn(httptest.NewRequest(http.MethodGet, "/dashboard/videos/a/history", nil)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		history.AssertNotCalled(t, "ListHistory", mock.Anything, mock.Anything)
	})

	t.Run("invalid id", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		s := newTestServer(t, b, mocks.NewHistoryMock(t))

		rec := serve(s, signedIn(httptest.NewRequest(http.MethodGet, "/dashboard/videos/a%20b/history", nil)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("expired session", func(t *testing.T) {
		b := mocks.NewBackendMock(t)
		b.On("Me", mock.Anything).Return(testUser, nil)
		b.On("ListVideos", mock.Anything).Return(nil, fmt.Errorf("list: %w", domain.ErrUnauthenticated)).Once()
		s := newTestServer(t, b, mocks.NewHistoryMock(t))

		rec := serve(s, signedIn(httptest.NewRequest(http.MethodGet, "/dashboard/videos/a/history", nil)))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	})
}
