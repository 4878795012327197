package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/port/mocks"
)

func runView(t *testing.T, opts ViewOptions) *View {
	t.Helper()

	v := NewView(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go v.Run(ctx) //nolint:errcheck
	t.Cleanup(func() {
		cancel()
		<-v.Done()
	})

	select {
	case <-v.Loaded():
	case <-time.After(waitFor):
		t.Fatal("view did not load")
	}
	return v
}

func TestView_LoadsRosterAndOpensStreams(t *testing.T) {
	backend := mocks.NewBackendMock(t)
	backend.On("ListVideos", mock.Anything).Return([]domain.Video{
		job("a", domain.VideoStatusGeneratingScript, 0),
		job("b", domain.VideoStatusCompleted, time.Hour),
	}, nil).Once()

	v := runView(t, ViewOptions{Backend: backend})

	videos, err := v.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(videos))

	streams, err := v.Streams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, streams)
}

func TestView_LoadFailureLeavesEmptyRoster(t *testing.T) {
	backend := mocks.NewBackendMock(t)
	backend.On("ListVideos", mock.Anything).Return(nil, errors.New("backend down")).Once()

	v := runView(t, ViewOptions{Backend: backend})

	videos, err := v.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestView_Create(t *testing.T) {
	created := job("new", domain.VideoStatusPending, -time.Minute)
	created.Topic = "cats"
	created.Voice = "voiceA"

	t.Run("inserts the backend record and streams it", func(t *testing.T) {
		backend := mocks.NewBackendMock(t)
		backend.On("ListVideos", mock.Anything).Return([]domain.Video{
			job("a", domain.VideoStatusCompleted, 0),
		}, nil).Once()
		backend.On("CreateVideo", mock.Anything, "cats", "voiceA").Return(&created, nil).Once()

		v := runView(t, ViewOptions{Backend: backend})

		got, err := v.Create(context.Background(), "  cats ", "voiceA")
		require.NoError(t, err)
		assert.Equal(t, created, *got)

		videos, err := v.Snapshot(context.Background())
		require.NoError(t, err)
		require.Len(t, videos, 2)
		assert.Equal(t, created, videos[0])

		streams, err := v.Streams(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"new"}, streams)
		require.Eventually(t, func() bool { return backend.Latest("new") != nil }, waitFor, tick)
	})

	t.Run("failure leaves roster untouched", func(t *testing.T) {
		backend := mocks.NewBackendMock(t)
		backend.On("ListVideos", mock.Anything).Return([]domain.Video{
			job("a", domain.VideoStatusCompleted, 0),
		}, nil).Once()
		backend.On("CreateVideo", mock.Anything, "cats", "voiceA").Return(nil, errors.New("quota exceeded")).Once()

		v := runView(t, ViewOptions{Backend: backend})

		_, err := v.Create(context.Background(), "cats", "voiceA")
		require.Error(t, err)

		videos, err := v.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(videos))
	})

	t.Run("invalid input never reaches the backend", func(t *testing.T) {
		backend := mocks.NewBackendMock(t)
		backend.On("ListVideos", mock.Anything).Return(nil, nil).Once()

		v := runView(t, ViewOptions{Backend: backend})

		_, err := v.Create(context.Background(), "   ", "voiceA")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestView_TeardownClosesEveryStream(t *testing.T) {
	backend := mocks.NewBackendMock(t)
	backend.On("ListVideos", mock.Anything).Return([]domain.Video{
		job("a", domain.VideoStatusPending, 0),
		job("b", domain.VideoStatusCompiling, time.Minute),
	}, nil).Once()

	v := runView(t, ViewOptions{Backend: backend})
	require.Eventually(t, func() bool {
		return backend.Latest("a") != nil && backend.Latest("b") != nil
	}, waitFor, tick)

	v.Close()
	v.Close()
	<-v.Done()

	assert.True(t, backend.Latest("a").Cancelled())
	assert.True(t, backend.Latest("b").Cancelled())
	assert.False(t, backend.Latest("a").Send(`{"id":"a","status":"completed"}`))

	_, err := v.Snapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrViewClosed)
	assert.ErrorIs(t, v.Run(context.Background()), ErrViewRunning)
}

func TestView_InactiveSessionSkipsLoad(t *testing.T) {
	backend := mocks.NewBackendMock(t)
	backend.On("Me", mock.Anything).Return(nil, domain.ErrUnauthenticated).Once()

	v := runView(t, ViewOptions{Backend: backend, Session: NewSession(backend)})

	videos, err := v.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, videos)
	backend.AssertNotCalled(t, "ListVideos", mock.Anything)
}

func TestView_UnauthenticatedLoadInvalidatesSession(t *testing.T) {
	backend := mocks.NewBackendMock(t)
	backend.On("Me", mock.Anything).Return(&domain.User{ID: "u1", Email: "u1@example.com"}, nil).Once()
	backend.On("ListVideos", mock.Anything).Return(nil, domain.ErrUnauthenticated).Once()

	session := NewSession(backend)
	runView(t, ViewOptions{Backend: backend, Session: session})

	assert.False(t, session.Active())
}

func TestView_PublishesRosterEvents(t *testing.T) {
	backend := mocks.NewBackendMock(t)
	backend.On("ListVideos", mock.Anything).Return([]domain.Video{
		job("a", domain.VideoStatusPending, 0),
	}, nil).Once()

	bus := NewEventBus()
	v := NewView(ViewOptions{Backend: backend, Bus: bus})
	events := bus.Subscribe(v.ID())

	ctx, cancel := context.WithCancel(context.Background())
	go v.Run(ctx) //nolint:errcheck

	select {
	case ev := <-events:
		assert.Equal(t, RosterReset, ev.Kind)
		assert.Equal(t, []string{"a"}, ids(ev.Videos))
	case <-time.After(waitFor):
		t.Fatal("no reset event")
	}

	stream := func() bool { return backend.Latest("a") != nil }
	require.Eventually(t, stream, waitFor, tick)
	require.True(t, backend.Latest("a").Send(`{"id":"a","status":"generating_voice"}`))

	select {
	case ev := <-events:
		assert.Equal(t, RosterUpdated, ev.Kind)
		assert.Equal(t, domain.VideoStatusGeneratingVoice, ev.Video.Status)
	case <-time.After(waitFor):
		t.Fatal("no update event")
	}

	cancel()
	<-v.Done()

	_, open := <-events
	assert.False(t, open, "subscription should be closed on teardown")
}

func TestView_InvalidatedSessionClosesStreams(t *testing.T) {
	backend := mocks.NewBackendMock(t)
	backend.On("Me", mock.Anything).Return(&domain.User{ID: "u1", Email: "u1@example.com"}, nil).Once()
	backend.On("ListVideos", mock.Anything).Return([]domain.Video{
		job("a", domain.VideoStatusGeneratingVoice, 0),
	}, nil).Once()

	session := NewSession(backend)
	v := runView(t, ViewOptions{Backend: backend, Session: session})
	require.Eventually(t, func() bool { return backend.Latest("a") != nil }, waitFor, tick)

	// Another request on the same session hits a 401.
	session.Invalidate()

	require.Eventually(t, func() bool { return backend.Latest("a").Cancelled() }, waitFor, tick)
	streams, err := v.Streams(context.Background())
	require.NoError(t, err)
	assert.Empty(t, streams)
}
