package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/port"
)

// BackendMock mocks the request/response half of port.Backend and serves
// status streams from an embedded Streamer.
type BackendMock struct {
	mock.Mock
	*Streamer
}

var _ port.Backend = (*BackendMock)(nil)

func NewBackendMock(t *testing.T) *BackendMock {
	m := &BackendMock{Streamer: NewStreamer()}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BackendMock) ListVideos(ctx context.Context) ([]domain.Video, error) {
	args := m.Called(ctx)
	videos, _ := args.Get(0).([]domain.Video)
	return videos, args.Error(1)
}

func (m *BackendMock) CreateVideo(ctx context.Context, topic, voice string) (*domain.Video, error) {
	args := m.Called(ctx, topic, voice)
	video, _ := args.Get(0).(*domain.Video)
	return video, args.Error(1)
}

func (m *BackendMock) Me(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *BackendMock) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// HistoryMock mocks port.StatusHistory.
type HistoryMock struct {
	mock.Mock
}

var _ port.StatusHistory = (*HistoryMock)(nil)

func NewHistoryMock(t *testing.T) *HistoryMock {
	m := &HistoryMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *HistoryMock) RecordStatus(ctx context.Context, videoID string, status domain.VideoStatus, at time.Time) error {
	args := m.Called(ctx, videoID, status, at)
	return args.Error(0)
}

func (m *HistoryMock) RecordClosure(ctx context.Context, videoID string, reason string, at time.Time) error {
	args := m.Called(ctx, videoID, reason, at)
	return args.Error(0)
}

func (m *HistoryMock) ListHistory(ctx context.Context, videoID string) ([]domain.HistoryEntry, error) {
	args := m.Called(ctx, videoID)
	entries, _ := args.Get(0).([]domain.HistoryEntry)
	return entries, args.Error(1)
}
