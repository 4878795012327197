package port

import (
	"context"

	"github.com/bnema/shortsdash/internal/domain"
)

// VideoAPI is the job listing and creation half of the backend contract.
type VideoAPI interface {
	ListVideos(ctx context.Context) ([]domain.Video, error)
	CreateVideo(ctx context.Context, topic, voice string) (*domain.Video, error)
}

type AuthAPI interface {
	Me(ctx context.Context) (*domain.User, error)
	Logout(ctx context.Context) error
}

// StatusStreamer opens the server-push status feed of a single video.
// Cancelling ctx must release the underlying connection.
type StatusStreamer interface {
	OpenStatusStream(ctx context.Context, videoID string) (StatusStream, error)
}

// StatusStream yields events until the server ends the stream or the
// transport fails. Err returns nil after a clean end of stream.
type StatusStream interface {
	Next() bool
	Event() StreamEvent
	Err() error
	Close() error
}

type StreamEvent struct {
	Type string
	Data []byte
}

// Backend is everything the dashboard consumes for one session.
type Backend interface {
	VideoAPI
	AuthAPI
	StatusStreamer
}
