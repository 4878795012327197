package port

import (
	"context"
	"time"

	"github.com/bnema/shortsdash/internal/domain"
)

type StatusHistory interface {
	RecordStatus(ctx context.Context, videoID string, status domain.VideoStatus, at time.Time) error
	RecordClosure(ctx context.Context, videoID string, reason string, at time.Time) error
	ListHistory(ctx context.Context, videoID string) ([]domain.HistoryEntry, error)
}
