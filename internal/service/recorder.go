package service

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/port"
)

type historyWrite struct {
	videoID string
	kind    domain.HistoryKind
	status  domain.VideoStatus
	reason  string
	at      time.Time
}

// HistoryRecorder writes supervisor observations to a StatusHistory from its
// own goroutine so the loop never waits on storage. Writes are dropped when
// the buffer is full.
type HistoryRecorder struct {
	store  port.StatusHistory
	writes chan historyWrite
	once   sync.Once
	done   chan struct{}
}

func NewHistoryRecorder(store port.StatusHistory, buffer int) *HistoryRecorder {
	if buffer <= 0 {
		buffer = 128
	}
	r := &HistoryRecorder{
		store:  store,
		writes: make(chan historyWrite, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *HistoryRecorder) RecordStatus(videoID string, status domain.VideoStatus, at time.Time) {
	r.enqueue(historyWrite{videoID: videoID, kind: domain.HistoryKindStatus, status: status, at: at})
}

func (r *HistoryRecorder) RecordClosure(videoID string, reason string, at time.Time) {
	r.enqueue(historyWrite{videoID: videoID, kind: domain.HistoryKindClosed, reason: reason, at: at})
}

func (r *HistoryRecorder) enqueue(w historyWrite) {
	select {
	case r.writes <- w:
	default:
		logger.Warn.Printf("history buffer full, dropping %s entry for video %s", w.kind, w.videoID)
	}
}

func (r *HistoryRecorder) run() {
	defer close(r.done)
	for w := range r.writes {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		if w.kind == domain.HistoryKindStatus {
			err = r.store.RecordStatus(ctx, w.videoID, w.status, w.at)
		} else {
			err = r.store.RecordClosure(ctx, w.videoID, w.reason, w.at)
		}
		cancel()
		if err != nil {
			logger.Error.Printf("failed to record history for video %s: %v", w.videoID, err)
		}
	}
}

// Close flushes pending writes and stops the recorder. Recording after Close
// is not allowed.
func (r *HistoryRecorder) Close() {
	r.once.Do(func() { close(r.writes) })
	<-r.done
}
