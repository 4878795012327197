package domain

import "time"

type HistoryKind string

const (
	HistoryKindStatus HistoryKind = "status"
	HistoryKindClosed HistoryKind = "closed"
)

// HistoryEntry is one observation recorded while supervising a video's stream.
type HistoryEntry struct {
	ID         int64
	VideoID    string
	Kind       HistoryKind
	Status     VideoStatus
	Reason     string
	ObservedAt time.Time
}
