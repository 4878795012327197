package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/port"
)

var _ port.StatusHistory = (*Store)(nil)

// timeLayout is fixed width so stored timestamps compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (s *Store) RecordStatus(ctx context.Context, videoID string, status domain.VideoStatus, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO status_history (video_id, kind, status, observed_at) VALUES (?, ?, ?, ?)`,
		videoID, string(domain.HistoryKindStatus), string(status), at.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record status: %w", err)
	}
	return nil
}

func (s *Store) RecordClosure(ctx context.Context, videoID string, reason string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO status_history (video_id, kind, reason, observed_at) VALUES (?, ?, ?, ?)`,
		videoID, string(domain.HistoryKindClosed), reason, at.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record closure: %w", err)
	}
	return nil
}

// ListHistory returns the entries of videoID oldest first.
func (s *Store) ListHistory(ctx context.Context, videoID string) ([]domain.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_id, kind, status, reason, observed_at
		FROM status_history WHERE video_id = ? ORDER BY id`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			e        domain.HistoryEntry
			kind     string
			status   string
			observed string
		)
		if err := rows.Scan(&e.ID, &e.VideoID, &kind, &status, &e.Reason, &observed); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Kind = domain.HistoryKind(kind)
		e.Status = domain.VideoStatus(status)
		if e.ObservedAt, err = time.Parse(timeLayout, observed); err != nil {
			return nil, fmt.Errorf("parse observed_at %q: %w", observed, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes entries observed before cutoff and returns how many
// were removed.
func (s *Store) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM status_history WHERE observed_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}
