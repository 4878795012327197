package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Video is a video-generation job as observed by the dashboard.
type Video struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id,omitempty"`
	Topic     string      `json:"topic"`
	Voice     string      `json:"voice"`
	Title     string      `json:"title,omitempty"`
	Status    VideoStatus `json:"status"`
	Script    string      `json:"script,omitempty"`
	AudioURL  string      `json:"audio_url,omitempty"`
	VideoURL  string      `json:"video_url,omitempty"`
	FinalURL  string      `json:"final_url,omitempty"`
	CreatedAt time.Time   `json:"created_at"`

	// RawStatus is the status as received when it was not recognized.
	RawStatus string `json:"-"`
}

// UnmarshalJSON accepts the backend's list and detail shapes, including the
// creation_status key and timestamps without a zone. One odd field must not
// lose a whole listing: an unrecognized status decodes as
// VideoStatusUnknown, an unparsable created_at is left zero and a missing id
// is left empty for the caller to reject.
func (v *Video) UnmarshalJSON(data []byte) error {
	u, err := decodeVideoUpdate(data, true)
	if err != nil {
		return err
	}
	*v = Video{ID: u.ID, RawStatus: u.RawStatus}
	u.Apply(v)
	if v.Status == "" {
		v.Status = VideoStatusPending
	}
	return nil
}

// DisplayTitle returns the title, falling back to the topic.
func (v *Video) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	return v.Topic
}

// ArtifactURL returns the best playable output for the video, if any.
func (v *Video) ArtifactURL() string {
	if v.FinalURL != "" {
		return v.FinalURL
	}
	return v.VideoURL
}

// VideoUpdate is a partial Video pushed by the backend. Nil fields are absent
// from the payload and leave the record untouched.
type VideoUpdate struct {
	ID        string
	UserID    *string
	Topic     *string
	Voice     *string
	Title     *string
	Status    *VideoStatus
	Script    *string
	AudioURL  *string
	VideoURL  *string
	FinalURL  *string
	CreatedAt *time.Time

	// RawStatus holds the received status when Status is VideoStatusUnknown.
	RawStatus string
}

type videoUpdateWire struct {
	ID             *string `json:"id"`
	UserID         *string `json:"user_id"`
	Topic          *string `json:"topic"`
	Voice          *string `json:"voice"`
	Title          *string `json:"title"`
	Status         *string `json:"status"`
	CreationStatus *string `json:"creation_status"`
	Script         *string `json:"script"`
	AudioURL       *string `json:"audio_url"`
	VideoURL       *string `json:"video_url"`
	FinalURL       *string `json:"final_url"`
	CreatedAt      *string `json:"created_at"`
}

// ParseVideoUpdate decodes a streamed payload. The payload must be a JSON
// object carrying a non-empty id; status and created_at must parse when present.
func ParseVideoUpdate(data []byte) (VideoUpdate, error) {
	var u VideoUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		if !errors.Is(err, ErrInvalidUpdate) {
			err = fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
		}
		return VideoUpdate{}, err
	}
	return u, nil
}

func (u *VideoUpdate) UnmarshalJSON(data []byte) error {
	out, err := decodeVideoUpdate(data, false)
	if err != nil {
		return err
	}
	*u = out
	return nil
}

// decodeVideoUpdate reads one record. Lenient decoding keeps what it can of
// a record whose id, status or created_at is unusable.
func decodeVideoUpdate(data []byte, lenient bool) (VideoUpdate, error) {
	var w videoUpdateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return VideoUpdate{}, fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
	}

	var id string
	if w.ID != nil {
		id = strings.TrimSpace(*w.ID)
	}
	if id == "" && !lenient {
		return VideoUpdate{}, fmt.Errorf("%w: missing id", ErrInvalidUpdate)
	}

	out := VideoUpdate{
		ID:       id,
		UserID:   w.UserID,
		Topic:    w.Topic,
		Voice:    w.Voice,
		Title:    w.Title,
		Script:   w.Script,
		AudioURL: w.AudioURL,
		VideoURL: w.VideoURL,
		FinalURL: w.FinalURL,
	}

	raw := w.Status
	if raw == nil {
		raw = w.CreationStatus
	}
	if raw != nil {
		status, err := ParseVideoStatus(*raw)
		switch {
		case err == nil:
		case lenient:
			status = VideoStatusUnknown
			out.RawStatus = *raw
		default:
			return VideoUpdate{}, err
		}
		out.Status = &status
	}

	if w.CreatedAt != nil && *w.CreatedAt != "" {
		ts, err := parseTimestamp(*w.CreatedAt)
		switch {
		case err == nil:
			out.CreatedAt = &ts
		case !lenient:
			return VideoUpdate{}, fmt.Errorf("%w: created_at: %w", ErrInvalidUpdate, err)
		}
	}

	return out, nil
}

// Apply merges u into v field by field and reports whether v changed.
// Terminal statuses are absorbing and stages never move backwards except to
// failed. Creation metadata is only filled when empty, and artifact URLs are
// never cleared.
func (u VideoUpdate) Apply(v *Video) bool {
	changed := false

	if u.Status != nil && *u.Status != v.Status && statusAdvances(v.Status, *u.Status) {
		v.Status = *u.Status
		changed = true
	}

	changed = fillEmpty(&v.UserID, u.UserID) || changed
	changed = fillEmpty(&v.Topic, u.Topic) || changed
	changed = fillEmpty(&v.Voice, u.Voice) || changed
	changed = fillEmpty(&v.Title, u.Title) || changed

	if u.CreatedAt != nil && v.CreatedAt.IsZero() {
		v.CreatedAt = *u.CreatedAt
		changed = true
	}

	if u.Script != nil && *u.Script != v.Script {
		v.Script = *u.Script
		changed = true
	}

	changed = setArtifact(&v.AudioURL, u.AudioURL) || changed
	changed = setArtifact(&v.VideoURL, u.VideoURL) || changed
	changed = setArtifact(&v.FinalURL, u.FinalURL) || changed

	return changed
}

func statusAdvances(from, to VideoStatus) bool {
	if from == "" {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to == VideoStatusFailed {
		return true
	}
	return to.Stage() >= from.Stage()
}

func fillEmpty(dst *string, src *string) bool {
	if src == nil || *src == "" || *dst != "" {
		return false
	}
	*dst = *src
	return true
}

func setArtifact(dst *string, src *string) bool {
	if src == nil || *src == "" || *src == *dst {
		return false
	}
	*dst = *src
	return true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp accepts RFC 3339 and the zone-less ISO form emitted by the
// backend, which is UTC.
func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// AsUpdate returns an update carrying every non-empty field of v.
func (v Video) AsUpdate() VideoUpdate {
	u := VideoUpdate{ID: v.ID}
	if v.Status != "" {
		u.Status = &v.Status
	}
	if !v.CreatedAt.IsZero() {
		u.CreatedAt = &v.CreatedAt
	}
	for _, f := range []struct {
		src string
		dst **string
	}{
		{v.UserID, &u.UserID},
		{v.Topic, &u.Topic},
		{v.Voice, &u.Voice},
		{v.Title, &u.Title},
		{v.Script, &u.Script},
		{v.AudioURL, &u.AudioURL},
		{v.VideoURL, &u.VideoURL},
		{v.FinalURL, &u.FinalURL},
	} {
		if f.src != "" {
			s := f.src
			*f.dst = &s
		}
	}
	return u
}
