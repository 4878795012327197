package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseVideoStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    VideoStatus
		wantErr bool
	}{
		{name: "canonical", input: "generating_voice", want: VideoStatusGeneratingVoice},
		{name: "upper case", input: "COMPLETED", want: VideoStatusCompleted},
		{name: "surrounding space", input: " failed ", want: VideoStatusFailed},
		{name: "legacy script complete", input: "script_complete", want: VideoStatusGeneratingVoice},
		{name: "legacy images complete", input: "images_complete", want: VideoStatusCompiling},
		{name: "coarse label", input: "Script Completed", want: VideoStatusGeneratingVoice},
		{name: "coarse label in progress", input: "Writing Script", want: VideoStatusGeneratingScript},
		{name: "coarse rendering label", input: "Video Rendering", want: VideoStatusCompiling},
		{name: "placeholder is not a backend value", input: "unknown", wantErr: true},
		{name: "unknown", input: "rendering", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVideoStatus(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUpdate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVideoStatus_IsTerminal(t *testing.T) {
	for _, s := range pipeline {
		assert.Equal(t, s == VideoStatusCompleted, s.IsTerminal(), "status %s", s)
	}
	assert.True(t, VideoStatusFailed.IsTerminal())
}

func TestVideoStatus_Progress(t *testing.T) {
	assert.Equal(t, 0.0, VideoStatusPending.Progress())
	assert.Equal(t, 1.0, VideoStatusCompleted.Progress())
	assert.Equal(t, 0.0, VideoStatusFailed.Progress())
	assert.InDelta(t, 0.5, VideoStatusGeneratingPrompts.Progress(), 0.001)
	assert.Equal(t, "Writing Script", VideoStatusGeneratingScript.Label())
}

func TestParseVideoUpdate(t *testing.T) {
	t.Run("partial payload", func(t *testing.T) {
		u, err := ParseVideoUpdate([]byte(`{"id":"v1","status":"compiling"}`))
		require.NoError(t, err)
		assert.Equal(t, "v1", u.ID)
		require.NotNil(t, u.Status)
		assert.Equal(t, VideoStatusCompiling, *u.Status)
		assert.Nil(t, u.Topic)
		assert.Nil(t, u.FinalURL)
	})

	t.Run("creation_status key", func(t *testing.T) {
		u, err := ParseVideoUpdate([]byte(`{"id":"v1","creation_status":"voice_complete"}`))
		require.NoError(t, err)
		assert.Equal(t, VideoStatusGeneratingPrompts, *u.Status)
	})

	t.Run("zone-less timestamp", func(t *testing.T) {
		u, err := ParseVideoUpdate([]byte(`{"id":"v1","created_at":"2024-05-01T10:20:30.123456"}`))
		require.NoError(t, err)
		require.NotNil(t, u.CreatedAt)
		assert.Equal(t, time.Date(2024, 5, 1, 10, 20, 30, 123456000, time.UTC), *u.CreatedAt)
	})

	malformed := map[string]string{
		"not json":       `{"id":`,
		"array":          `[1,2]`,
		"missing id":     `{"status":"pending"}`,
		"blank id":       `{"id":"  "}`,
		"unknown status": `{"id":"v1","status":"teleporting"}`,
		"bad timestamp":  `{"id":"v1","created_at":"yesterday"}`,
	}
	for name, payload := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := ParseVideoUpdate([]byte(payload))
			assert.True(t, errors.Is(err, ErrInvalidUpdate), "got %v", err)
		})
	}
}

func TestVideoUpdate_Apply_StatusOnly(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	v := Video{
		ID:        "x",
		Topic:     "cats",
		Voice:     "voiceA",
		Status:    VideoStatusGeneratingScript,
		AudioURL:  "http://x/a.mp3",
		CreatedAt: created,
	}
	before := v

	changed := VideoUpdate{ID: "x", Status: ptr(VideoStatusGeneratingVoice)}.Apply(&v)

	assert.True(t, changed)
	assert.Equal(t, VideoStatusGeneratingVoice, v.Status)
	before.Status = VideoStatusGeneratingVoice
	assert.Equal(t, before, v)
}

func TestVideoUpdate_Apply_Rules(t *testing.T) {
	t.Run("terminal status is absorbing", func(t *testing.T) {
		v := Video{ID: "x", Status: VideoStatusCompleted}
		changed := VideoUpdate{ID: "x", Status: ptr(VideoStatusFailed)}.Apply(&v)
		assert.False(t, changed)
		assert.Equal(t, VideoStatusCompleted, v.Status)
	})

	t.Run("stage does not regress", func(t *testing.T) {
		v := Video{ID: "x", Status: VideoStatusCompiling}
		VideoUpdate{ID: "x", Status: ptr(VideoStatusGeneratingScript)}.Apply(&v)
		assert.Equal(t, VideoStatusCompiling, v.Status)
	})

	t.Run("failed reachable from any stage", func(t *testing.T) {
		v := Video{ID: "x", Status: VideoStatusPending}
		assert.True(t, VideoUpdate{ID: "x", Status: ptr(VideoStatusFailed)}.Apply(&v))
		assert.Equal(t, VideoStatusFailed, v.Status)
	})

	t.Run("creation metadata is immutable", func(t *testing.T) {
		v := Video{ID: "x", Topic: "cats", Voice: "voiceA"}
		changed := VideoUpdate{ID: "x", Topic: ptr("dogs"), Voice: ptr("voiceB")}.Apply(&v)
		assert.False(t, changed)
		assert.Equal(t, "cats", v.Topic)
		assert.Equal(t, "voiceA", v.Voice)
	})

	t.Run("artifact urls are never cleared", func(t *testing.T) {
		v := Video{ID: "x", FinalURL: "http://x/v.mp4"}
		changed := VideoUpdate{ID: "x", FinalURL: ptr("")}.Apply(&v)
		assert.False(t, changed)
		assert.Equal(t, "http://x/v.mp4", v.FinalURL)
	})

	t.Run("artifact url set once ready", func(t *testing.T) {
		v := Video{ID: "x"}
		assert.True(t, VideoUpdate{ID: "x", AudioURL: ptr("http://x/a.mp3")}.Apply(&v))
		assert.Equal(t, "http://x/a.mp3", v.AudioURL)
	})

	t.Run("identical update reports no change", func(t *testing.T) {
		v := Video{ID: "x", Status: VideoStatusCompiling}
		assert.False(t, VideoUpdate{ID: "x", Status: ptr(VideoStatusCompiling)}.Apply(&v))
	})
}

func TestVideo_UnmarshalJSON(t *testing.T) {
	var videos []Video
	err := json.Unmarshal([]byte(`[
		{"id":"a","topic":"cats","voice":"voiceA","title":"Cats!","creation_status":"completed","final_url":"http://x/a.mp4","created_at":"2024-01-01T00:00:00Z"},
		{"id":"b","topic":"dogs","voice":"voiceB","created_at":"2024-01-02T00:00:00"}
	]`), &videos)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, VideoStatusCompleted, videos[0].Status)
	assert.Equal(t, "Cats!", videos[0].DisplayTitle())
	assert.Equal(t, "http://x/a.mp4", videos[0].ArtifactURL())

	assert.Equal(t, VideoStatusPending, videos[1].Status, "missing status defaults to pending")
	assert.Equal(t, "dogs", videos[1].DisplayTitle())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), videos[1].CreatedAt)
}

func TestVideo_UnmarshalJSON_KeepsOddRecords(t *testing.T) {
	var videos []Video
	err := json.Unmarshal([]byte(`[
		{"id":"a","creation_status":"Narration Completed","created_at":"2024-01-01T00:00:00Z"},
		{"id":"b","status":"teleporting","created_at":"2024-01-02T00:00:00Z"},
		{"id":"c","status":"completed","created_at":"last tuesday"},
		{"topic":"no id"}
	]`), &videos)
	require.NoError(t, err)
	require.Len(t, videos, 4)

	assert.Equal(t, VideoStatusGeneratingPrompts, videos[0].Status)
	assert.Empty(t, videos[0].RawStatus)

	assert.Equal(t, VideoStatusUnknown, videos[1].Status)
	assert.Equal(t, "teleporting", videos[1].RawStatus)
	assert.False(t, videos[1].Status.IsTerminal())
	assert.Equal(t, "Unknown", videos[1].Status.Label())

	assert.Equal(t, VideoStatusCompleted, videos[2].Status)
	assert.True(t, videos[2].CreatedAt.IsZero())

	assert.Empty(t, videos[3].ID)
}

func TestVideoUpdate_Apply_FromUnknownStatus(t *testing.T) {
	v := Video{ID: "x", Status: VideoStatusUnknown}
	assert.True(t, VideoUpdate{ID: "x", Status: ptr(VideoStatusGeneratingScript)}.Apply(&v))
	assert.Equal(t, VideoStatusGeneratingScript, v.Status)

	assert.False(t, VideoUpdate{ID: "x", Status: ptr(VideoStatusUnknown)}.Apply(&v))
}
