package domain

import (
	"fmt"
	"strings"
)

// VideoStatus is the pipeline stage reported by the backend for a video.
type VideoStatus string

const (
	VideoStatusPending           VideoStatus = "pending"
	VideoStatusGeneratingScript  VideoStatus = "generating_script"
	VideoStatusGeneratingVoice   VideoStatus = "generating_voice"
	VideoStatusGeneratingPrompts VideoStatus = "generating_prompts"
	VideoStatusGeneratingImages  VideoStatus = "generating_images"
	VideoStatusCompiling         VideoStatus = "compiling"
	VideoStatusCompleted         VideoStatus = "completed"
	VideoStatusFailed            VideoStatus = "failed"

	// VideoStatusUnknown stands in for a status this dashboard does not
	// recognize. It is not terminal, so the video stays supervised.
	VideoStatusUnknown VideoStatus = "unknown"
)

// pipeline lists the non-failed statuses in the order the backend advances through them.
var pipeline = []VideoStatus{
	VideoStatusPending,
	VideoStatusGeneratingScript,
	VideoStatusGeneratingVoice,
	VideoStatusGeneratingPrompts,
	VideoStatusGeneratingImages,
	VideoStatusCompiling,
	VideoStatusCompleted,
}

// statusAliases maps the values of the coarse backend revision to the fine
// set. That revision reports display labels ("Script Completed") and
// "<stage>_complete" values between stages; each completed stage maps to the
// stage that follows it. Keys are lower case.
var statusAliases = map[string]VideoStatus{
	"writing script":       VideoStatusGeneratingScript,
	"script completed":     VideoStatusGeneratingVoice,
	"script_complete":      VideoStatusGeneratingVoice,
	"generating audio":     VideoStatusGeneratingVoice,
	"narration completed":  VideoStatusGeneratingPrompts,
	"voice_complete":       VideoStatusGeneratingPrompts,
	"brainstorming images": VideoStatusGeneratingPrompts,
	"finalizing content":   VideoStatusGeneratingImages,
	"prompts_complete":     VideoStatusGeneratingImages,
	"crafting images":      VideoStatusGeneratingImages,
	"images finished":      VideoStatusCompiling,
	"images_complete":      VideoStatusCompiling,
	"video rendering":      VideoStatusCompiling,
}

var statusLabels = map[VideoStatus]string{
	VideoStatusPending:           "Pending",
	VideoStatusGeneratingScript:  "Writing Script",
	VideoStatusGeneratingVoice:   "Generating Audio",
	VideoStatusGeneratingPrompts: "Brainstorming Images",
	VideoStatusGeneratingImages:  "Crafting Images",
	VideoStatusCompiling:         "Video Rendering",
	VideoStatusCompleted:         "Completed",
	VideoStatusFailed:            "Failed",
	VideoStatusUnknown:           "Unknown",
}

// ParseVideoStatus normalizes a status string coming from the backend.
func ParseVideoStatus(s string) (VideoStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if mapped, ok := statusAliases[v]; ok {
		return mapped, nil
	}
	status := VideoStatus(v)
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidUpdate, s)
	}
	return status, nil
}

// Valid reports whether s is a status the backend can send.
func (s VideoStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok && s != VideoStatusUnknown
}

// IsTerminal reports whether no further updates are expected for the video.
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

// Stage returns the position of s in the pipeline, or -1 for failed and unknown values.
func (s VideoStatus) Stage() int {
	for i, p := range pipeline {
		if p == s {
			return i
		}
	}
	return -1
}

// Progress returns the completed fraction of the pipeline in [0, 1].
func (s VideoStatus) Progress() float64 {
	stage := s.Stage()
	if stage < 0 {
		return 0
	}
	return float64(stage) / float64(len(pipeline)-1)
}

func (s VideoStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s VideoStatus) String() string {
	return string(s)
}
