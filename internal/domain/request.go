package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTopicLength = 200
	MaxVoiceLength = 64
)

// VideoRequest is the body of a video creation call.
type VideoRequest struct {
	Topic string `json:"topic"`
	Voice string `json:"voice"`
}

// NewVideoRequest trims and validates the creation inputs.
func NewVideoRequest(topic, voice string) (VideoRequest, error) {
	req := VideoRequest{
		Topic: strings.TrimSpace(topic),
		Voice: strings.TrimSpace(voice),
	}
	if req.Topic == "" {
		return req, fmt.Errorf("%w: topic is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Topic) > MaxTopicLength {
		return req, fmt.Errorf("%w: topic must be at most %d characters", ErrInvalidInput, MaxTopicLength)
	}
	if req.Voice == "" {
		return req, fmt.Errorf("%w: voice is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Voice) > MaxVoiceLength {
		return req, fmt.Errorf("%w: voice must be at most %d characters", ErrInvalidInput, MaxVoiceLength)
	}
	return req, nil
}
