package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/bnema/shortsdash/internal/domain"
)

// Create submits one video and prints the backend's record.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	req, err := domain.NewVideoRequest(cmd.String("topic"), cmd.String("voice"))
	if err != nil {
		return err
	}

	backend := r.client().ForSession(cmd.String("session"))
	video, err := backend.CreateVideo(ctx, req.Topic, req.Voice)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(video)
	}
	_, err = fmt.Fprintf(r.out, "%s\t%s\t%s\n", video.ID, video.Status.Label(), video.DisplayTitle())
	return err
}
