package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const videoPollInterval = 10 * time.Second

// VideoGenerator runs long-running video generation, polling the operation
// until completion. Once started, a generation runs to completion or failure;
// there is no cancellation path.
type VideoGenerator struct {
	client *genai.Client
	model  string

	sleep func(time.Duration)
}

// NewVideoGenerator returns a VideoGenerator.
func NewVideoGenerator(client *genai.Client, model string) *VideoGenerator {
	return &VideoGenerator{client: client, model: model, sleep: time.Sleep}
}

// Generate starts a video generation and polls every 10 seconds until the
// operation completes, returning the video bytes.
func (g *VideoGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("video generator not configured")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	op, err := g.client.Models.GenerateVideos(ctx, g.model, prompt, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("start video generation: %w", err)
	}

	for !op.Done {
		g.sleep(videoPollInterval)
		op, err = g.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, fmt.Errorf("poll video operation: %w", err)
		}
		slog.Debug("video operation polled", "done", op.Done)
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0] == nil {
		return nil, fmt.Errorf("video operation finished without a video")
	}
	video := op.Response.GeneratedVideos[0].Video
	if video == nil || len(video.VideoBytes) == 0 {
		return nil, fmt.Errorf("video operation finished with empty video data")
	}
	return video.VideoBytes, nil
}
