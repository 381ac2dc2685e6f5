// Package media turns parsed reply directives into gallery artifacts:
// images, voice clips, and video.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/campfireai/companion/internal/llm"
	"github.com/campfireai/companion/internal/prompt"
	"github.com/campfireai/companion/internal/session"
	"github.com/campfireai/companion/internal/types"
)

// ErrVideoDisabled is returned when a video directive arrives while video
// generation is switched off.
var ErrVideoDisabled = errors.New("video generation is disabled")

// ImageBackend generates character images.
type ImageBackend interface {
	GenerateStandalone(ctx context.Context, prompt, safetyLevel string) (*llm.ImageResult, error)
	GenerateWithReference(ctx context.Context, prompt string, refData []byte, refMIME string) (*llm.ImageResult, error)
}

// SpeechBackend streams text-to-speech audio.
type SpeechBackend interface {
	Synthesize(ctx context.Context, line, voice string) (*llm.SpeechStream, error)
}

// VideoBackend runs long-running video generation.
type VideoBackend interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Completer issues the short planning completions (the spoken line for a
// voice clip).
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ContextResolver supplies the continuity decision for an image request.
type ContextResolver interface {
	Resolve(ctx context.Context, c *types.Character, scene, recentContext string, now time.Time) (*session.Resolved, error)
}

// Persister writes the app document after the gallery mutates.
type Persister interface {
	Save(ctx context.Context) error
}

// Dispatcher owns media generation and the character gallery.
type Dispatcher struct {
	images    ImageBackend
	speech    SpeechBackend
	video     VideoBackend
	completer Completer
	resolver  ContextResolver
	builder   *prompt.Builder
	persister Persister
	jobs      *jobRegistry

	videoEnabled bool
	safetyLevel  string
}

// NewDispatcher returns a Dispatcher.
func NewDispatcher(images ImageBackend, speech SpeechBackend, video VideoBackend, completer Completer, resolver ContextResolver, builder *prompt.Builder, persister Persister, videoEnabled bool, safetyLevel string) *Dispatcher {
	return &Dispatcher{
		images:       images,
		speech:       speech,
		video:        video,
		completer:    completer,
		resolver:     resolver,
		builder:      builder,
		persister:    persister,
		jobs:         newJobRegistry(),
		videoEnabled: videoEnabled,
		safetyLevel:  safetyLevel,
	}
}

// ImageOutcome reports one image generation. On failure the gallery holds a
// placeholder under MediaID and a retry job under JobID; Refused marks an
// explicit backend refusal, for which the caller should offer the standalone
// fallback instead of retrying blindly.
type ImageOutcome struct {
	Media   *types.Media
	JobID   string
	Refused bool
	Reason  string
}

// GenerateImage resolves continuity, builds the prompt, and runs the
// reference-conditioned backend. In-conversation images are always
// reference-conditioned; the standalone backend is only reachable through an
// explicit fallback retry.
func (d *Dispatcher) GenerateImage(ctx context.Context, c *types.Character, perspective types.Perspective, scene, recentContext string, now time.Time) (*ImageOutcome, error) {
	resolved, err := d.resolver.Resolve(ctx, c, scene, recentContext, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session context: %w", err)
	}

	timeOfDay := ""
	if c.SessionContext != nil {
		timeOfDay = c.SessionContext.TimeOfDay
	}
	imagePrompt := d.builder.BuildImagePrompt(c, prompt.ImageRequest{
		Scene:       scene,
		Hairstyle:   resolved.Hairstyle,
		Outfit:      resolved.Outfit,
		Location:    resolved.Location,
		Perspective: perspective,
		TimeOfDay:   timeOfDay,
	})

	result, genErr := d.images.GenerateWithReference(ctx, imagePrompt, resolved.Reference.Data, resolved.Reference.MIMEType)
	if genErr != nil {
		return d.recordImageFailure(ctx, c, imagePrompt, resolved.Reference, genErr)
	}

	media, err := d.addImage(ctx, c, result, imagePrompt)
	if err != nil {
		return nil, err
	}
	return &ImageOutcome{Media: media}, nil
}

// recordImageFailure reserves a gallery placeholder and a retry job so the
// failed generation stays visible and retryable.
func (d *Dispatcher) recordImageFailure(ctx context.Context, c *types.Character, imagePrompt string, ref types.ReferenceImage, genErr error) (*ImageOutcome, error) {
	placeholder := types.Media{
		ID:     c.NextMediaID(),
		Type:   types.MediaImage,
		Prompt: imagePrompt,
	}
	c.Media = append(c.Media, placeholder)
	if err := d.save(ctx); err != nil {
		return nil, err
	}

	job := d.jobs.add(Job{
		CharacterID: c.ID,
		MediaID:     placeholder.ID,
		Prompt:      imagePrompt,
		Reference:   ref,
	})

	outcome := &ImageOutcome{Media: c.MediaByID(placeholder.ID), JobID: job.ID}
	var refusal *llm.RefusalError
	if errors.As(genErr, &refusal) {
		outcome.Refused = true
		outcome.Reason = refusal.Reason
		slog.Info("image generation refused", "character", c.ID, "job", job.ID, "reason", refusal.Reason)
	} else {
		outcome.Reason = genErr.Error()
		slog.Warn("image generation failed", "character", c.ID, "job", job.ID, "error", genErr)
	}
	return outcome, nil
}

// RetryImage re-runs a failed generation from its snapshot. standalone routes
// to the text-to-image backend, dropping the reference; this is the fallback
// path offered after a refusal.
func (d *Dispatcher) RetryImage(ctx context.Context, c *types.Character, jobID string, standalone bool) (*types.Media, error) {
	job, ok := d.jobs.get(jobID)
	if !ok {
		return nil, fmt.Errorf("unknown retry job %q", jobID)
	}
	if job.CharacterID != c.ID {
		return nil, fmt.Errorf("retry job %q belongs to another character", jobID)
	}

	var result *llm.ImageResult
	var err error
	if standalone {
		result, err = d.images.GenerateStandalone(ctx, job.Prompt, d.safetyLevel)
	} else {
		result, err = d.images.GenerateWithReference(ctx, job.Prompt, job.Reference.Data, job.Reference.MIMEType)
	}
	if err != nil {
		return nil, fmt.Errorf("retry failed: %w", err)
	}

	entry := c.MediaByID(job.MediaID)
	if entry == nil {
		return nil, fmt.Errorf("gallery entry %d no longer exists", job.MediaID)
	}
	entry.Data = result.Data
	entry.MIMEType = result.MIMEType
	d.anchorReference(c, entry)
	if err := d.save(ctx); err != nil {
		return nil, err
	}
	d.jobs.remove(jobID)
	return entry, nil
}

// addImage appends a successful generation to the gallery and anchors it as
// the next reference image.
func (d *Dispatcher) addImage(ctx context.Context, c *types.Character, result *llm.ImageResult, imagePrompt string) (*types.Media, error) {
	media := types.Media{
		ID:       c.NextMediaID(),
		Type:     types.MediaImage,
		Data:     result.Data,
		MIMEType: result.MIMEType,
		Prompt:   imagePrompt,
	}
	c.Media = append(c.Media, media)
	entry := c.MediaByID(media.ID)
	d.anchorReference(c, entry)
	if err := d.save(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// anchorReference marks a gallery image as the reference for the next
// generation in this session.
func (d *Dispatcher) anchorReference(c *types.Character, entry *types.Media) {
	if entry == nil || len(entry.Data) == 0 || entry.Type != types.MediaImage {
		return
	}
	if c.SessionContext == nil {
		c.SessionContext = &types.SessionContext{}
	}
	c.SessionContext.LastReferenceImage = &types.ReferenceImage{
		ID:       strconv.FormatInt(entry.ID, 10),
		MIMEType: entry.MIMEType,
		Data:     entry.Data,
	}
}

// GenerateVideo runs the long-polling video backend and stores the clip in
// the gallery. Directives arriving while video is disabled are rejected.
func (d *Dispatcher) GenerateVideo(ctx context.Context, c *types.Character, description string) (*types.Media, error) {
	if !d.videoEnabled || d.video == nil {
		return nil, ErrVideoDisabled
	}

	videoPrompt := fmt.Sprintf("%s. Featuring %s", description, c.Profile.BasicInfo.Name)
	if appearance := c.Profile.PhysicalStyle.Appearance; appearance != "" {
		videoPrompt += fmt.Sprintf(" (%s)", appearance)
	}
	videoPrompt += "."

	data, err := d.video.Generate(ctx, videoPrompt)
	if err != nil {
		return nil, fmt.Errorf("video generation failed: %w", err)
	}

	media := types.Media{
		ID:       c.NextMediaID(),
		Type:     types.MediaVideo,
		Data:     data,
		MIMEType: "video/mp4",
		Prompt:   videoPrompt,
	}
	c.Media = append(c.Media, media)
	if err := d.save(ctx); err != nil {
		return nil, err
	}
	return c.MediaByID(media.ID), nil
}

// DeleteMedia removes a gallery entry and any retry job pointing at it.
func (d *Dispatcher) DeleteMedia(ctx context.Context, c *types.Character, id int64) error {
	kept := c.Media[:0]
	found := false
	for _, m := range c.Media {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return fmt.Errorf("no gallery entry %d", id)
	}
	c.Media = kept
	d.jobs.removeByMedia(c.ID, id)
	return d.save(ctx)
}

func (d *Dispatcher) save(ctx context.Context) error {
	if d.persister == nil {
		return nil
	}
	if err := d.persister.Save(ctx); err != nil {
		return fmt.Errorf("failed to persist gallery: %w", err)
	}
	return nil
}
