package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrNoImagePart means the backend returned neither image data nor a refusal.
var ErrNoImagePart = errors.New("no image part in response")

// RefusalError carries the text a backend returned instead of image data.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("image generation refused: %s", e.Reason)
}

// ImageResult is a generated image.
type ImageResult struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator dispatches between the text-to-image backend and the
// reference-conditioned editing backend.
type ImageGenerator struct {
	client      *genai.Client
	textModel   string
	editModel   string
	aspectRatio string
}

// NewImageGenerator returns an ImageGenerator.
func NewImageGenerator(client *genai.Client, textModel, editModel, aspectRatio string) *ImageGenerator {
	return &ImageGenerator{
		client:      client,
		textModel:   textModel,
		editModel:   editModel,
		aspectRatio: normalizeAspectRatio(aspectRatio),
	}
}

// GenerateStandalone uses the text-to-image-only backend.
func (g *ImageGenerator) GenerateStandalone(ctx context.Context, prompt, safetyLevel string) (*ImageResult, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("image generator not configured")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	config := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    g.aspectRatio,
	}
	if safetyLevel != "" {
		config.SafetyFilterLevel = genai.SafetyFilterLevel(safetyLevel)
	}
	resp, err := g.client.Models.GenerateImages(ctx, g.textModel, prompt, config)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0] == nil || resp.GeneratedImages[0].Image == nil {
		return nil, ErrNoImagePart
	}

	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &ImageResult{Data: img.ImageBytes, MIMEType: mimeType}, nil
}

// GenerateWithReference uses the editing backend, conditioning on a reference
// image to keep the character visually consistent.
func (g *ImageGenerator) GenerateWithReference(ctx context.Context, prompt string, refData []byte, refMIME string) (*ImageResult, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("image generator not configured")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}
	if len(refData) == 0 {
		return nil, fmt.Errorf("reference image is required")
	}
	if refMIME == "" {
		refMIME = "image/png"
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: refMIME, Data: refData}},
			{Text: prompt},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: g.aspectRatio},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.editModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate image with reference: %w", err)
	}

	content := firstCandidateContent(resp)
	if content == nil {
		return nil, ErrNoImagePart
	}
	for _, part := range content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := strings.TrimSpace(part.InlineData.MIMEType)
		if mimeType == "" {
			mimeType = "image/png"
		}
		return &ImageResult{Data: part.InlineData.Data, MIMEType: mimeType}, nil
	}

	// Text instead of image data is an explicit refusal; surface the reason.
	if text := strings.TrimSpace(ExtractText(content)); text != "" {
		return nil, &RefusalError{Reason: text}
	}
	return nil, ErrNoImagePart
}

func normalizeAspectRatio(value string) string {
	switch strings.TrimSpace(value) {
	case "1:1", "3:4", "4:3", "9:16", "16:9":
		return strings.TrimSpace(value)
	default:
		return "3:4"
	}
}
