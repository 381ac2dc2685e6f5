package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Completer issues plain text completions for micro-planning calls
// (location inference, outfit planning, timezone lookup, translation).
type Completer struct {
	client *genai.Client
	model  string
}

// NewCompleter returns a Completer bound to a lightweight model.
func NewCompleter(client *genai.Client, model string) *Completer {
	return &Completer{client: client, model: model}
}

// Complete returns the trimmed text response for a single prompt.
func (c *Completer) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("completer not configured")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	var config *genai.GenerateContentConfig
	if system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, "system"),
		}
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	text := strings.TrimSpace(ExtractText(firstCandidateContent(resp)))
	if text == "" {
		return "", fmt.Errorf("empty completion response")
	}
	return text, nil
}
