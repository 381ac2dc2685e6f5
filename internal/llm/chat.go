package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

// ChatModel wraps an LLM for conversational turns with optional streaming.
type ChatModel struct {
	llm model.LLM
}

// NewGeminiChatModel builds a chat model on the Gemini API.
func NewGeminiChatModel(ctx context.Context, modelName, apiKey string) (*ChatModel, error) {
	llm, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini chat model: %w", err)
	}
	return &ChatModel{llm: llm}, nil
}

// NewChatModel wraps an existing LLM (alternate backends, fakes in tests).
func NewChatModel(llm model.LLM) *ChatModel {
	return &ChatModel{llm: llm}
}

// Generate runs one non-streaming turn and returns the reply text.
func (m *ChatModel) Generate(ctx context.Context, system string, contents []*genai.Content) (string, error) {
	return m.run(ctx, system, contents, false, nil)
}

// Stream runs one turn, invoking onDelta for each text fragment as it
// arrives, and returns the full reply text.
func (m *ChatModel) Stream(ctx context.Context, system string, contents []*genai.Content, onDelta func(string)) (string, error) {
	return m.run(ctx, system, contents, true, onDelta)
}

func (m *ChatModel) run(ctx context.Context, system string, contents []*genai.Content, stream bool, onDelta func(string)) (string, error) {
	if m == nil || m.llm == nil {
		return "", fmt.Errorf("chat model not configured")
	}

	req := &model.LLMRequest{Contents: contents}
	if system != "" {
		req.Config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, "system"),
		}
	}

	var deltas strings.Builder
	var final string
	var runErr error
	seq := m.llm.GenerateContent(ctx, req, stream)
	seq(func(resp *model.LLMResponse, err error) bool {
		if err != nil {
			runErr = err
			return false
		}
		if resp == nil || resp.Content == nil {
			return true
		}
		text := ExtractText(resp.Content)
		if resp.Partial {
			deltas.WriteString(text)
			if onDelta != nil && text != "" {
				onDelta(text)
			}
			return true
		}
		final = text
		return true
	})
	if runErr != nil {
		return "", fmt.Errorf("chat generation failed: %w", runErr)
	}

	// Prefer the aggregated deltas; some adapters only emit a final chunk.
	if deltas.Len() > 0 {
		return deltas.String(), nil
	}
	return final, nil
}
