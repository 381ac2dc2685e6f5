package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// openaiModel adapts an OpenAI-compatible chat endpoint to model.LLM. Only
// text turns are supported; this app registers no tools.
type openaiModel struct {
	client *openai.Client
	name   string
}

// NewOpenAIModel creates an OpenAI-compatible chat model. baseURL may be
// empty for the default endpoint.
func NewOpenAIModel(modelName, apiKey, baseURL string) (model.LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &openaiModel{client: &client, name: modelName}, nil
}

func (m *openaiModel) Name() string { return m.name }

func (m *openaiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	params := m.buildParams(req)
	if stream {
		return m.generateStream(ctx, params)
	}
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.client.Chat.Completions.New(ctx, params)
		if err != nil {
			slog.Error("openai chat call failed", "error", err)
			yield(nil, fmt.Errorf("failed to call chat API: %w", err))
			return
		}
		if resp == nil || len(resp.Choices) == 0 {
			yield(&model.LLMResponse{}, nil)
			return
		}
		yield(&model.LLMResponse{
			Content:      genai.NewContentFromText(resp.Choices[0].Message.Content, "model"),
			TurnComplete: true,
		}, nil)
	}
}

func (m *openaiModel) generateStream(ctx context.Context, params openai.ChatCompletionNewParams) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		stream := m.client.Chat.Completions.NewStreaming(ctx, params)
		defer func() {
			if err := stream.Close(); err != nil {
				slog.Error("failed to close stream", "error", err)
			}
		}()

		var full strings.Builder
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				full.WriteString(choice.Delta.Content)
				resp := &model.LLMResponse{
					Content: genai.NewContentFromText(choice.Delta.Content, "model"),
					Partial: true,
				}
				if !yield(resp, nil) {
					return
				}
			}
			if choice.FinishReason != "" {
				final := &model.LLMResponse{
					Content:      genai.NewContentFromText(full.String(), "model"),
					TurnComplete: true,
				}
				if !yield(final, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			slog.Error("openai stream failed", "error", err)
			yield(nil, fmt.Errorf("stream error: %w", err))
		}
	}
}

func (m *openaiModel) buildParams(req *model.LLMRequest) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion

	if req.Config != nil && req.Config.SystemInstruction != nil {
		if system := ExtractText(req.Config.SystemInstruction); system != "" {
			messages = append(messages, openai.SystemMessage(system))
		}
	}
	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		text := ExtractText(content)
		if text == "" {
			continue
		}
		if content.Role == "model" {
			messages = append(messages, openai.AssistantMessage(text))
		} else {
			messages = append(messages, openai.UserMessage(text))
		}
	}
	if len(messages) == 0 {
		messages = append(messages, openai.UserMessage("Continue as instructed."))
	}

	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(m.name),
		Messages: messages,
	}
}
