package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"
)

// Structured issues schema-constrained JSON generation calls.
type Structured struct {
	client *genai.Client
	model  string
}

// NewStructured returns a Structured generator.
func NewStructured(client *genai.Client, model string) *Structured {
	return &Structured{client: client, model: model}
}

// GenerateJSON asks for a response matching schema and decodes it into out.
func (s *Structured) GenerateJSON(ctx context.Context, system, prompt string, schema *jsonschema.Schema, out any) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("structured generator not configured")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: schema,
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, "system")
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), config)
	if err != nil {
		return fmt.Errorf("structured generation failed: %w", err)
	}

	raw := ExtractText(firstCandidateContent(resp))
	if err := DecodeJSONBlock(raw, out); err != nil {
		return fmt.Errorf("failed to parse structured output: %w", err)
	}
	return nil
}

// DecodeJSONBlock unmarshals raw into out, tolerating prose around the
// outermost JSON object.
func DecodeJSONBlock(raw string, out any) error {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	return json.Unmarshal([]byte(clean), out)
}
