package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrNoAudio means the speech stream finished without yielding any chunks.
var ErrNoAudio = errors.New("speech stream yielded no audio")

// SpeechStream is the collected output of a text-to-speech call.
type SpeechStream struct {
	Chunks   [][]byte
	MIMEType string
}

// SpeechSynthesizer streams text-to-speech audio.
type SpeechSynthesizer struct {
	client *genai.Client
	model  string
}

// NewSpeechSynthesizer returns a SpeechSynthesizer.
func NewSpeechSynthesizer(client *genai.Client, model string) *SpeechSynthesizer {
	return &SpeechSynthesizer{client: client, model: model}
}

// Synthesize streams audio for the line using the named prebuilt voice and
// collects all chunks. The reported MIME type describes the chunk encoding
// (self-contained container or raw PCM with parameters).
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, line, voice string) (*SpeechStream, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("speech synthesizer not configured")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("line cannot be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	stream := &SpeechStream{}
	for resp, err := range s.client.Models.GenerateContentStream(ctx, s.model, genai.Text(line), config) {
		if err != nil {
			return nil, fmt.Errorf("speech stream failed: %w", err)
		}
		content := firstCandidateContent(resp)
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			stream.Chunks = append(stream.Chunks, part.InlineData.Data)
			if stream.MIMEType == "" {
				stream.MIMEType = part.InlineData.MIMEType
			}
		}
	}

	if len(stream.Chunks) == 0 {
		return nil, ErrNoAudio
	}
	return stream, nil
}
