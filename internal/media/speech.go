package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/campfireai/companion/internal/types"
	"github.com/campfireai/companion/internal/wav"
)

const lineWriterSystem = "You write a single short spoken line for a voice message. Output only the line itself, 5 to 12 words, no quotes, no narration."

// SpeechResult is a finished voice clip.
type SpeechResult struct {
	Line     string
	Audio    []byte
	Duration float64
}

// GenerateSpeech produces a voice clip in two stages: a short spoken line
// written in the character's voice, then text-to-speech over that line. Raw
// PCM output is wrapped into a WAV container; self-contained containers pass
// through unchanged.
func (d *Dispatcher) GenerateSpeech(ctx context.Context, c *types.Character, instruction string) (*SpeechResult, error) {
	linePrompt := fmt.Sprintf("Character: %s. Personality: %s. The voice message should convey: %s",
		c.Profile.BasicInfo.Name, c.Profile.Personality.Traits, instruction)
	line, err := d.completer.Complete(ctx, lineWriterSystem, linePrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to write spoken line: %w", err)
	}
	line = strings.Trim(strings.TrimSpace(line), `"`)

	stream, err := d.speech.Synthesize(ctx, line, voiceFor(c.Profile.BasicInfo.Gender))
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	var pcm []byte
	for _, chunk := range stream.Chunks {
		pcm = append(pcm, chunk...)
	}

	result := &SpeechResult{Line: line}
	if wav.IsSelfContained(stream.MIMEType) {
		// Container formats play as-is; the client derives duration on load.
		result.Audio = pcm
		return result, nil
	}

	params := wav.ParseMIME(stream.MIMEType)
	result.Audio = wav.Wrap(params, pcm)
	result.Duration = wav.Duration(params, len(pcm))
	return result, nil
}

// voiceFor picks a prebuilt voice matching the character's gender.
func voiceFor(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "male", "man", "m":
		return "Puck"
	default:
		return "Kore"
	}
}
