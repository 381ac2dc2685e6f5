package intimacy

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/campfireai/companion/internal/types"
)

// Judgment is the structured output of the intimacy classifier.
type Judgment struct {
	Delta  float64 `json:"delta"`
	Reason string  `json:"reason"`
}

// Notice is raised when the level moves noticeably and the user enabled
// change notifications. Clients dismiss it on their own after DismissAfter.
type Notice struct {
	CharacterID  string  `json:"characterId"`
	Delta        float64 `json:"delta"`
	DisplayLevel float64 `json:"displayLevel"`
	Reason       string  `json:"reason"`
}

// StructuredGenerator is the schema-constrained provider call.
type StructuredGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string, schema *jsonschema.Schema, out any) error
}

// Persister writes the app document after a level change.
type Persister interface {
	Save(ctx context.Context) error
}

// Engine judges each exchange and applies the resulting delta.
type Engine struct {
	generator StructuredGenerator
	persister Persister
	notify    func(Notice)
}

// NewEngine returns an Engine. notify may be nil.
func NewEngine(generator StructuredGenerator, persister Persister, notify func(Notice)) *Engine {
	return &Engine{generator: generator, persister: persister, notify: notify}
}

var judgmentSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"delta":  {Type: "number", Description: "intimacy change in [-10, 10]"},
		"reason": {Type: "string", Description: "one sentence explaining the change"},
	},
	Required: []string{"delta", "reason"},
}

const judgmentSystem = `You judge how one exchange changed a fictional character's intimacy toward the user.
Magnitude guidance: ±0.1-0.5 for minor beats, ±0.5-2.0 for meaningful moments, up to ±10 only for major turning points.
Weigh the character's aura rule heavily. Return JSON matching the schema.`

// Update classifies the last exchange and applies the delta. Provider
// failures leave the level unchanged and are only logged; there is no retry.
func (e *Engine) Update(ctx context.Context, profile *types.UserProfile, c *types.Character, userMessage, aiReply string) {
	if e == nil || e.generator == nil || c == nil {
		return
	}

	prompt := fmt.Sprintf(
		"Character traits: %s\nAura: %s (%s)\nCurrent intimacy level: %.1f\n\nUser said: %s\nCharacter replied: %s",
		c.Profile.Personality.Traits,
		c.Profile.Personality.Aura,
		AuraGuidance(c.Profile.Personality.Aura),
		c.IntimacyLevel,
		userMessage,
		aiReply,
	)

	var judgment Judgment
	if err := e.generator.GenerateJSON(ctx, judgmentSystem, prompt, judgmentSchema, &judgment); err != nil {
		slog.Error("intimacy judgment failed, level unchanged", "character", c.ID, "error", err)
		return
	}

	delta := Round1(judgment.Delta)
	if delta > 10 {
		delta = 10
	} else if delta < -10 {
		delta = -10
	}

	c.IntimacyLevel = Round1(c.IntimacyLevel + delta)

	if e.persister != nil {
		if err := e.persister.Save(ctx); err != nil {
			slog.Error("failed to persist intimacy level", "character", c.ID, "error", err)
		}
	}

	if math.Abs(delta) >= 0.1 && e.notify != nil && profile != nil && profile.ShowIntimacyNotices {
		e.notify(Notice{
			CharacterID:  c.ID,
			Delta:        delta,
			DisplayLevel: ClampDisplay(c.IntimacyLevel),
			Reason:       judgment.Reason,
		})
	}
}
