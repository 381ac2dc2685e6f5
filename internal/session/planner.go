package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/campfireai/companion/internal/types"
)

// Completer is the plain text completion boundary.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// LLMPlanner implements Planner with micro text completions.
type LLMPlanner struct {
	completer Completer
}

// NewLLMPlanner returns an LLMPlanner.
func NewLLMPlanner(completer Completer) *LLMPlanner {
	return &LLMPlanner{completer: completer}
}

// InferLocation names the current scene location in a few words.
func (p *LLMPlanner) InferLocation(ctx context.Context, scene, recentContext string) (string, error) {
	prompt := fmt.Sprintf(
		"Scene description: %s\n\nRecent conversation:\n%s\n\nWhere is the character right now? Answer with a short location phrase only (e.g. \"her bedroom\", \"a downtown cafe\").",
		scene, recentContext)
	answer, err := p.completer.Complete(ctx, "", prompt)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(answer), `"`), nil
}

// PlanOutfit describes what the character wears now. When previousOutfit is
// set, the new outfit is framed as a modification of it rather than a
// wholesale replacement.
func (p *LLMPlanner) PlanOutfit(ctx context.Context, c *types.Character, previousOutfit, location, timeOfDay string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Describe in one sentence the outfit %s wears right now.\n", c.Profile.BasicInfo.Name)
	fmt.Fprintf(&sb, "Location: %s. Time of day: %s.\n", location, timeOfDay)
	if styles := c.Profile.PhysicalStyle.ClothingStyleOptions; len(styles) > 0 {
		fmt.Fprintf(&sb, "Preferred clothing styles: %s.\n", strings.Join(styles, ", "))
	}
	if previousOutfit != "" {
		fmt.Fprintf(&sb, "They were wearing: %s. Keep it recognizably the same outfit, adjusted for the new place and time, unless a full change is clearly needed.\n", previousOutfit)
	}
	sb.WriteString("Answer with the outfit description only.")

	answer, err := p.completer.Complete(ctx, "", sb.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
