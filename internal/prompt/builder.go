// Package prompt assembles the system instruction, per-turn context, and
// media prompts sent to the provider.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/campfireai/companion/internal/clock"
	"github.com/campfireai/companion/internal/intimacy"
	"github.com/campfireai/companion/internal/power"
	"github.com/campfireai/companion/internal/types"
)

// HistoryWindowSize is the default bound on the history seeded into a new
// provider chat session. Image messages are excluded from the window.
const HistoryWindowSize = 20

// ladderTier is one rung of the behavioral ladder embedded in the system
// instruction so the model self-adjusts tone per tier.
type ladderTier struct {
	Name     string
	Min      int
	Max      int
	Behavior string
}

var tierBehaviors = map[string]string{
	"Hostile/Distant":          "curt, guarded, quick to end topics; open affection is unwelcome",
	"Uncomfortable/Wary":       "polite but distant, hedges, avoids personal subjects",
	"Neutral/Formal":           "courteous small talk, friendly but with clear boundaries",
	"Friendly/Casual":          "relaxed, jokes around, shares everyday details freely",
	"Warm/Affectionate":        "openly caring, uses endearments occasionally, seeks the user's company",
	"Intimate/Romantic":        "flirtatious and tender, speaks of the two of you as a pair",
	"Deeply Bonded/Passionate": "devoted and unreserved, assumes a shared future, deeply physical warmth",
}

func ladder() []ladderTier {
	rungs := make([]ladderTier, 0, len(intimacy.Tiers))
	for _, t := range intimacy.Tiers {
		rungs = append(rungs, ladderTier{Name: t.Name, Min: t.Min, Max: t.Max, Behavior: tierBehaviors[t.Name]})
	}
	return rungs
}

// Builder assembles prompts.
type Builder struct {
	videoEnabled bool
	historyLimit int
}

// NewBuilder returns a Builder. historyLimit <= 0 falls back to
// HistoryWindowSize.
func NewBuilder(videoEnabled bool, historyLimit int) *Builder {
	if historyLimit <= 0 {
		historyLimit = HistoryWindowSize
	}
	return &Builder{videoEnabled: videoEnabled, historyLimit: historyLimit}
}

// BuildSystemInstruction renders the full session-start instruction:
// embodiment contract, tagged profile block, power system, intimacy ladder,
// and directive syntax.
func (b *Builder) BuildSystemInstruction(c *types.Character, profile *types.UserProfile, memories []string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("character is required")
	}

	userName := "the user"
	if profile != nil && strings.TrimSpace(profile.Name) != "" {
		userName = profile.Name
	}

	data := struct {
		Character    *types.Character
		UserName     string
		DisplayLevel float64
		TierName     string
		Ladder       []ladderTier
		Power        *power.System
		Memories     []string
		VideoEnabled bool
	}{
		Character:    c,
		UserName:     userName,
		DisplayLevel: intimacy.ClampDisplay(c.IntimacyLevel),
		TierName:     intimacy.TierFor(c.IntimacyLevel).Name,
		Ladder:       ladder(),
		Memories:     memories,
		VideoEnabled: b.videoEnabled,
	}
	if sys, ok := power.ForRace(c.Profile.BasicInfo.Race); ok {
		data.Power = &sys
	}

	var buf bytes.Buffer
	if err := systemTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build system instruction: %w", err)
	}
	return buf.String(), nil
}

// BuildTurnContext renders the per-turn time context. now must already be in
// the character's local zone. firstOfSession suppresses the elapsed note.
func (b *Builder) BuildTurnContext(c *types.Character, now time.Time, lastMessageAt time.Time, firstOfSession bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[Context: it is %s (%s) where %s lives.",
		clock.LocalLabel(now), clock.TimeOfDay(now), c.Profile.BasicInfo.Name)
	if !firstOfSession {
		if note := clock.ElapsedNote(lastMessageAt, now); note != "" {
			sb.WriteString(" ")
			sb.WriteString(note)
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// HistoryWindow converts the most recent non-image messages into provider
// contents for seeding a chat session.
func (b *Builder) HistoryWindow(history []types.Message) []*genai.Content {
	var eligible []types.Message
	for _, m := range history {
		if m.Type == types.MessageImage {
			continue
		}
		eligible = append(eligible, m)
	}
	if len(eligible) > b.historyLimit {
		eligible = eligible[len(eligible)-b.historyLimit:]
	}

	contents := make([]*genai.Content, 0, len(eligible))
	for _, m := range eligible {
		role := "user"
		if m.Sender == types.SenderAI {
			role = "model"
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}
	return contents
}
