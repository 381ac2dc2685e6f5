// Package intimacy maintains the per-character relationship score and its
// display tiers, and applies provider-judged deltas after each exchange.
package intimacy

import (
	"math"

	"github.com/campfireai/companion/internal/types"
)

// Tier is a named relationship band used for display and prompt text.
type Tier struct {
	Name string
	Min  int
	Max  int
}

// Tiers covers every integer in [-100,100] with no gaps.
var Tiers = []Tier{
	{Name: "Hostile/Distant", Min: -100, Max: -50},
	{Name: "Uncomfortable/Wary", Min: -49, Max: -1},
	{Name: "Neutral/Formal", Min: 0, Max: 20},
	{Name: "Friendly/Casual", Min: 21, Max: 40},
	{Name: "Warm/Affectionate", Min: 41, Max: 60},
	{Name: "Intimate/Romantic", Min: 61, Max: 80},
	{Name: "Deeply Bonded/Passionate", Min: 81, Max: 100},
}

// ClampDisplay bounds a level to the displayed range. The stored level is
// deliberately left unclamped.
func ClampDisplay(level float64) float64 {
	switch {
	case level < -100:
		return -100
	case level > 100:
		return 100
	default:
		return level
	}
}

// TierFor maps a level to its display tier.
func TierFor(level float64) Tier {
	display := ClampDisplay(level)
	for _, tier := range Tiers {
		if display <= float64(tier.Max) {
			return tier
		}
	}
	return Tiers[len(Tiers)-1]
}

// Round1 rounds to one decimal place, the engine's storage precision.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// auraGuidance maps each personality aura to its judgment valence rule.
var auraGuidance = map[types.Aura]string{
	types.AuraBratty:       "teasing and pushback raise intimacy; being ignored lowers it sharply",
	types.AuraDominant:     "deference and playing along raise intimacy; challenges to control lower it",
	types.AuraSubmissive:   "gentle guidance and reassurance raise intimacy; harshness lowers it strongly",
	types.AuraIntellectual: "substantive conversation raises intimacy; shallow flattery barely moves it",
	types.AuraNurturing:    "accepting care raises intimacy; rejecting help lowers it",
	types.AuraCharismatic:  "engaged admiration raises intimacy; indifference lowers it",
	types.AuraAnalytical:   "precision and honesty raise intimacy; vagueness and evasion lower it",
	types.AuraSeductive:    "reciprocated flirtation raises intimacy quickly; prudishness cools it",
	types.AuraPampered:     "gifts, attention, and indulgence raise intimacy; frugality lowers it",
	types.AuraAdventurous:  "spontaneity and bold plans raise intimacy; routine bores and lowers it",
	types.AuraAmbitious:    "support for their goals raises intimacy; belittling them lowers it sharply",
	types.AuraEmpathetic:   "emotional openness raises intimacy; coldness lowers it",
}

// AuraGuidance returns the valence rule for an aura, or a neutral default.
func AuraGuidance(aura types.Aura) string {
	if rule, ok := auraGuidance[aura]; ok {
		return rule
	}
	return "judge by ordinary social warmth"
}
