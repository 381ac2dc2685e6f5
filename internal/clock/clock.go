// Package clock computes character-local time labels, coarse time-of-day
// buckets, and elapsed-time phrasing for prompt context.
package clock

import (
	"fmt"
	"time"
)

// Time-of-day buckets. Crossing one of these boundaries between requests
// forces outfit regeneration.
const (
	Morning   = "morning"
	Afternoon = "afternoon"
	Evening   = "evening"
	Night     = "night"
)

// TimeOfDay returns the coarse bucket for a local time.
func TimeOfDay(t time.Time) string {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 22:
		return Evening
	default:
		return Night
	}
}

// LocalLabel renders a human-readable local time for prompt text.
func LocalLabel(t time.Time) string {
	return t.Format("Monday 3:04 PM")
}

// ElapsedNote phrases the gap since the previous message as a qualitative
// note. Gaps under 15 minutes return "".
func ElapsedNote(since, now time.Time) string {
	if since.IsZero() || !now.After(since) {
		return ""
	}
	gap := now.Sub(since)
	switch {
	case gap > 24*time.Hour:
		days := int(gap.Hours() / 24)
		if days == 1 {
			return "It's been about a day since you last spoke."
		}
		return fmt.Sprintf("It's been about %d days since you last spoke.", days)
	case gap > time.Hour:
		hours := int(gap.Hours())
		if hours == 1 {
			return "It's been about an hour since the last message."
		}
		return fmt.Sprintf("It's been about %d hours since the last message.", hours)
	case gap > 15*time.Minute:
		return fmt.Sprintf("It's been about %d minutes since the last message.", int(gap.Minutes()))
	default:
		return ""
	}
}
