package clock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campfireai/companion/internal/types"
)

// Completer is the text-completion call used for timezone lookup.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// TimezoneResolver derives a character's IANA timezone from its city once
// and caches it on the character record.
type TimezoneResolver struct {
	completer Completer
}

// NewTimezoneResolver returns a TimezoneResolver.
func NewTimezoneResolver(completer Completer) *TimezoneResolver {
	return &TimezoneResolver{completer: completer}
}

// Resolve returns the character's location, looking it up via the provider
// on first use. Unresolvable zones fall back to UTC without caching.
func (r *TimezoneResolver) Resolve(ctx context.Context, c *types.Character) *time.Location {
	if c.Timezone != "" {
		if loc, err := time.LoadLocation(c.Timezone); err == nil {
			return loc
		}
		slog.Warn("cached timezone invalid, re-resolving", "timezone", c.Timezone)
		c.Timezone = ""
	}

	city := strings.TrimSpace(c.Profile.BasicInfo.City)
	if city == "" || r.completer == nil {
		return time.UTC
	}

	prompt := fmt.Sprintf(
		"Reply with only the IANA timezone identifier (e.g. Europe/Paris) for this city: %s", city)
	answer, err := r.completer.Complete(ctx, "", prompt)
	if err != nil {
		slog.Warn("timezone lookup failed", "city", city, "error", err)
		return time.UTC
	}

	zone := strings.TrimSpace(answer)
	loc, err := time.LoadLocation(zone)
	if err != nil {
		slog.Warn("provider returned invalid timezone", "zone", zone, "city", city)
		return time.UTC
	}
	c.Timezone = zone
	return loc
}
