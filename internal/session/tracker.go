// Package session tracks per-character continuity state so generated media
// stays visually consistent across a conversation.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/campfireai/companion/internal/clock"
	"github.com/campfireai/companion/internal/types"
)

// Planner runs the micro-planning provider calls.
type Planner interface {
	// InferLocation names the scene's location from conversation context.
	InferLocation(ctx context.Context, scene, recentContext string) (string, error)
	// PlanOutfit describes an outfit for the location and time of day,
	// treating previousOutfit (when non-empty) as the base to modify.
	PlanOutfit(ctx context.Context, c *types.Character, previousOutfit, location, timeOfDay string) (string, error)
}

// Persister writes the app document after the session context mutates.
type Persister interface {
	Save(ctx context.Context) error
}

// Resolved is the continuity decision for one image generation.
type Resolved struct {
	Hairstyle string
	Outfit    string
	Location  string
	Reference types.ReferenceImage
}

// Tracker resolves and maintains each character's SessionContext.
type Tracker struct {
	planner   Planner
	persister Persister
	randFunc  func(n int) int
}

// NewTracker returns a Tracker.
func NewTracker(planner Planner, persister Persister) *Tracker {
	return &Tracker{planner: planner, persister: persister, randFunc: rand.Intn}
}

// Resolve decides hairstyle, outfit, location, and reference image for one
// image request. now must be the character's local time. The character's
// sessionContext is mutated and persisted as a side effect.
func (t *Tracker) Resolve(ctx context.Context, c *types.Character, scene, recentContext string, now time.Time) (*Resolved, error) {
	sc := c.SessionContext
	if sc == nil {
		sc = &types.SessionContext{}
	}

	// Hairstyle is chosen once per session and stays stable.
	if sc.Hairstyle == "" {
		sc.Hairstyle = t.pickHairstyle(c)
	}

	location := sc.Location
	if inferred, err := t.planner.InferLocation(ctx, scene, recentContext); err != nil {
		slog.Warn("location inference failed, keeping previous", "character", c.ID, "error", err)
	} else if inferred != "" {
		location = inferred
	}

	bucket := clock.TimeOfDay(now)

	outfit := sc.Outfit
	if outfit == "" || location != sc.Location || bucket != sc.TimeOfDay {
		planned, err := t.planner.PlanOutfit(ctx, c, sc.Outfit, location, bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to plan outfit: %w", err)
		}
		outfit = planned
	}

	reference := t.resolveReference(c, sc)

	sc.Outfit = outfit
	sc.Location = location
	sc.TimeOfDay = bucket
	sc.UpdatedAt = now
	sc.LastReferenceImage = &reference
	c.SessionContext = sc

	if t.persister != nil {
		if err := t.persister.Save(ctx); err != nil {
			return nil, fmt.Errorf("failed to persist session context: %w", err)
		}
	}

	return &Resolved{
		Hairstyle: sc.Hairstyle,
		Outfit:    outfit,
		Location:  location,
		Reference: reference,
	}, nil
}

// Reset drops the continuity state so the next request starts a fresh
// session, and persists the cleared record.
func (t *Tracker) Reset(ctx context.Context, c *types.Character) error {
	c.SessionContext = nil
	if t.persister == nil {
		return nil
	}
	return t.persister.Save(ctx)
}

func (t *Tracker) pickHairstyle(c *types.Character) string {
	options := c.Profile.PhysicalStyle.HairstyleOptions
	if len(options) == 0 {
		return ""
	}
	return options[t.randFunc(len(options))]
}

// resolveReference picks the consistency anchor: the previous reference if
// it still resolves, else the newest gallery image, else the avatar.
func (t *Tracker) resolveReference(c *types.Character, sc *types.SessionContext) types.ReferenceImage {
	if last := sc.LastReferenceImage; last != nil {
		if last.ID == types.AvatarReferenceID && len(c.AvatarData) > 0 {
			return avatarReference(c)
		}
		if id, err := strconv.ParseInt(last.ID, 10, 64); err == nil {
			if m := c.MediaByID(id); m != nil && m.Type == types.MediaImage {
				return mediaReference(m)
			}
		}
	}

	var newest *types.Media
	for i := range c.Media {
		m := &c.Media[i]
		if m.Type != types.MediaImage {
			continue
		}
		if newest == nil || m.ID > newest.ID {
			newest = m
		}
	}
	if newest != nil {
		return mediaReference(newest)
	}
	return avatarReference(c)
}

func avatarReference(c *types.Character) types.ReferenceImage {
	mime := c.AvatarMIME
	if mime == "" {
		mime = "image/png"
	}
	return types.ReferenceImage{ID: types.AvatarReferenceID, MIMEType: mime, Data: c.AvatarData}
}

func mediaReference(m *types.Media) types.ReferenceImage {
	mime := m.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return types.ReferenceImage{ID: strconv.FormatInt(m.ID, 10), MIMEType: mime, Data: m.Data}
}
