package session

import (
	"context"
	"testing"
	"time"

	"github.com/campfireai/companion/internal/types"
)

type fakePlanner struct {
	location     string
	outfit       string
	outfitCalls  int
	lastPrevious string
}

func (f *fakePlanner) InferLocation(ctx context.Context, scene, recent string) (string, error) {
	return f.location, nil
}

func (f *fakePlanner) PlanOutfit(ctx context.Context, c *types.Character, previous, location, timeOfDay string) (string, error) {
	f.outfitCalls++
	f.lastPrevious = previous
	return f.outfit, nil
}

type nopPersister struct{ saves int }

func (p *nopPersister) Save(ctx context.Context) error {
	p.saves++
	return nil
}

func testCharacter() *types.Character {
	return &types.Character{
		ID:         "c1",
		AvatarData: []byte("avatar-bytes"),
		AvatarMIME: "image/png",
		Profile: types.CharacterProfile{
			BasicInfo:     types.BasicInfo{Name: "Mira"},
			PhysicalStyle: types.PhysicalStyle{HairstyleOptions: []string{"long straight hair", "high ponytail"}},
		},
	}
}

// Afternoon local time used by most cases.
var afternoon = time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

func TestResolveFirstRequestOfSession(t *testing.T) {
	planner := &fakePlanner{location: "a downtown cafe", outfit: "denim jacket over a white dress"}
	persister := &nopPersister{}
	tracker := NewTracker(planner, persister)
	tracker.randFunc = func(n int) int { return 1 }

	c := testCharacter()
	got, err := tracker.Resolve(context.Background(), c, "meeting for coffee", "", afternoon)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got.Hairstyle != "high ponytail" {
		t.Fatalf("expected hairstyle from configured options, got %q", got.Hairstyle)
	}
	if got.Reference.ID != types.AvatarReferenceID {
		t.Fatalf("expected avatar reference on empty gallery, got %q", got.Reference.ID)
	}
	if c.SessionContext == nil || c.SessionContext.Outfit != got.Outfit {
		t.Fatalf("session context not recorded: %#v", c.SessionContext)
	}
	if persister.saves != 1 {
		t.Fatalf("expected one save, got %d", persister.saves)
	}
}

func TestResolveReusesOutfitVerbatim(t *testing.T) {
	planner := &fakePlanner{location: "a downtown cafe", outfit: "denim jacket over a white dress"}
	tracker := NewTracker(planner, &nopPersister{})

	c := testCharacter()
	first, err := tracker.Resolve(context.Background(), c, "coffee", "", afternoon)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if planner.outfitCalls != 1 {
		t.Fatalf("expected one outfit call, got %d", planner.outfitCalls)
	}

	// Same location and same time-of-day bucket: no regeneration call.
	planner.outfit = "should not be used"
	second, err := tracker.Resolve(context.Background(), c, "still at coffee", "", afternoon.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if planner.outfitCalls != 1 {
		t.Fatalf("outfit regenerated despite unchanged context: %d calls", planner.outfitCalls)
	}
	if second.Outfit != first.Outfit {
		t.Fatalf("expected verbatim outfit reuse, got %q vs %q", second.Outfit, first.Outfit)
	}
}

func TestResolveRegeneratesOnLocationChange(t *testing.T) {
	planner := &fakePlanner{location: "a downtown cafe", outfit: "denim jacket over a white dress"}
	tracker := NewTracker(planner, &nopPersister{})

	c := testCharacter()
	if _, err := tracker.Resolve(context.Background(), c, "coffee", "", afternoon); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	planner.location = "her apartment"
	planner.outfit = "the same dress, jacket slung over a chair"
	got, err := tracker.Resolve(context.Background(), c, "back home", "", afternoon.Add(time.Hour))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if planner.outfitCalls != 2 {
		t.Fatalf("expected regeneration on location change, got %d calls", planner.outfitCalls)
	}
	if planner.lastPrevious != "denim jacket over a white dress" {
		t.Fatalf("previous outfit not passed as modification context: %q", planner.lastPrevious)
	}
	if got.Outfit != "the same dress, jacket slung over a chair" {
		t.Fatalf("unexpected outfit: %q", got.Outfit)
	}
}

func TestResolveRegeneratesOnTimeBucketChange(t *testing.T) {
	planner := &fakePlanner{location: "her apartment", outfit: "lounge set"}
	tracker := NewTracker(planner, &nopPersister{})

	c := testCharacter()
	if _, err := tracker.Resolve(context.Background(), c, "afternoon in", "", afternoon); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	night := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	if _, err := tracker.Resolve(context.Background(), c, "late night", "", night); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if planner.outfitCalls != 2 {
		t.Fatalf("expected regeneration on time-of-day change, got %d calls", planner.outfitCalls)
	}
}

func TestResolveReferenceChainsForward(t *testing.T) {
	planner := &fakePlanner{location: "a park", outfit: "sundress"}
	tracker := NewTracker(planner, &nopPersister{})

	c := testCharacter()
	c.Media = []types.Media{
		{ID: 1, Type: types.MediaImage, Data: []byte("one"), MIMEType: "image/png"},
		{ID: 3, Type: types.MediaImage, Data: []byte("three"), MIMEType: "image/jpeg"},
		{ID: 2, Type: types.MediaVideo, Data: []byte("vid")},
	}

	got, err := tracker.Resolve(context.Background(), c, "walk", "", afternoon)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Reference.ID != "3" {
		t.Fatalf("expected newest gallery image, got %q", got.Reference.ID)
	}
	if c.SessionContext.LastReferenceImage.ID != "3" {
		t.Fatalf("reference not chained into session context")
	}

	// A stale pointer to deleted media falls back to the newest live image.
	c.SessionContext.LastReferenceImage = &types.ReferenceImage{ID: "9", MIMEType: "image/png"}
	got, err = tracker.Resolve(context.Background(), c, "walk", "", afternoon)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Reference.ID != "3" {
		t.Fatalf("expected fallback to newest image, got %q", got.Reference.ID)
	}
}

func TestReset(t *testing.T) {
	tracker := NewTracker(&fakePlanner{}, &nopPersister{})
	c := testCharacter()
	c.SessionContext = &types.SessionContext{Hairstyle: "bob"}
	if err := tracker.Reset(context.Background(), c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.SessionContext != nil {
		t.Fatalf("session context not cleared")
	}
}
