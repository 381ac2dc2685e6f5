package clock

import (
	"context"
	"testing"
	"time"

	"github.com/campfireai/companion/internal/types"
)

func at(hour int) time.Time {
	return time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
}

func TestTimeOfDayBuckets(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{5, Morning}, {11, Morning},
		{12, Afternoon}, {16, Afternoon},
		{17, Evening}, {21, Evening},
		{22, Night}, {2, Night}, {4, Night},
	}
	for _, tc := range cases {
		if got := TimeOfDay(at(tc.hour)); got != tc.want {
			t.Fatalf("hour %d: expected %s, got %s", tc.hour, tc.want, got)
		}
	}
}

func TestElapsedNote(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	if note := ElapsedNote(now.Add(-10*time.Minute), now); note != "" {
		t.Fatalf("short gap should give no note, got %q", note)
	}
	if note := ElapsedNote(now.Add(-30*time.Minute), now); note != "It's been about 30 minutes since the last message." {
		t.Fatalf("unexpected minutes note: %q", note)
	}
	if note := ElapsedNote(now.Add(-3*time.Hour), now); note != "It's been about 3 hours since the last message." {
		t.Fatalf("unexpected hours note: %q", note)
	}
	if note := ElapsedNote(now.Add(-50*time.Hour), now); note != "It's been about 2 days since you last spoke." {
		t.Fatalf("unexpected days note: %q", note)
	}
	if note := ElapsedNote(time.Time{}, now); note != "" {
		t.Fatalf("zero since should give no note, got %q", note)
	}
}

type fixedCompleter struct {
	answer string
	calls  int
}

func (f *fixedCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	return f.answer, nil
}

func TestTimezoneResolverCaches(t *testing.T) {
	completer := &fixedCompleter{answer: "Asia/Tokyo"}
	r := NewTimezoneResolver(completer)
	c := &types.Character{Profile: types.CharacterProfile{BasicInfo: types.BasicInfo{City: "Tokyo"}}}

	loc := r.Resolve(context.Background(), c)
	if loc.String() != "Asia/Tokyo" {
		t.Fatalf("unexpected location: %s", loc)
	}
	if c.Timezone != "Asia/Tokyo" {
		t.Fatalf("timezone not cached: %q", c.Timezone)
	}

	r.Resolve(context.Background(), c)
	if completer.calls != 1 {
		t.Fatalf("expected one lookup, got %d", completer.calls)
	}
}

func TestTimezoneResolverInvalidZone(t *testing.T) {
	r := NewTimezoneResolver(&fixedCompleter{answer: "Not/AZone"})
	c := &types.Character{Profile: types.CharacterProfile{BasicInfo: types.BasicInfo{City: "Atlantis"}}}

	if loc := r.Resolve(context.Background(), c); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", loc)
	}
	if c.Timezone != "" {
		t.Fatalf("invalid zone must not be cached")
	}
}
