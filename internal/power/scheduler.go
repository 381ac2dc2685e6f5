package power

import (
	"sync"
	"time"

	"github.com/campfireai/companion/internal/types"
)

// RevertDelay is how long a raised power level stays visible before it
// expires on its own.
const RevertDelay = 30 * time.Second

type entry struct {
	character *types.Character
	level     types.PowerLevel
	gen       uint64
	timer     *time.Timer
}

// Scheduler owns each character's transient CurrentPowerLevel. A raise
// schedules a revert; raising again supersedes the pending revert, so a stale
// timer never nulls out a newer level. Reverts are keyed by
// (character, level, generation).
type Scheduler struct {
	mu       sync.Mutex
	delay    time.Duration
	entries  map[string]*entry
	onRevert func(characterID string)
}

// NewScheduler creates a Scheduler. onRevert may be nil; it fires after a
// level expires, outside the internal lock.
func NewScheduler(delay time.Duration, onRevert func(characterID string)) *Scheduler {
	if delay <= 0 {
		delay = RevertDelay
	}
	return &Scheduler{
		delay:    delay,
		entries:  map[string]*entry{},
		onRevert: onRevert,
	}
}

// Raise sets the character's power level and schedules its expiry.
func (s *Scheduler) Raise(c *types.Character, level types.PowerLevel) {
	if c == nil || !level.Valid() {
		return
	}

	s.mu.Lock()
	prev := s.entries[c.ID]
	var gen uint64 = 1
	if prev != nil {
		prev.timer.Stop()
		gen = prev.gen + 1
	}
	c.CurrentPowerLevel = level
	e := &entry{character: c, level: level, gen: gen}
	e.timer = time.AfterFunc(s.delay, func() { s.revert(c.ID, level, gen) })
	s.entries[c.ID] = e
	s.mu.Unlock()
}

// Level returns the character's current power level.
func (s *Scheduler) Level(c *types.Character) types.PowerLevel {
	if c == nil {
		return types.PowerNone
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.CurrentPowerLevel
}

// Clear cancels any pending revert and resets the level immediately.
func (s *Scheduler) Clear(c *types.Character) {
	if c == nil {
		return
	}
	s.mu.Lock()
	if e := s.entries[c.ID]; e != nil {
		e.timer.Stop()
		delete(s.entries, c.ID)
	}
	c.CurrentPowerLevel = types.PowerNone
	s.mu.Unlock()
}

func (s *Scheduler) revert(characterID string, level types.PowerLevel, gen uint64) {
	s.mu.Lock()
	e := s.entries[characterID]
	if e == nil || e.gen != gen || e.level != level {
		// Superseded while the timer was pending.
		s.mu.Unlock()
		return
	}
	e.character.CurrentPowerLevel = types.PowerNone
	delete(s.entries, characterID)
	s.mu.Unlock()

	if s.onRevert != nil {
		s.onRevert(characterID)
	}
}
