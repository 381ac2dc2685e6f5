package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campfireai/companion/internal/types"
)

// Store owns the in-memory application state and writes it back as one
// document. There is exactly one logical writer, so every mutation is a
// full-blob overwrite with last-writer-wins semantics.
type Store struct {
	blob  BlobStore
	state *types.AppState
}

// NewStore wraps a blob backend. Call Load before using the state.
func NewStore(blob BlobStore) *Store {
	return &Store{blob: blob, state: &types.AppState{Characters: []*types.Character{}}}
}

// Load reads the document, migrates legacy records, and persists the result
// if migration changed anything. A missing document yields empty state.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.blob.Get(ctx, StateKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load app state: %w", err)
	}

	var state types.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode app state: %w", err)
	}

	if types.MigrateState(&state) {
		slog.Info("migrated legacy app state")
		s.state = &state
		return s.Save(ctx)
	}
	s.state = &state
	return nil
}

// Save serializes and overwrites the whole document.
func (s *Store) Save(ctx context.Context) error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("failed to encode app state: %w", err)
	}
	if err := s.blob.Set(ctx, StateKey, data); err != nil {
		return fmt.Errorf("failed to persist app state: %w", err)
	}
	return nil
}

// State returns the live state object.
func (s *Store) State() *types.AppState { return s.state }

// ReplaceState swaps the whole document (import path) and persists it.
func (s *Store) ReplaceState(ctx context.Context, state *types.AppState) error {
	types.MigrateState(state)
	s.state = state
	return s.Save(ctx)
}

// UserProfile returns the stored profile, or nil before first-run setup.
func (s *Store) UserProfile() *types.UserProfile { return s.state.UserProfile }

// SetUserProfile overwrites the profile and persists.
func (s *Store) SetUserProfile(ctx context.Context, profile *types.UserProfile) error {
	s.state.UserProfile = profile
	return s.Save(ctx)
}

// Characters returns the live character list.
func (s *Store) Characters() []*types.Character { return s.state.Characters }

// CharacterByID returns the character or nil.
func (s *Store) CharacterByID(id string) *types.Character {
	return s.state.CharacterByID(id)
}

// AddCharacter assigns an id and creation time, appends, and persists.
func (s *Store) AddCharacter(ctx context.Context, c *types.Character) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	types.MigrateCharacter(c)
	s.state.Characters = append(s.state.Characters, c)
	return s.Save(ctx)
}

// DeleteCharacter removes the character and persists. Unknown ids are a no-op.
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	kept := s.state.Characters[:0]
	for _, c := range s.state.Characters {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(s.state.Characters) {
		return nil
	}
	s.state.Characters = kept
	return s.Save(ctx)
}
