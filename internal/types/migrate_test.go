package types

import (
	"reflect"
	"testing"
)

func TestMigrateCharacterFillsDefaults(t *testing.T) {
	c := &Character{}
	if !MigrateCharacter(c) {
		t.Fatalf("expected migration to report a change")
	}
	if c.ID == "" {
		t.Fatalf("expected generated id")
	}
	if c.Profile.BasicInfo.Name == "" {
		t.Fatalf("expected default name")
	}
	if !c.NeedsRefinement {
		t.Fatalf("expected NeedsRefinement flag")
	}
	if len(c.Profile.PhysicalStyle.HairstyleOptions) == 0 {
		t.Fatalf("expected default hairstyle options")
	}
}

func TestMigrateCharacterIdempotent(t *testing.T) {
	c := &Character{}
	MigrateCharacter(c)
	first := *c
	firstHairstyles := append([]string(nil), c.Profile.PhysicalStyle.HairstyleOptions...)

	if MigrateCharacter(c) {
		t.Fatalf("second migration reported a change")
	}
	if c.ID != first.ID || c.Profile.BasicInfo.Name != first.Profile.BasicInfo.Name {
		t.Fatalf("second migration mutated record: %#v", c)
	}
	if c.NeedsRefinement != first.NeedsRefinement {
		t.Fatalf("NeedsRefinement flip-flopped")
	}
	if !reflect.DeepEqual(c.Profile.PhysicalStyle.HairstyleOptions, firstHairstyles) {
		t.Fatalf("hairstyle defaults injected twice: %v", c.Profile.PhysicalStyle.HairstyleOptions)
	}
}

func TestMigrateCharacterKeepsValidRecord(t *testing.T) {
	c := &Character{
		ID: "abc",
		Profile: CharacterProfile{
			BasicInfo:     BasicInfo{Name: "Mira"},
			PhysicalStyle: PhysicalStyle{HairstyleOptions: []string{"bob cut"}},
		},
		ChatHistory: []Message{},
		Media:       []Media{},
	}
	if MigrateCharacter(c) {
		t.Fatalf("migration changed a valid record")
	}
	if c.NeedsRefinement {
		t.Fatalf("valid record flagged for refinement")
	}
}

func TestMigrateStateNilCharacters(t *testing.T) {
	s := &AppState{}
	if !MigrateState(s) {
		t.Fatalf("expected change for nil character list")
	}
	if s.Characters == nil {
		t.Fatalf("expected initialized character list")
	}
}
