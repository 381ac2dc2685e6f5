// Package power defines the per-race ability systems and the timed display
// state raised by power-release directives.
package power

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed powers.yaml
var powersYAML []byte

// System is one race's ability model with four escalating levels.
type System struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Levels      map[string]string `yaml:"levels"`
}

var (
	loadOnce sync.Once
	systems  map[string]System
	loadErr  error
)

func load() {
	loadOnce.Do(func() {
		systems = map[string]System{}
		if err := yaml.Unmarshal(powersYAML, &systems); err != nil {
			loadErr = fmt.Errorf("failed to parse power systems: %w", err)
		}
	})
}

// ForRace returns the power system for a race, if the race has one.
// Lookup is case-insensitive; races without a system (e.g. human) return false.
func ForRace(race string) (System, bool) {
	load()
	if loadErr != nil {
		return System{}, false
	}
	sys, ok := systems[strings.ToLower(strings.TrimSpace(race))]
	return sys, ok
}
