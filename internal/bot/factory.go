package bot

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Level names a bot strategy.
type Level string

const (
	LevelPassive Level = "passive"
	LevelValue   Level = "value"
)

// ParseLevel maps a configured strategy name to a Level.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelPassive, LevelValue:
		return l, nil
	case "":
		return LevelPassive, nil
	default:
		return "", fmt.Errorf("unknown bot level: %q", s)
	}
}

// NewBrain creates a new brain for participant self based on the specified level.
func NewBrain(level Level, self string) (Brain, error) {
	switch level {
	case LevelPassive:
		return &PassiveBot{}, nil
	case LevelValue:
		return NewValueBot(self, DefaultTuning), nil
	default:
		return nil, fmt.Errorf("unknown bot level: %q", level)
	}
}

// NewAgents builds one agent per configured participant -> level entry.
func NewAgents(levels map[string]string) ([]*Agent, error) {
	agents := make([]*Agent, 0, len(levels))
	for _, id := range slices.Sorted(maps.Keys(levels)) {
		level, err := ParseLevel(levels[id])
		if err != nil {
			return nil, fmt.Errorf("bot %s: %w", id, err)
		}
		b, err := NewBrain(level, id)
		if err != nil {
			return nil, err
		}
		agents = append(agents, &Agent{ID: id, Name: id, Strategy: b})
	}
	return agents, nil
}
