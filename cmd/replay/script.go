package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rails/internal/domain"
)

// Script is a recorded sequence of actions to feed into a game.
type Script struct {
	Actions []domain.Action `yaml:"actions"`
}

func loadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	return parseScript(data)
}

func parseScript(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse script yaml: %w", err)
	}
	for i, a := range s.Actions {
		if a.Kind == "" {
			return Script{}, fmt.Errorf("actions[%d]: kind is required", i)
		}
		if a.Actor == "" {
			return Script{}, fmt.Errorf("actions[%d]: actor is required", i)
		}
	}
	if len(s.Actions) == 0 {
		return Script{}, errors.New("script has no actions")
	}
	return s, nil
}
