// Package prompts holds the versioned system prompts for report generation.
package prompts

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Set is one version of the prompt templates.
type Set struct {
	Version           string `yaml:"version"`
	StrategySystem    string `yaml:"strategy_system"`
	FastSystem        string `yaml:"fast_system"`
	OutputInstruction string `yaml:"output_instruction"`
}

// Default returns the embedded prompt set.
func Default() *Set {
	s, err := parse(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}
	return s
}

// Load reads an override file. Fields missing from the file keep their
// embedded values. An empty path returns the defaults.
func Load(path string) (*Set, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse prompts %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid prompts %s: %w", path, err)
	}
	return s, nil
}

func parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Set) validate() error {
	switch {
	case s.StrategySystem == "":
		return fmt.Errorf("strategy_system is empty")
	case s.FastSystem == "":
		return fmt.Errorf("fast_system is empty")
	case s.OutputInstruction == "":
		return fmt.Errorf("output_instruction is empty")
	}
	return nil
}

// DeepSystem is the full system prompt for deep reports.
func (s *Set) DeepSystem() string {
	return s.StrategySystem + "\n\n" + s.OutputInstruction
}
