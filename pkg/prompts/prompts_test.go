package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	s := Default()
	if s.Version == "" {
		t.Error("Version is empty")
	}
	if !strings.Contains(s.FastSystem, "vibeScore") {
		t.Error("FastSystem does not describe the vibeScore schema")
	}
	if !strings.Contains(s.DeepSystem(), "tacticalFixes") || !strings.Contains(s.DeepSystem(), "Strategic Index") {
		t.Error("DeepSystem() is missing strategy or output instructions")
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("version: test\nfast_system: be brief\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Version != "test" || s.FastSystem != "be brief" {
		t.Errorf("override not applied: version=%q fast=%q", s.Version, s.FastSystem)
	}
	if s.StrategySystem != Default().StrategySystem {
		t.Error("StrategySystem should keep the embedded value")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil")
	}

	path := filepath.Join(t.TempDir(), "blank.yaml")
	os.WriteFile(path, []byte("fast_system: \"\"\n"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Load(blank fast_system) error = nil")
	}

	if s, err := Load(""); err != nil || s == nil {
		t.Errorf("Load(\"\") = %v, %v", s, err)
	}
}
