// Package storage writes audit output to files or streams.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Formats accepted by Encode.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormat reports whether format is json or yaml.
func ValidFormat(format string) bool {
	return format == FormatJSON || format == FormatYAML
}

// Encode writes v to w as indented JSON or YAML.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

// SaveFile encodes v into filePath, creating parent directories.
func SaveFile(filePath, format string, v any) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filePath, err)
	}
	if err := Encode(f, format, v); err != nil {
		_ = f.Close() // encode error is more useful than close error
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save %s: %w", filePath, err)
	}
	return nil
}
