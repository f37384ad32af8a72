// Package prompt renders the structured generation prompts used by the
// distillation services.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field describes a single output field in a simple schema.
type Field struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Spec defines the sections for a structured prompt.
type Spec struct {
	Purpose      string
	Background   string
	OutputFields []Field
	Constraints  []string
	Rules        []string
	OutputFormat string
	Language     string
}

// Preset mutates a spec with a reusable block of constraints.
type Preset func(*Spec)

// ApplyPresets returns spec with all presets applied.
func ApplyPresets(spec Spec, presets ...Preset) Spec {
	for _, p := range presets {
		p(&spec)
	}
	return spec
}

// PresetStrictJSON forbids anything but a single JSON document in the output.
func PresetStrictJSON() Preset {
	return func(s *Spec) {
		s.Constraints = append(s.Constraints,
			"Respond with a single JSON document and nothing else.",
			"No markdown fences, no commentary.",
		)
		if strings.TrimSpace(s.OutputFormat) == "" {
			s.OutputFormat = "JSON only."
		}
	}
}

// PresetNoInvent keeps the model anchored to the provided input.
func PresetNoInvent() Preset {
	return func(s *Spec) {
		s.Constraints = append(s.Constraints,
			"Do not invent entities that contradict the input.",
			"If something is unknown, return an empty array/string explicitly.",
		)
	}
}

// Render produces the prompt text for the given input payload.
func (s Spec) Render(input any) (string, error) {
	if strings.TrimSpace(s.Purpose) == "" {
		return "", fmt.Errorf("prompt: purpose is empty")
	}
	if len(s.OutputFields) == 0 {
		return "", fmt.Errorf("prompt: output fields are empty")
	}
	inputJSON, err := formatAnyJSON(input)
	if err != nil {
		return "", fmt.Errorf("prompt: encode input: %w", err)
	}

	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", s.Purpose)
	writeSection(&buf, "BACKGROUND", s.Background)
	writeSection(&buf, "INPUT", inputJSON)
	writeSection(&buf, "OUTPUT", formatFields(s.OutputFields))
	writeSection(&buf, "CONSTRAINTS", formatList(s.Constraints))
	writeSection(&buf, "RULES", formatList(s.Rules))
	writeSection(&buf, "OUTPUT_FORMAT", s.OutputFormat)
	writeSection(&buf, "LANGUAGE", s.Language)

	return strings.TrimSpace(buf.String()) + "\n", nil
}

func formatAnyJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatFields(fields []Field) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		if f.Description != "" {
			fmt.Fprintf(&buf, "- %s (%s, %s): %s\n", name, f.Type, req, f.Description)
		} else {
			fmt.Fprintf(&buf, "- %s (%s, %s)\n", name, f.Type, req)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
