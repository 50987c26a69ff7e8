package summarizer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// PromptTemplate is one named prompt entry: a Go-template-free interpolation
// string (`{text}`, `{title}` placeholders) plus an optional JSON schema for
// structured (v2) responses.
type PromptTemplate struct {
	Template       string         `json:"template"`
	ResponseSchema map[string]any `json:"response_schema,omitempty"`
}

// TemplateSet is the on-disk shape of prompts_v2.json / prompts.json:
// category -> variant -> template.
type TemplateSet map[string]map[string]PromptTemplate

// PromptVersion distinguishes the JSON-schema v2 templates from the legacy
// sentinel-line v1 templates; SummarizeItem's parsing mode depends on it.
type PromptVersion string

const (
	PromptV2     PromptVersion = "v2"
	PromptV1     PromptVersion = "v1"
	PromptCustom PromptVersion = "custom"
)

// Templates holds a loaded, frozen prompt set. Per spec.md §9's design
// note, prompts are loaded once at process start and never reloaded.
type Templates struct {
	Set     TemplateSet
	Version PromptVersion
}

// LoadTemplates tries preferredPath (prompts_v2.json) first, falling back
// to legacyPath (prompts.json) when preferredPath doesn't exist.
func LoadTemplates(preferredPath, legacyPath string) (*Templates, error) {
	if preferredPath != "" {
		if data, err := os.ReadFile(preferredPath); err == nil {
			set, err := parseTemplateSet(data, preferredPath)
			if err != nil {
				return nil, err
			}
			return &Templates{Set: set, Version: PromptV2}, nil
		}
	}
	if legacyPath == "" {
		return nil, fmt.Errorf("summarizer: no prompt file available (tried %q, %q)", preferredPath, legacyPath)
	}
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return nil, fmt.Errorf("summarizer: reading prompt file %s: %w", legacyPath, err)
	}
	set, err := parseTemplateSet(data, legacyPath)
	if err != nil {
		return nil, err
	}
	return &Templates{Set: set, Version: PromptV1}, nil
}

func parseTemplateSet(data []byte, path string) (TemplateSet, error) {
	var set TemplateSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("summarizer: parsing prompt file %s: %w", path, err)
	}
	return set, nil
}

// Render fetches the named prompt and interpolates vars into its template
// by literal `{key}` substitution — the templates ship no conditional or
// loop syntax, so text/template would be strictly more than this needs.
func (t *Templates) Render(category, variant string, vars map[string]string) (string, error) {
	byVariant, ok := t.Set[category]
	if !ok {
		return "", fmt.Errorf("summarizer: prompt category %q not found", category)
	}
	tmpl, ok := byVariant[variant]
	if !ok {
		return "", fmt.Errorf("summarizer: prompt %s.%s not found", category, variant)
	}

	out := tmpl.Template
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	return out, nil
}

// ResponseSchema returns the JSON schema for a prompt variant, or nil if
// it has none (always nil under PromptV1).
func (t *Templates) ResponseSchema(category, variant string) map[string]any {
	byVariant, ok := t.Set[category]
	if !ok {
		return nil
	}
	return byVariant[variant].ResponseSchema
}
