package summarizer

import (
	"os"
	"path/filepath"
	"testing"
)

func writePromptFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing prompt file: %v", err)
	}
	return path
}

func TestLoadTemplatesPrefersV2(t *testing.T) {
	dir := t.TempDir()
	v2 := writePromptFile(t, dir, "prompts_v2.json", `{
		"item": {"standard": {"template": "v2 {title}", "response_schema": {"type": "object"}}}
	}`)
	v1 := writePromptFile(t, dir, "prompts.json", `{
		"item": {"standard": {"template": "v1 {title}"}}
	}`)

	templates, err := LoadTemplates(v2, v1)
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	if templates.Version != PromptV2 {
		t.Errorf("Version = %v, want %v", templates.Version, PromptV2)
	}
	got, err := templates.Render("item", "standard", map[string]string{"title": "X"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "v2 X" {
		t.Errorf("Render() = %q, want %q", got, "v2 X")
	}
}

func TestLoadTemplatesFallsBackToLegacy(t *testing.T) {
	dir := t.TempDir()
	missingV2 := filepath.Join(dir, "prompts_v2.json")
	v1 := writePromptFile(t, dir, "prompts.json", `{
		"item": {"standard": {"template": "v1 {title}"}}
	}`)

	templates, err := LoadTemplates(missingV2, v1)
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	if templates.Version != PromptV1 {
		t.Errorf("Version = %v, want %v", templates.Version, PromptV1)
	}
}

func TestLoadTemplatesErrorsWhenNeitherFileExists(t *testing.T) {
	dir := t.TempDir()
	missingV2 := filepath.Join(dir, "prompts_v2.json")
	missingV1 := filepath.Join(dir, "prompts.json")

	if _, err := LoadTemplates(missingV2, missingV1); err == nil {
		t.Fatal("expected error when neither prompt file exists")
	}
}

func TestResponseSchemaNilForPlainTemplate(t *testing.T) {
	templates := &Templates{
		Set: TemplateSet{
			"item": {"standard": PromptTemplate{Template: "hi"}},
		},
	}
	if schema := templates.ResponseSchema("item", "standard"); schema != nil {
		t.Errorf("ResponseSchema() = %v, want nil", schema)
	}
	if schema := templates.ResponseSchema("missing", "standard"); schema != nil {
		t.Errorf("ResponseSchema() for missing category = %v, want nil", schema)
	}
}
