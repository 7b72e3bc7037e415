package template

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemplate(t *testing.T, hubPath, name, content string) {
	t.Helper()
	dir := filepath.Join(hubPath, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRender(t *testing.T) {
	hubPath := t.TempDir()
	writeTemplate(t, hubPath, "agents-pointer.tmpl", "See {{HUB_PATH}}/rules and {{HUB_PATH}}/docs.\n")

	got, err := Render(hubPath, "agents-pointer.tmpl")
	if err != nil {
		t.Fatal(err)
	}

	want := "See " + hubPath + "/rules and " + hubPath + "/docs.\n"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRender_SuffixOptional(t *testing.T) {
	hubPath := t.TempDir()
	writeTemplate(t, hubPath, "notes.tmpl", "Rule: keep it simple\n")

	got, err := Render(hubPath, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Rule: keep it simple\n" {
		t.Errorf("Render = %q", got)
	}
}

func TestRender_Missing(t *testing.T) {
	hubPath := t.TempDir()

	_, err := Render(hubPath, "nonexistent")
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestRender_NoPlaceholder(t *testing.T) {
	hubPath := t.TempDir()
	writeTemplate(t, hubPath, "plain", "static content\n")

	got, err := Render(hubPath, "plain")
	if err != nil {
		t.Fatal(err)
	}
	if got != "static content\n" {
		t.Errorf("Render = %q", got)
	}
}
