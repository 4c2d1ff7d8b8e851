package tools

import (
	"reflect"
	"testing"

	"ccsw/config"
	"ccsw/config/models"
)

func TestRegistry(t *testing.T) {
	if got := List(); !reflect.DeepEqual(got, []string{"claude", "codex", "iflow"}) {
		t.Errorf("List() = %v, want [claude codex iflow]", got)
	}

	for _, name := range List() {
		tool, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", name, err)
		}
		if tool.Name() != name {
			t.Errorf("Get(%q).Name() = %v", name, tool.Name())
		}
		if tool.DisplayName() == "" {
			t.Errorf("Get(%q) has no display name", name)
		}
	}

	if _, err := Get("vim"); err == nil {
		t.Error("Get(vim) expected error")
	}
}

func TestServedAndCredentials(t *testing.T) {
	site := &models.SiteEntry{
		Claude: models.NewClaudeBlock("https://c", models.NamedCredential(
			models.CredentialEntry{Name: "a", Value: "1"},
			models.CredentialEntry{Name: "b", Value: "2"},
		)),
		Iflow: &models.IflowBlock{BaseURL: "https://i", APIKey: "k"},
	}

	if got := Served(site); !reflect.DeepEqual(got, []string{"claude", "iflow"}) {
		t.Errorf("Served() = %v, want [claude iflow]", got)
	}

	claude, _ := Get(config.ToolClaude)
	if creds := claude.Credentials(site); len(creds) != 2 || creds[1].Name != "b" {
		t.Errorf("claude credentials = %v", creds)
	}
	codex, _ := Get(config.ToolCodex)
	if creds := codex.Credentials(site); creds != nil {
		t.Errorf("codex credentials for a site without codex = %v, want nil", creds)
	}
	iflow, _ := Get(config.ToolIflow)
	if creds := iflow.Credentials(site); len(creds) != 1 || creds[0].Value != "k" {
		t.Errorf("iflow credentials = %v", creds)
	}
}

func TestTargets(t *testing.T) {
	paths := config.ResolvePaths("/home/u", func(string) string { return "" })
	for _, name := range List() {
		tool, _ := Get(name)
		expected, err := paths.Targets(name)
		if err != nil {
			t.Fatal(err)
		}
		if got := tool.Targets(paths); !reflect.DeepEqual(got, expected) {
			t.Errorf("%s Targets() = %v, want %v", name, got, expected)
		}
	}
}
