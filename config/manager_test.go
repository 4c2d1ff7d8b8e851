package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ccsw/config/models"
)

// setupTestPaths points every file into a temporary directory
func setupTestPaths(t *testing.T) PathsConfig {
	t.Helper()
	dir := t.TempDir()
	return ResolvePaths(dir, func(string) string { return "" })
}

func writeStore(t *testing.T, paths PathsConfig, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(paths.Store), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.Store, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestManagerLoad_NotFound(t *testing.T) {
	m := NewManager(setupTestPaths(t))

	_, err := m.Load()
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected error to match os.ErrNotExist")
	}

	store, err := m.LoadOrEmpty()
	if err != nil {
		t.Fatalf("LoadOrEmpty failed: %v", err)
	}
	if len(store.Sites) != 0 {
		t.Errorf("Expected empty store, got %d sites", len(store.Sites))
	}
}

func TestManagerLoad_ParseError(t *testing.T) {
	paths := setupTestPaths(t)
	writeStore(t, paths, `{"sites": {`)

	_, err := NewManager(paths).Load()
	var parseErr *models.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if parseErr.Path != paths.Store {
		t.Errorf("Expected path %s, got %s", paths.Store, parseErr.Path)
	}
}

func TestManagerLoad_EmptyFile(t *testing.T) {
	paths := setupTestPaths(t)
	writeStore(t, paths, "  \n")

	store, err := NewManager(paths).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if store.Sites == nil || len(store.Sites) != 0 {
		t.Errorf("Expected empty site map, got %v", store.Sites)
	}
}

func TestManagerLoad_FullStore(t *testing.T) {
	paths := setupTestPaths(t)
	writeStore(t, paths, `{
  "sites": {
    "duck": {
      "description": "Duck API",
      "claude": {
        "env": {"ANTHROPIC_BASE_URL": "https://duck.example", "ANTHROPIC_AUTH_TOKEN": {"main": "t1", "backup": "t2"}},
        "permissions": {"allow": ["Bash"]}
      },
      "codex": {
        "model": "gpt-5-codex",
        "OPENAI_API_KEY": "sk-1",
        "model_providers": {"duck": {"name": "Duck", "base_url": "https://duck.example/v1"}}
      },
      "iflow": {"baseUrl": "https://iflow.example", "apiKey": "ik", "modelName": "qwen"}
    }
  },
  "currentConfig": {"site": "duck", "siteName": "Duck API", "token": "t1", "updatedAt": "2025-01-01T00:00:00Z"}
}`)

	store, err := NewManager(paths).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	duck := store.Sites["duck"]
	if duck == nil {
		t.Fatal("Expected site duck")
	}
	tokens := duck.Claude.AuthToken.Entries(models.DefaultTokenName)
	if len(tokens) != 2 || tokens[0].Name != "main" || tokens[1].Name != "backup" {
		t.Errorf("Expected tokens main, backup in order, got %v", tokens)
	}
	if got := duck.Codex.ProviderKeys(); !reflect.DeepEqual(got, []string{"duck"}) {
		t.Errorf("Expected providers [duck], got %v", got)
	}
	if duck.Iflow.ModelName != "qwen" {
		t.Errorf("Expected iflow model qwen, got %s", duck.Iflow.ModelName)
	}
	if store.CurrentConfig == nil || store.CurrentConfig.Token != "t1" {
		t.Errorf("Expected current claude token t1, got %+v", store.CurrentConfig)
	}
}

func TestManagerSave_RoundTrip(t *testing.T) {
	paths := setupTestPaths(t)
	m := NewManager(paths)

	store := models.NewStore()
	store.Sites["a"] = &models.SiteEntry{
		Description: "A",
		Iflow:       &models.IflowBlock{BaseURL: "https://a", APIKey: "k"},
	}
	if err := m.Save(store); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(paths.Store)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected store mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Sites["a"], store.Sites["a"]) {
		t.Errorf("Expected %+v, got %+v", store.Sites["a"], loaded.Sites["a"])
	}

	// a second save of the same store is byte-identical
	first, _ := os.ReadFile(paths.Store)
	if err := m.Save(loaded); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(paths.Store)
	if string(first) != string(second) {
		t.Errorf("Expected stable output, got\n%s\nvs\n%s", first, second)
	}
}

func TestManagerSave_KeepsUnknownClaudeKeys(t *testing.T) {
	paths := setupTestPaths(t)
	writeStore(t, paths, `{"sites":{"s":{"claude":{"env":{"ANTHROPIC_BASE_URL":"https://s","ANTHROPIC_AUTH_TOKEN":"t","EXTRA":"1"},"statusLine":{"type":"command"}}}}}`)
	m := NewManager(paths)

	store, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Save(store); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(paths.Store)
	var raw map[string]map[string]map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	claude := raw["sites"]["s"]["claude"]
	if _, ok := claude["statusLine"]; !ok {
		t.Error("Expected statusLine to survive a save")
	}
	if env, _ := claude["env"].(map[string]any); env["EXTRA"] != "1" {
		t.Errorf("Expected env.EXTRA to survive a save, got %v", claude["env"])
	}
}

func TestManagerAddRemoveSite(t *testing.T) {
	m := NewManager(setupTestPaths(t))
	site := &models.SiteEntry{Iflow: &models.IflowBlock{BaseURL: "https://i", APIKey: "k"}}

	if err := m.AddSite("b", site); err != nil {
		t.Fatalf("AddSite failed: %v", err)
	}
	if err := m.AddSite("a", site); err != nil {
		t.Fatalf("AddSite failed: %v", err)
	}
	keys, err := m.SiteKeys()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Errorf("Expected sorted keys [a b], got %v", keys)
	}

	if err := m.SetActive(ToolIflow, &models.ActiveSelection{Site: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := m.SetActive(ToolClaude, &models.ActiveSelection{Site: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := m.RemoveSite("a"); err != nil {
		t.Fatalf("RemoveSite failed: %v", err)
	}

	store, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if store.CurrentIflowConfig != nil {
		t.Error("Expected iflow selection of removed site to be cleared")
	}
	if store.CurrentConfig == nil || store.CurrentConfig.Site != "b" {
		t.Error("Expected claude selection of another site to be kept")
	}
	if _, err := m.Site("a"); err == nil {
		t.Error("Expected error for removed site")
	}
	if err := m.RemoveSite("missing"); err == nil {
		t.Error("Expected error removing a missing site")
	}
}

func TestManagerAddSite_Validation(t *testing.T) {
	m := NewManager(setupTestPaths(t))

	tests := []struct {
		name string
		key  string
		site *models.SiteEntry
	}{
		{"no blocks", "s", &models.SiteEntry{Description: "empty"}},
		{"bad key", "a/b", &models.SiteEntry{Iflow: &models.IflowBlock{BaseURL: "https://i", APIKey: "k"}}},
		{"bad url", "s", &models.SiteEntry{Iflow: &models.IflowBlock{BaseURL: "ftp://i", APIKey: "k"}}},
		{"claude without token", "s", &models.SiteEntry{Claude: models.NewClaudeBlock("https://c", models.Credential{})}},
		{"codex without provider", "s", &models.SiteEntry{Codex: &models.CodexBlock{Model: "gpt-5"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.AddSite(tt.key, tt.site)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Site != tt.key {
				t.Errorf("Expected site %q in error, got %q", tt.key, verr.Site)
			}
		})
	}

	if _, err := os.Stat(m.StorePath()); !os.IsNotExist(err) {
		t.Error("Expected no store to be written for invalid sites")
	}
}

func TestManagerLoad_MigratesLegacyStore(t *testing.T) {
	paths := setupTestPaths(t)
	if err := os.MkdirAll(filepath.Dir(paths.LegacyStore), 0700); err != nil {
		t.Fatal(err)
	}
	legacy := `{"sites":{"old":{"iflow":{"baseUrl":"https://o","apiKey":"k"}}}}`
	if err := os.WriteFile(paths.LegacyStore, []byte(legacy), 0600); err != nil {
		t.Fatal(err)
	}

	store, err := NewManager(paths).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := store.Sites["old"]; !ok {
		t.Error("Expected legacy site to be migrated")
	}
}

func TestResolvePaths(t *testing.T) {
	env := map[string]string{
		EnvXDGConfigHome: "/xdg",
		EnvClaudeDir:     "/claude",
		EnvCodexHome:     "/codex",
	}
	paths := ResolvePaths("/home/u", func(k string) string { return env[k] })

	expected := PathsConfig{
		Store:          filepath.Join("/xdg", "ccsw", "api_configs.json"),
		LegacyStore:    filepath.Join("/home/u", ".claude", "api_configs.json"),
		ClaudeSettings: filepath.Join("/claude", "settings.json"),
		CodexConfig:    filepath.Join("/codex", "config.toml"),
		CodexAuth:      filepath.Join("/codex", "auth.json"),
		IflowSettings:  filepath.Join("/home/u", ".iflow", "settings.json"),
	}
	if paths != expected {
		t.Errorf("Expected %+v, got %+v", expected, paths)
	}

	env[EnvStorePath] = "/custom/store.json"
	if got := ResolvePaths("/home/u", func(k string) string { return env[k] }).Store; got != "/custom/store.json" {
		t.Errorf("Expected CCSW_STORE to win, got %s", got)
	}

	if got := paths.WithStore("/flag.json"); got.Store != "/flag.json" || got.LegacyStore != "" {
		t.Errorf("Expected flag store without legacy migration, got %+v", got)
	}
}
