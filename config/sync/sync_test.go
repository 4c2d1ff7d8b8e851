package sync

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ccsw/config"
	"ccsw/config/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *models.Store {
	t.Helper()
	var store models.Store
	require.NoError(t, json.Unmarshal([]byte(`{
		"sites": {
			"alpha": {
				"claude": {"env": {"ANTHROPIC_BASE_URL": "https://alpha.example/", "ANTHROPIC_AUTH_TOKEN": {"main": "a1", "alt": "a2"}}},
				"codex": {"OPENAI_API_KEY": "sk-a", "model_providers": {"alpha": {"base_url": "https://alpha.example/v1"}}}
			},
			"beta": {
				"iflow": {"baseUrl": "https://beta.example", "apiKey": "ik-b"}
			}
		}
	}`), &store))
	return &store
}

func TestDetectClaude(t *testing.T) {
	state, err := DetectClaude(`{"env":{"ANTHROPIC_BASE_URL":"https://x","ANTHROPIC_API_KEY":"k"},"model":"opus"}`)
	require.NoError(t, err)
	assert.Equal(t, ToolState{BaseURL: "https://x", Credential: "k", Model: "opus"}, state)

	state, err = DetectClaude("")
	require.NoError(t, err)
	assert.True(t, state.IsZero())

	_, err = DetectClaude("{")
	var perr *models.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestDetectCodex(t *testing.T) {
	cfg := "model = \"gpt-5\"\nmodel_provider = \"alpha\"\n\n[model_providers.alpha]\nbase_url = \"https://alpha.example/v1\"\n"

	state, err := DetectCodex(cfg, `{"OPENAI_API_KEY":"sk-a"}`)
	require.NoError(t, err)
	assert.Equal(t, ToolState{BaseURL: "https://alpha.example/v1", Credential: "sk-a", Model: "gpt-5", Provider: "alpha"}, state)

	state, err = DetectCodex(cfg+"OPENAI_API_KEY = \"inline\"\n", "")
	require.NoError(t, err)
	assert.Equal(t, "", state.Credential, "keys after a table header belong to the table")

	state, err = DetectCodex("OPENAI_API_KEY = \"inline\"\n"+cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "inline", state.Credential)

	_, err = DetectCodex("model = [", "")
	var perr *models.ParseError
	assert.True(t, errors.As(err, &perr), "malformed TOML is a ParseError, got %v", err)
}

func TestDetect_CodexParseErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	paths := config.ResolvePaths(dir, func(string) string { return "" })
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.CodexConfig), 0700))

	require.NoError(t, os.WriteFile(paths.CodexConfig, []byte("model = [\n"), 0600))
	require.NoError(t, os.WriteFile(paths.CodexAuth, []byte(`{"OPENAI_API_KEY":"sk-a"}`), 0600))

	_, err := Detect(paths, config.ToolCodex)
	var perr *models.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, paths.CodexConfig, perr.Path)

	require.NoError(t, os.WriteFile(paths.CodexConfig, []byte("model = \"gpt-5\"\n"), 0600))
	require.NoError(t, os.WriteFile(paths.CodexAuth, []byte(`{`), 0600))

	_, err = Detect(paths, config.ToolCodex)
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, paths.CodexAuth, perr.Path)
}

func TestDetectIflow(t *testing.T) {
	state, err := DetectIflow(`{"baseUrl":"https://i","apiKey":"k","modelName":"m","theme":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, ToolState{BaseURL: "https://i", Credential: "k", Model: "m"}, state)
}

func TestMatchState(t *testing.T) {
	store := testStore(t)

	tests := []struct {
		name     string
		tool     string
		state    ToolState
		expected *Match
	}{
		{
			name:     "claude named token, trailing slash ignored",
			tool:     config.ToolClaude,
			state:    ToolState{BaseURL: "https://alpha.example", Credential: "a2"},
			expected: &Match{Site: "alpha", CredentialName: "alt"},
		},
		{
			name:  "claude unknown token",
			tool:  config.ToolClaude,
			state: ToolState{BaseURL: "https://alpha.example", Credential: "zz"},
		},
		{
			name:     "codex single key",
			tool:     config.ToolCodex,
			state:    ToolState{BaseURL: "https://alpha.example/v1", Credential: "sk-a", Provider: "alpha"},
			expected: &Match{Site: "alpha", CredentialName: models.DefaultAPIKeyName},
		},
		{
			name:  "codex wrong provider",
			tool:  config.ToolCodex,
			state: ToolState{BaseURL: "https://alpha.example/v1", Credential: "sk-a", Provider: "other"},
		},
		{
			name:     "iflow",
			tool:     config.ToolIflow,
			state:    ToolState{BaseURL: "https://beta.example", Credential: "ik-b"},
			expected: &Match{Site: "beta"},
		},
		{
			name: "nothing detected",
			tool: config.ToolIflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchState(store, tt.tool, tt.state)
			assert.Equal(t, tt.expected != nil, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestReconcileAndApply(t *testing.T) {
	dir := t.TempDir()
	paths := config.ResolvePaths(dir, func(string) string { return "" })
	store := testStore(t)

	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	write(paths.ClaudeSettings, `{"env":{"ANTHROPIC_BASE_URL":"https://alpha.example/","ANTHROPIC_AUTH_TOKEN":"a1"}}`)
	write(paths.IflowSettings, `{"baseUrl":"https://unknown","apiKey":"x"}`)
	write(paths.CodexAuth, `{`)

	store.CurrentIflowConfig = &models.ActiveSelection{Site: "beta", APIKey: "ik-b"}

	reports := Reconcile(paths, store, []string{config.ToolClaude, config.ToolCodex, config.ToolIflow})
	require.Len(t, reports, 3)

	claude, codex, iflow := reports[0], reports[1], reports[2]
	require.NoError(t, claude.Err)
	assert.Equal(t, &Match{Site: "alpha", CredentialName: "main"}, claude.Match)
	assert.False(t, claude.InSync())

	var perr *models.ParseError
	require.True(t, errors.As(codex.Err, &perr))
	assert.Equal(t, paths.CodexAuth, perr.Path)

	assert.Nil(t, iflow.Match)
	assert.False(t, iflow.InSync())

	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	assert.Equal(t, 1, Apply(store, reports, now))
	require.NotNil(t, store.CurrentConfig)
	assert.Equal(t, "a1", store.CurrentConfig.Token)
	assert.Equal(t, "main", store.CurrentConfig.TokenName)
	assert.Equal(t, "2025-02-03T04:05:06Z", store.CurrentConfig.UpdatedAt)
	assert.Equal(t, "beta", store.CurrentIflowConfig.Site, "unmatched files leave the record alone")

	again := Reconcile(paths, store, []string{config.ToolClaude})
	assert.True(t, again[0].InSync())
}
