// Package sync reads the tool files back and reconciles them with the store.
package sync

import (
	"fmt"
	"strings"

	"ccsw/config/merge"
	"ccsw/config/models"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
)

// ToolState is what a tool file currently points at
type ToolState struct {
	BaseURL    string
	Credential string
	Model      string
	Provider   string
}

// IsZero reports whether nothing was detected
func (s ToolState) IsZero() bool {
	return s == ToolState{}
}

// claudeCredentialKeys in order of precedence
var claudeCredentialKeys = []string{models.EnvAuthToken, models.EnvAuthKey, models.EnvAPIKey}

// DetectClaude extracts the active endpoint and credential from Claude settings JSON
func DetectClaude(content string) (ToolState, error) {
	if strings.TrimSpace(content) == "" {
		return ToolState{}, nil
	}
	if !gjson.Valid(content) {
		return ToolState{}, &models.ParseError{Err: fmt.Errorf("invalid JSON")}
	}

	env := gjson.Get(content, models.EnvKey)
	state := ToolState{
		BaseURL: env.Get(gjson.Escape(models.EnvBaseURL)).String(),
		Model:   gjson.Get(content, models.ClaudeModelKey).String(),
	}
	for _, key := range claudeCredentialKeys {
		if v := env.Get(gjson.Escape(key)).String(); v != "" {
			state.Credential = v
			break
		}
	}
	return state, nil
}

// DetectCodex extracts the active provider from config.toml and the key
// from auth.json. A key left in config.toml is used when auth.json has none.
func DetectCodex(configContent, authContent string) (ToolState, error) {
	state, err := detectCodexConfig(configContent)
	if err != nil {
		return ToolState{}, err
	}
	return detectCodexAuth(state, authContent)
}

func detectCodexConfig(content string) (ToolState, error) {
	var state ToolState
	if strings.TrimSpace(content) == "" {
		return state, nil
	}

	var cfg map[string]any
	if err := toml.Unmarshal([]byte(content), &cfg); err != nil {
		return ToolState{}, &models.ParseError{Err: fmt.Errorf("invalid TOML: %w", err)}
	}
	state.Model, _ = cfg[models.CodexModelKey].(string)
	state.Provider, _ = cfg[models.CodexModelProviderKey].(string)
	state.Credential, _ = cfg[models.CodexAPIKeyKey].(string)

	if providers, ok := cfg[models.CodexModelProvidersKey].(map[string]any); ok {
		if p, ok := providers[state.Provider].(map[string]any); ok {
			state.BaseURL, _ = p[models.ProviderBaseURLKey].(string)
		}
	}
	return state, nil
}

func detectCodexAuth(state ToolState, content string) (ToolState, error) {
	if strings.TrimSpace(content) == "" {
		return state, nil
	}
	if !gjson.Valid(content) {
		return ToolState{}, &models.ParseError{Err: fmt.Errorf("invalid auth.json")}
	}
	if key := gjson.Get(content, models.CodexAPIKeyKey).String(); key != "" {
		state.Credential = key
	}
	return state, nil
}

// DetectIflow extracts the active endpoint from iFlow settings JSON
func DetectIflow(content string) (ToolState, error) {
	if strings.TrimSpace(content) == "" {
		return ToolState{}, nil
	}
	if !gjson.Valid(content) {
		return ToolState{}, &models.ParseError{Err: fmt.Errorf("invalid JSON")}
	}

	values := gjson.GetMany(content, merge.IflowBaseURLKey, merge.IflowAPIKeyKey, merge.IflowModelNameKey)
	return ToolState{
		BaseURL:    values[0].String(),
		Credential: values[1].String(),
		Model:      values[2].String(),
	}, nil
}
