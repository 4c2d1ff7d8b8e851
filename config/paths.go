package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that relocate files
const (
	EnvStorePath     = "CCSW_STORE"
	EnvXDGConfigHome = "XDG_CONFIG_HOME"
	EnvClaudeDir     = "CLAUDE_CONFIG_DIR"
	EnvCodexHome     = "CODEX_HOME"
)

// PathsConfig locates the store and every tool file. It is passed to the
// components that need it instead of being resolved globally.
type PathsConfig struct {
	Store          string
	LegacyStore    string
	ClaudeSettings string
	CodexConfig    string
	CodexAuth      string
	IflowSettings  string
}

// DefaultPaths resolves paths from the environment and the home directory
func DefaultPaths() (PathsConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return PathsConfig{}, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return ResolvePaths(home, os.Getenv), nil
}

// ResolvePaths builds a PathsConfig rooted at home, reading overrides via getenv
func ResolvePaths(home string, getenv func(string) string) PathsConfig {
	claudeDir := getenv(EnvClaudeDir)
	if claudeDir == "" {
		claudeDir = filepath.Join(home, ".claude")
	}
	codexDir := getenv(EnvCodexHome)
	if codexDir == "" {
		codexDir = filepath.Join(home, ".codex")
	}

	store := getenv(EnvStorePath)
	if store == "" {
		xdg := getenv(EnvXDGConfigHome)
		if xdg == "" {
			xdg = filepath.Join(home, ".config")
		}
		store = filepath.Join(xdg, "ccsw", "api_configs.json")
	}

	return PathsConfig{
		Store:          store,
		LegacyStore:    filepath.Join(home, ".claude", "api_configs.json"),
		ClaudeSettings: filepath.Join(claudeDir, "settings.json"),
		CodexConfig:    filepath.Join(codexDir, "config.toml"),
		CodexAuth:      filepath.Join(codexDir, "auth.json"),
		IflowSettings:  filepath.Join(home, ".iflow", "settings.json"),
	}
}

// WithStore returns a copy using store as the profile store path
func (p PathsConfig) WithStore(store string) PathsConfig {
	if store != "" {
		p.Store = store
		p.LegacyStore = ""
	}
	return p
}

// Targets returns the files a tool's switch rewrites
func (p PathsConfig) Targets(tool string) ([]string, error) {
	switch tool {
	case ToolClaude:
		return []string{p.ClaudeSettings}, nil
	case ToolCodex:
		return []string{p.CodexConfig, p.CodexAuth}, nil
	case ToolIflow:
		return []string{p.IflowSettings}, nil
	}
	return nil, fmt.Errorf("unknown tool: %s", tool)
}
