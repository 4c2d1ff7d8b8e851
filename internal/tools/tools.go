// Package tools describes the CLI tools whose settings ccsw rewrites.
package tools

import (
	"errors"
	"sort"

	"ccsw/config"
	"ccsw/config/models"
)

// Tool defines what the commands need to know about one supported tool
type Tool interface {
	// Name returns the tool's key ("claude", "codex", "iflow")
	Name() string
	// DisplayName returns the human-readable name
	DisplayName() string
	// Serves reports whether a site has a block for this tool
	Serves(site *models.SiteEntry) bool
	// Credentials returns a site's credentials for this tool, normalized
	Credentials(site *models.SiteEntry) []models.CredentialEntry
	// Targets returns the files a switch rewrites
	Targets(paths config.PathsConfig) []string
}

var registry = make(map[string]Tool)

// Register registers a tool under its name
func Register(tool Tool) {
	registry[tool.Name()] = tool
}

// Get returns a tool by name
func Get(name string) (Tool, error) {
	tool, ok := registry[name]
	if !ok {
		return nil, errors.New("unknown tool: " + name)
	}
	return tool, nil
}

// List returns the registered tool names in display order
func List() []string {
	order := map[string]int{config.ToolClaude: 0, config.ToolCodex: 1, config.ToolIflow: 2}
	list := make([]string, 0, len(registry))
	for name := range registry {
		list = append(list, name)
	}
	sort.Slice(list, func(i, j int) bool {
		oi, iok := order[list[i]]
		oj, jok := order[list[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return list[i] < list[j]
	})
	return list
}

// Served returns the names of the tools a site has blocks for
func Served(site *models.SiteEntry) []string {
	var out []string
	for _, name := range List() {
		if registry[name].Serves(site) {
			out = append(out, name)
		}
	}
	return out
}

type claudeTool struct{}

func (claudeTool) Name() string        { return config.ToolClaude }
func (claudeTool) DisplayName() string { return "Claude Code" }

func (claudeTool) Serves(site *models.SiteEntry) bool {
	return site != nil && site.Claude != nil
}

func (t claudeTool) Credentials(site *models.SiteEntry) []models.CredentialEntry {
	if !t.Serves(site) {
		return nil
	}
	return site.Claude.AuthToken.Entries(models.DefaultTokenName)
}

func (claudeTool) Targets(paths config.PathsConfig) []string {
	return []string{paths.ClaudeSettings}
}

type codexTool struct{}

func (codexTool) Name() string        { return config.ToolCodex }
func (codexTool) DisplayName() string { return "Codex" }

func (codexTool) Serves(site *models.SiteEntry) bool {
	return site != nil && site.Codex != nil
}

func (t codexTool) Credentials(site *models.SiteEntry) []models.CredentialEntry {
	if !t.Serves(site) {
		return nil
	}
	return site.Codex.APIKey.Entries(models.DefaultAPIKeyName)
}

func (codexTool) Targets(paths config.PathsConfig) []string {
	return []string{paths.CodexConfig, paths.CodexAuth}
}

type iflowTool struct{}

func (iflowTool) Name() string        { return config.ToolIflow }
func (iflowTool) DisplayName() string { return "iFlow" }

func (iflowTool) Serves(site *models.SiteEntry) bool {
	return site != nil && site.Iflow != nil
}

func (t iflowTool) Credentials(site *models.SiteEntry) []models.CredentialEntry {
	if !t.Serves(site) || site.Iflow.APIKey == "" {
		return nil
	}
	return []models.CredentialEntry{{Name: models.DefaultAPIKeyName, Value: site.Iflow.APIKey}}
}

func (iflowTool) Targets(paths config.PathsConfig) []string {
	return []string{paths.IflowSettings}
}

func init() {
	Register(claudeTool{})
	Register(codexTool{})
	Register(iflowTool{})
}
