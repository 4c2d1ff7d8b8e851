package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"ccsw/config/merge"
	"ccsw/config/models"
	"ccsw/config/storage"

	log "github.com/sirupsen/logrus"
)

// Tool names
const (
	ToolClaude = "claude"
	ToolCodex  = "codex"
	ToolIflow  = "iflow"
)

// Picker asks the user to choose one of options and returns its index
type Picker func(title string, options []string) (int, error)

// SwitchOptions controls how a switch touches the file system
type SwitchOptions struct {
	// Backup keeps up to three copies of each file before it is replaced
	Backup bool
	// DryRun prints the merged files to Out and writes nothing
	DryRun bool
	Out    io.Writer
	Now    func() time.Time
}

// Switcher applies a site's blocks to the tool files and records the
// resulting selection in the store.
type Switcher struct {
	manager *Manager
	opts    SwitchOptions
	backups *storage.BackupManager
}

// NewSwitcher creates a Switcher writing to the files in m's paths
func NewSwitcher(m *Manager, opts SwitchOptions) *Switcher {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Switcher{manager: m, opts: opts}
	if opts.Backup {
		s.backups = storage.NewBackupManager(storage.DefaultBackupRetention)
	}
	return s
}

// UseClaude merges site's claude block into the Claude settings, using the
// token named tokenName (or picked, or the only one).
func (s *Switcher) UseClaude(siteKey, tokenName string, pick Picker) (*models.ActiveSelection, error) {
	site, err := s.loadSite(siteKey)
	if err != nil {
		return nil, err
	}
	if site.Claude == nil {
		return nil, missingBlock(siteKey, ToolClaude)
	}
	if err := s.manager.Validator().ValidateClaude(site.Claude); err != nil {
		return nil, withSite(err, siteKey)
	}

	entries := site.Claude.AuthToken.Entries(models.DefaultTokenName)
	c := choice{site: siteKey, tool: ToolClaude, field: "env." + models.EnvAuthToken, title: "选择 Token"}
	idx, err := c.resolve(names(entries), tokenName, pick)
	if err != nil {
		return nil, err
	}
	token := entries[idx]

	path := s.manager.Paths().ClaudeSettings
	existing, err := storage.ReadOptional(path)
	if err != nil {
		return nil, err
	}
	merged, err := merge.MergeClaudeSettings(existing, site.Claude, token.Value)
	if err != nil {
		return nil, annotate(err, siteKey, path)
	}
	if err := s.write(ToolClaude, siteKey, path, merged); err != nil {
		return nil, err
	}

	sel := &models.ActiveSelection{
		Site:      siteKey,
		SiteName:  site.DisplayName(siteKey),
		Token:     token.Value,
		TokenName: token.Name,
		BaseURL:   site.Claude.BaseURL,
		UpdatedAt: s.timestamp(),
	}
	return sel, s.record(ToolClaude, sel)
}

// UseCodex regenerates Codex config.toml for the chosen provider and writes
// auth.json with the chosen API key.
func (s *Switcher) UseCodex(siteKey, providerKey, keyName string, pick Picker) (*models.ActiveSelection, error) {
	site, err := s.loadSite(siteKey)
	if err != nil {
		return nil, err
	}
	block := site.Codex
	if block == nil {
		return nil, missingBlock(siteKey, ToolCodex)
	}
	if err := s.manager.Validator().ValidateCodex(block); err != nil {
		return nil, withSite(err, siteKey)
	}

	providers := block.ProviderKeys()
	c := choice{site: siteKey, tool: ToolCodex, field: models.CodexModelProvidersKey, title: "选择 Provider"}
	idx, err := c.resolve(providers, providerKey, pick)
	if err != nil {
		return nil, err
	}
	providerKey = providers[idx]
	provider, _ := block.Provider(providerKey)

	var apiKey models.CredentialEntry
	entries := block.APIKey.Entries(models.DefaultAPIKeyName)
	requiresKey := provider.RequiresOpenAIAuth == nil || *provider.RequiresOpenAIAuth
	if len(entries) > 0 || requiresKey || keyName != "" {
		c := choice{site: siteKey, tool: ToolCodex, field: models.CodexAPIKeyKey, title: "选择 API Key"}
		idx, err := c.resolve(names(entries), keyName, pick)
		if err != nil {
			return nil, err
		}
		apiKey = entries[idx]
	}

	paths := s.manager.Paths()
	existing, err := storage.ReadOptional(paths.CodexConfig)
	if err != nil {
		return nil, err
	}
	merged, err := merge.MergeCodexConfig(existing, block, providerKey)
	if err != nil {
		return nil, annotate(err, siteKey, paths.CodexConfig)
	}
	if err := s.write(ToolCodex, siteKey, paths.CodexConfig, merged); err != nil {
		return nil, err
	}

	if apiKey.Value != "" {
		auth, err := merge.CodexAuthJSON(apiKey.Value)
		if err != nil {
			return nil, annotate(err, siteKey, paths.CodexAuth)
		}
		if err := s.write(ToolCodex, siteKey, paths.CodexAuth, auth); err != nil {
			return nil, err
		}
	}

	model := block.Model
	if model == "" {
		model = models.DefaultCodexModel
	}
	sel := &models.ActiveSelection{
		Site:      siteKey,
		SiteName:  site.DisplayName(siteKey),
		APIKey:    apiKey.Value,
		TokenName: apiKey.Name,
		BaseURL:   provider.BaseURL,
		Model:     model,
		Provider:  providerKey,
		UpdatedAt: s.timestamp(),
	}
	return sel, s.record(ToolCodex, sel)
}

// UseIflow overlays site's iflow block onto the iFlow settings
func (s *Switcher) UseIflow(siteKey string) (*models.ActiveSelection, error) {
	site, err := s.loadSite(siteKey)
	if err != nil {
		return nil, err
	}
	if site.Iflow == nil {
		return nil, missingBlock(siteKey, ToolIflow)
	}
	if err := s.manager.Validator().ValidateIflow(site.Iflow); err != nil {
		return nil, withSite(err, siteKey)
	}

	path := s.manager.Paths().IflowSettings
	existing, err := storage.ReadOptional(path)
	if err != nil {
		return nil, err
	}
	merged, err := merge.MergeIflowSettings(existing, site.Iflow)
	if err != nil {
		return nil, annotate(err, siteKey, path)
	}
	if err := s.write(ToolIflow, siteKey, path, merged); err != nil {
		return nil, err
	}

	sel := &models.ActiveSelection{
		Site:      siteKey,
		SiteName:  site.DisplayName(siteKey),
		APIKey:    site.Iflow.APIKey,
		BaseURL:   site.Iflow.BaseURL,
		Model:     site.Iflow.ModelName,
		UpdatedAt: s.timestamp(),
	}
	return sel, s.record(ToolIflow, sel)
}

// Restore puts back the newest backup of every file tool owns and returns
// the backups used.
func (s *Switcher) Restore(tool string) ([]string, error) {
	targets, err := s.manager.Paths().Targets(tool)
	if err != nil {
		return nil, err
	}

	backups := s.backups
	if backups == nil {
		backups = storage.NewBackupManager(storage.DefaultBackupRetention)
	}

	var restored []string
	for _, target := range targets {
		list, err := backups.ListBackups(target)
		if err != nil {
			return restored, err
		}
		if len(list) == 0 {
			continue
		}
		if s.opts.DryRun {
			fmt.Fprintf(s.opts.Out, "would restore %s from %s\n", target, list[len(list)-1])
			restored = append(restored, list[len(list)-1])
			continue
		}
		used, err := backups.RestoreFromLatestBackup(target)
		if err != nil {
			return restored, err
		}
		log.WithFields(log.Fields{"tool": tool, "path": target, "backup": used}).Info("restored from backup")
		restored = append(restored, used)
	}
	if len(restored) == 0 {
		return nil, fmt.Errorf("no backups found for %s", tool)
	}
	return restored, nil
}

func (s *Switcher) loadSite(siteKey string) (*models.SiteEntry, error) {
	store, err := s.manager.Load()
	if err != nil {
		return nil, err
	}
	site, ok := store.Sites[siteKey]
	if !ok {
		return nil, &models.ValidationError{Site: siteKey, Field: "site", Reason: "does not exist"}
	}
	return site, nil
}

func (s *Switcher) write(tool, siteKey, path, content string) error {
	if s.opts.DryRun {
		_, err := fmt.Fprintf(s.opts.Out, "# %s\n%s", path, content)
		return err
	}

	backup, err := storage.AtomicFileUpdate(path, content, s.backups)
	if err != nil {
		return fmt.Errorf("failed to write %s settings: %w", tool, err)
	}
	entry := log.WithFields(log.Fields{"tool": tool, "site": siteKey, "path": path})
	if backup != "" {
		entry = entry.WithField("backup", backup)
	}
	entry.Debug("wrote settings")
	return nil
}

func (s *Switcher) record(tool string, sel *models.ActiveSelection) error {
	if s.opts.DryRun {
		return nil
	}
	if err := s.manager.SetActive(tool, sel); err != nil {
		return fmt.Errorf("settings written but the store was not updated: %w", err)
	}
	return nil
}

func (s *Switcher) timestamp() string {
	return s.opts.Now().UTC().Format(time.RFC3339)
}

// choice resolves one selection among named options
type choice struct {
	site  string
	tool  string
	field string
	title string
}

// resolve returns the index of name in options. Without a name, a single
// option is taken as is and several go to pick.
func (c choice) resolve(options []string, name string, pick Picker) (int, error) {
	if len(options) == 0 {
		return -1, &models.ValidationError{Site: c.site, Tool: c.tool, Field: c.field}
	}
	if name != "" {
		for i, o := range options {
			if o == name {
				return i, nil
			}
		}
		return -1, &models.ValidationError{
			Site:   c.site,
			Tool:   c.tool,
			Field:  c.field,
			Reason: fmt.Sprintf("has no entry named '%s' (available: %v)", name, options),
		}
	}
	if len(options) == 1 {
		return 0, nil
	}
	if pick == nil {
		return -1, &models.ValidationError{
			Site:   c.site,
			Tool:   c.tool,
			Field:  c.field,
			Reason: fmt.Sprintf("has several entries, name one of %v", options),
		}
	}

	idx, err := pick(c.title, options)
	if err != nil {
		return -1, err
	}
	if idx < 0 || idx >= len(options) {
		return -1, fmt.Errorf("selection %d out of range", idx)
	}
	return idx, nil
}

func names(entries []models.CredentialEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func missingBlock(site, tool string) error {
	return &models.ValidationError{Site: site, Tool: tool, Field: tool + " block", Reason: "is not configured"}
}

// withSite fills in the site of a ValidationError raised below the store
func withSite(err error, site string) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) && verr.Site == "" {
		verr.Site = site
	}
	return err
}

// annotate attaches the site and file path to merge errors
func annotate(err error, site, path string) error {
	var perr *models.ParseError
	if errors.As(err, &perr) && perr.Path == "" {
		perr.Path = path
	}
	return withSite(err, site)
}
