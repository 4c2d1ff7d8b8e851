package sync

import (
	"errors"
	"time"

	"ccsw/config"
	"ccsw/config/models"
	"ccsw/config/storage"
	"ccsw/internal/utils"

	log "github.com/sirupsen/logrus"
)

// Match identifies the site and credential a tool file corresponds to
type Match struct {
	Site           string
	CredentialName string
}

// Report is the reconciliation outcome for one tool
type Report struct {
	Tool     string
	State    ToolState
	Match    *Match
	Recorded *models.ActiveSelection
	Err      error
}

// InSync reports whether the store already records what the file contains
func (r Report) InSync() bool {
	if r.Match == nil {
		return r.Recorded == nil && r.State.IsZero()
	}
	return r.Recorded != nil && r.Recorded.Site == r.Match.Site && r.Recorded.Secret() == r.State.Credential
}

// MatchState finds the first site, in key order, whose block for tool
// produces state.
func MatchState(store *models.Store, tool string, state ToolState) (*Match, bool) {
	if state.IsZero() {
		return nil, false
	}
	for _, key := range config.SiteKeys(store) {
		site := store.Sites[key]
		if name, ok := matchSite(site, tool, state); ok {
			return &Match{Site: key, CredentialName: name}, true
		}
	}
	return nil, false
}

func matchSite(site *models.SiteEntry, tool string, state ToolState) (string, bool) {
	switch tool {
	case config.ToolClaude:
		if site.Claude == nil || !utils.SameURL(site.Claude.BaseURL, state.BaseURL) {
			return "", false
		}
		return site.Claude.AuthToken.NameOf(models.DefaultTokenName, state.Credential)
	case config.ToolCodex:
		if site.Codex == nil {
			return "", false
		}
		p, ok := site.Codex.Provider(state.Provider)
		if !ok || !utils.SameURL(p.BaseURL, state.BaseURL) {
			return "", false
		}
		if state.Credential == "" && site.Codex.APIKey.IsEmpty() {
			return "", true
		}
		return site.Codex.APIKey.NameOf(models.DefaultAPIKeyName, state.Credential)
	case config.ToolIflow:
		if site.Iflow == nil || !utils.SameURL(site.Iflow.BaseURL, state.BaseURL) || site.Iflow.APIKey != state.Credential {
			return "", false
		}
		return "", true
	}
	return "", false
}

// Detect reads a tool's files and returns what they point at
func Detect(paths config.PathsConfig, tool string) (ToolState, error) {
	switch tool {
	case config.ToolClaude:
		content, err := storage.ReadOptional(paths.ClaudeSettings)
		if err != nil {
			return ToolState{}, err
		}
		state, err := DetectClaude(content)
		return state, withPath(err, paths.ClaudeSettings)
	case config.ToolCodex:
		cfg, err := storage.ReadOptional(paths.CodexConfig)
		if err != nil {
			return ToolState{}, err
		}
		state, err := detectCodexConfig(cfg)
		if err != nil {
			return ToolState{}, withPath(err, paths.CodexConfig)
		}
		auth, err := storage.ReadOptional(paths.CodexAuth)
		if err != nil {
			return ToolState{}, err
		}
		state, err = detectCodexAuth(state, auth)
		return state, withPath(err, paths.CodexAuth)
	case config.ToolIflow:
		content, err := storage.ReadOptional(paths.IflowSettings)
		if err != nil {
			return ToolState{}, err
		}
		state, err := DetectIflow(content)
		return state, withPath(err, paths.IflowSettings)
	}
	_, err := paths.Targets(tool)
	return ToolState{}, err
}

func withPath(err error, path string) error {
	var perr *models.ParseError
	if errors.As(err, &perr) && perr.Path == "" {
		perr.Path = path
	}
	return err
}

// Reconcile compares every tool's files with the store's recorded selections
func Reconcile(paths config.PathsConfig, store *models.Store, tools []string) []Report {
	reports := make([]Report, 0, len(tools))
	for _, tool := range tools {
		r := Report{Tool: tool, Recorded: config.Active(store, tool)}
		r.State, r.Err = Detect(paths, tool)
		if r.Err == nil {
			r.Match, _ = MatchState(store, tool, r.State)
		}
		log.WithFields(log.Fields{"tool": tool, "in_sync": r.InSync()}).Debug("reconciled")
		reports = append(reports, r)
	}
	return reports
}

// Apply records every matched, out-of-sync report as the tool's active
// selection. It returns the number of selections changed.
func Apply(store *models.Store, reports []Report, now time.Time) int {
	changed := 0
	for _, r := range reports {
		if r.Err != nil || r.Match == nil || r.InSync() {
			continue
		}
		site := store.Sites[r.Match.Site]
		sel := &models.ActiveSelection{
			Site:      r.Match.Site,
			SiteName:  site.DisplayName(r.Match.Site),
			TokenName: r.Match.CredentialName,
			BaseURL:   r.State.BaseURL,
			Model:     r.State.Model,
			Provider:  r.State.Provider,
			UpdatedAt: now.UTC().Format(time.RFC3339),
		}
		if r.Tool == config.ToolClaude {
			sel.Token = r.State.Credential
		} else {
			sel.APIKey = r.State.Credential
		}
		if err := config.SetActiveIn(store, r.Tool, sel); err != nil {
			continue
		}
		changed++
	}
	return changed
}
