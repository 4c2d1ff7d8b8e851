package cmd

import (
	"errors"
	"fmt"
	"strings"

	"ccsw/config/models"
	"ccsw/internal/tools"
	"github.com/spf13/cobra"
)

type addOptions struct {
	description string

	claudeURL    string
	claudeTokens []string

	codexModel    string
	codexProvider string
	codexURL      string
	codexKeys     []string

	iflowURL   string
	iflowKey   string
	iflowModel string
}

func newAddCmd() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add <site>",
		Short: "添加或更新站点",
		Long: `添加一个站点，或更新已有站点中由参数指定的部分

--claude-token 和 --codex-key 可以重复使用，格式为 name=value；
只有一个且不带名称时按单个凭据保存。`,
		Example: `  ccsw add duck --claude-url https://api.duck.dev --claude-token main=sk-xxx --claude-token spare=sk-yyy
  ccsw add duck --codex-provider duck --codex-url https://api.duck.dev/v1 --codex-key sk-zzz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			manager, err := newManager(cmd)
			if err != nil {
				return err
			}

			store, err := manager.LoadOrEmpty()
			if err != nil {
				return err
			}
			entry := &models.SiteEntry{}
			existing, updating := store.Sites[key]
			if updating {
				copied := *existing
				entry = &copied
			}

			if err := opts.apply(key, entry, cmd); err != nil {
				return err
			}
			if err := manager.AddSite(key, entry); err != nil {
				return err
			}

			if updating {
				printSuccess(stderr(cmd), "已更新站点 %s", key)
			} else {
				printSuccess(stderr(cmd), "已添加站点 %s", key)
			}
			fmt.Fprintf(stderr(cmd), "  支持: %s\n", strings.Join(tools.Served(entry), ", "))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.description, "description", "d", "", "站点描述")
	f.StringVar(&opts.claudeURL, "claude-url", "", "Claude Code 的 ANTHROPIC_BASE_URL")
	f.StringArrayVar(&opts.claudeTokens, "claude-token", nil, "Claude Code token (可重复, name=value)")
	f.StringVar(&opts.codexModel, "codex-model", "", "Codex 模型")
	f.StringVar(&opts.codexProvider, "codex-provider", "", "Codex provider 名称 (默认为站点名)")
	f.StringVar(&opts.codexURL, "codex-url", "", "Codex provider 的 base_url")
	f.StringArrayVar(&opts.codexKeys, "codex-key", nil, "Codex API key (可重复, name=value)")
	f.StringVar(&opts.iflowURL, "iflow-url", "", "iFlow 的 baseUrl")
	f.StringVar(&opts.iflowKey, "iflow-key", "", "iFlow 的 apiKey")
	f.StringVar(&opts.iflowModel, "iflow-model", "", "iFlow 的 modelName")
	return cmd
}

// apply writes the blocks named by the changed flags into entry
func (o *addOptions) apply(key string, entry *models.SiteEntry, cmd *cobra.Command) error {
	changed := cmd.Flags().Changed

	if changed("description") {
		entry.Description = o.description
	}

	if changed("claude-url") || changed("claude-token") {
		block := models.NewClaudeBlock("", models.Credential{})
		if entry.Claude != nil {
			copied := *entry.Claude
			block = &copied
		}
		if changed("claude-url") {
			block.BaseURL = o.claudeURL
		}
		if changed("claude-token") {
			cred, err := parseCredentials(o.claudeTokens)
			if err != nil {
				return fmt.Errorf("--claude-token: %w", err)
			}
			block.AuthToken = cred
		}
		entry.Claude = block
	}

	if changed("codex-model") || changed("codex-provider") || changed("codex-url") || changed("codex-key") {
		block := &models.CodexBlock{}
		if entry.Codex != nil {
			copied := *entry.Codex
			copied.Providers = append([]models.NamedProvider(nil), entry.Codex.Providers...)
			block = &copied
		}
		if changed("codex-model") {
			block.Model = o.codexModel
		}
		if changed("codex-key") {
			cred, err := parseCredentials(o.codexKeys)
			if err != nil {
				return fmt.Errorf("--codex-key: %w", err)
			}
			block.APIKey = cred
		}
		if changed("codex-url") {
			providerKey := o.codexProvider
			if providerKey == "" {
				providerKey = key
			}
			upsertProvider(block, providerKey, o.codexURL)
		} else if changed("codex-provider") {
			if _, ok := block.Provider(o.codexProvider); !ok {
				return errors.New("--codex-provider needs --codex-url for a new provider")
			}
		}
		entry.Codex = block
	}

	if changed("iflow-url") || changed("iflow-key") || changed("iflow-model") {
		block := &models.IflowBlock{}
		if entry.Iflow != nil {
			copied := *entry.Iflow
			block = &copied
		}
		if changed("iflow-url") {
			block.BaseURL = o.iflowURL
		}
		if changed("iflow-key") {
			block.APIKey = o.iflowKey
		}
		if changed("iflow-model") {
			block.ModelName = o.iflowModel
		}
		entry.Iflow = block
	}
	return nil
}

func upsertProvider(block *models.CodexBlock, key, baseURL string) {
	if p, ok := block.Provider(key); ok {
		p.BaseURL = baseURL
		return
	}
	block.Providers = append(block.Providers, models.NamedProvider{
		Key:    key,
		Config: models.ProviderConfig{Name: key, BaseURL: baseURL},
	})
}

// parseCredentials turns flag values into a credential. A lone value with no
// name is stored as a single credential; anything else needs name=value.
func parseCredentials(values []string) (models.Credential, error) {
	if len(values) == 1 {
		if name, value, ok := strings.Cut(values[0], "="); !ok || name == "" || value == "" {
			return models.SingleCredential(values[0]), nil
		}
	}

	entries := make([]models.CredentialEntry, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" || value == "" {
			return models.Credential{}, fmt.Errorf("expected name=value, got %q", v)
		}
		if seen[name] {
			return models.Credential{}, fmt.Errorf("duplicate name %q", name)
		}
		seen[name] = true
		entries = append(entries, models.CredentialEntry{Name: name, Value: value})
	}
	return models.NamedCredential(entries...), nil
}
