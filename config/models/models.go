package models

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Store is the unified profile store file
type Store struct {
	Sites              map[string]*SiteEntry `json:"sites"`
	CurrentConfig      *ActiveSelection      `json:"currentConfig,omitempty"`
	CurrentCodexConfig *ActiveSelection      `json:"currentCodexConfig,omitempty"`
	CurrentIflowConfig *ActiveSelection      `json:"currentIflowConfig,omitempty"`
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{Sites: map[string]*SiteEntry{}}
}

// SiteEntry is one named credential profile serving one or more tools
type SiteEntry struct {
	Description string       `json:"description,omitempty"`
	Claude      *ClaudeBlock `json:"claude,omitempty"`
	Codex       *CodexBlock  `json:"codex,omitempty"`
	Iflow       *IflowBlock  `json:"iflow,omitempty"`
}

// HasAnyBlock reports whether the site serves at least one tool
func (s *SiteEntry) HasAnyBlock() bool {
	return s != nil && (s.Claude != nil || s.Codex != nil || s.Iflow != nil)
}

// DisplayName returns the description, or key when there is none
func (s *SiteEntry) DisplayName(key string) string {
	if s != nil && s.Description != "" {
		return s.Description
	}
	return key
}

// ActiveSelection records the last site/credential applied to a tool
type ActiveSelection struct {
	Site      string `json:"site"`
	SiteName  string `json:"siteName"`
	Token     string `json:"token,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
	TokenName string `json:"tokenName,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	Model     string `json:"model,omitempty"`
	Provider  string `json:"provider,omitempty"`
	UpdatedAt string `json:"updatedAt"`
}

// Secret returns whichever credential field is populated
func (a *ActiveSelection) Secret() string {
	if a.Token != "" {
		return a.Token
	}
	return a.APIKey
}

// Claude settings keys the switcher works with
const (
	EnvKey           = "env"
	EnvBaseURL       = "ANTHROPIC_BASE_URL"
	EnvAuthToken     = "ANTHROPIC_AUTH_TOKEN"
	EnvAuthKey       = "ANTHROPIC_AUTH_KEY"
	EnvAPIKey        = "ANTHROPIC_API_KEY"
	ClaudeModelKey   = "model"
	claudeBaseURLKey = EnvKey + "." + EnvBaseURL
	claudeTokenKey   = EnvKey + "." + EnvAuthToken
)

// ClaudeBlock is a site's Claude settings fragment. The whole object is kept
// so keys other than env survive a load/save and reach the merged settings.
type ClaudeBlock struct {
	BaseURL   string
	AuthToken Credential
	raw       []byte
}

// NewClaudeBlock builds a block holding only the env credentials
func NewClaudeBlock(baseURL string, token Credential) *ClaudeBlock {
	return &ClaudeBlock{BaseURL: baseURL, AuthToken: token}
}

// Raw returns the block's JSON with BaseURL and AuthToken applied
func (b *ClaudeBlock) Raw() ([]byte, error) {
	raw := b.raw
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	raw = append([]byte(nil), raw...)

	var err error
	if b.BaseURL != "" {
		raw, err = sjson.SetBytes(raw, claudeBaseURLKey, b.BaseURL)
	} else {
		raw, err = sjson.DeleteBytes(raw, claudeBaseURLKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", EnvBaseURL, err)
	}

	if b.AuthToken.IsNamed() || !b.AuthToken.IsEmpty() {
		token, err := b.AuthToken.MarshalJSON()
		if err != nil {
			return nil, err
		}
		raw, err = sjson.SetRawBytes(raw, claudeTokenKey, token)
		if err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", EnvAuthToken, err)
		}
	} else if raw, err = sjson.DeleteBytes(raw, claudeTokenKey); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", EnvAuthToken, err)
	}
	return raw, nil
}

// MarshalJSON implements json.Marshaler
func (b *ClaudeBlock) MarshalJSON() ([]byte, error) {
	return b.Raw()
}

// UnmarshalJSON implements json.Unmarshaler
func (b *ClaudeBlock) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid claude block")
	}
	result := gjson.ParseBytes(data)
	if !result.IsObject() {
		return fmt.Errorf("claude block must be an object")
	}

	b.raw = append([]byte(nil), data...)
	b.BaseURL = result.Get(claudeBaseURLKey).String()
	b.AuthToken = Credential{}
	if token := result.Get(claudeTokenKey); token.Exists() {
		if err := b.AuthToken.UnmarshalJSON([]byte(token.Raw)); err != nil {
			return fmt.Errorf("claude %s: %w", EnvAuthToken, err)
		}
	}
	return nil
}

// Codex block keys with dedicated handling
const (
	CodexModelKey          = "model"
	CodexModelProviderKey  = "model_provider"
	CodexAPIKeyKey         = "OPENAI_API_KEY"
	CodexModelProvidersKey = "model_providers"
)

// CodexBlock is a site's Codex configuration
type CodexBlock struct {
	Model     string
	APIKey    Credential
	Providers []NamedProvider
	// Extra holds every other top-level key in document order
	Extra Fields
}

// NamedProvider pairs a provider key with its table
type NamedProvider struct {
	Key    string
	Config ProviderConfig
}

// Provider looks up a provider by key
func (b *CodexBlock) Provider(key string) (*ProviderConfig, bool) {
	for i := range b.Providers {
		if b.Providers[i].Key == key {
			return &b.Providers[i].Config, true
		}
	}
	return nil, false
}

// ProviderKeys returns provider keys in document order
func (b *CodexBlock) ProviderKeys() []string {
	keys := make([]string, 0, len(b.Providers))
	for _, p := range b.Providers {
		keys = append(keys, p.Key)
	}
	return keys
}

// MarshalJSON implements json.Marshaler
func (b *CodexBlock) MarshalJSON() ([]byte, error) {
	out := Fields{}
	if b.Model != "" {
		out = append(out, Field{Key: CodexModelKey, Value: b.Model})
	}
	if b.APIKey.IsNamed() || !b.APIKey.IsEmpty() {
		out = append(out, Field{Key: CodexAPIKeyKey, Value: b.APIKey})
	}
	out = append(out, b.Extra...)
	if len(b.Providers) > 0 {
		providers := make(Fields, 0, len(b.Providers))
		for _, p := range b.Providers {
			providers = append(providers, Field{Key: p.Key, Value: p.Config})
		}
		out = append(out, Field{Key: CodexModelProvidersKey, Value: providers})
	}
	return out.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler
func (b *CodexBlock) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid codex block")
	}
	result := gjson.ParseBytes(data)
	if !result.IsObject() {
		return fmt.Errorf("codex block must be an object")
	}

	*b = CodexBlock{}
	var err error
	result.ForEach(func(key, value gjson.Result) bool {
		switch k := key.String(); k {
		case CodexModelKey:
			b.Model = value.String()
		case CodexAPIKeyKey:
			if e := b.APIKey.UnmarshalJSON([]byte(value.Raw)); e != nil {
				err = fmt.Errorf("codex %s: %w", CodexAPIKeyKey, e)
			}
		case CodexModelProvidersKey:
			if !value.IsObject() {
				err = fmt.Errorf("codex %s must be an object", CodexModelProvidersKey)
				break
			}
			value.ForEach(func(pk, pv gjson.Result) bool {
				var cfg ProviderConfig
				if e := cfg.UnmarshalJSON([]byte(pv.Raw)); e != nil {
					err = fmt.Errorf("codex provider %q: %w", pk.String(), e)
					return false
				}
				b.Providers = append(b.Providers, NamedProvider{Key: pk.String(), Config: cfg})
				return true
			})
		default:
			b.Extra = append(b.Extra, Field{Key: k, Value: DecodeValue(value)})
		}
		return err == nil
	})
	return err
}

// Provider table keys with dedicated handling
const (
	ProviderNameKey       = "name"
	ProviderBaseURLKey    = "base_url"
	ProviderWireAPIKey    = "wire_api"
	ProviderRequiresAuth  = "requires_openai_auth"
	DefaultWireAPI        = "responses"
	DefaultCodexModel     = "gpt-5"
	DefaultReasoningLevel = "high"
)

// ProviderConfig is one [model_providers.<key>] table
type ProviderConfig struct {
	Name               string
	BaseURL            string
	WireAPI            string
	RequiresOpenAIAuth *bool
	Extra              Fields
}

// MarshalJSON implements json.Marshaler
func (p ProviderConfig) MarshalJSON() ([]byte, error) {
	out := Fields{}
	if p.Name != "" {
		out = append(out, Field{Key: ProviderNameKey, Value: p.Name})
	}
	out = append(out, Field{Key: ProviderBaseURLKey, Value: p.BaseURL})
	if p.WireAPI != "" {
		out = append(out, Field{Key: ProviderWireAPIKey, Value: p.WireAPI})
	}
	if p.RequiresOpenAIAuth != nil {
		out = append(out, Field{Key: ProviderRequiresAuth, Value: *p.RequiresOpenAIAuth})
	}
	out = append(out, p.Extra...)
	return out.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler
func (p *ProviderConfig) UnmarshalJSON(data []byte) error {
	result := gjson.ParseBytes(data)
	if !result.IsObject() {
		return fmt.Errorf("provider must be an object")
	}

	*p = ProviderConfig{}
	result.ForEach(func(key, value gjson.Result) bool {
		switch k := key.String(); k {
		case ProviderNameKey:
			p.Name = value.String()
		case ProviderBaseURLKey:
			p.BaseURL = value.String()
		case ProviderWireAPIKey:
			p.WireAPI = value.String()
		case ProviderRequiresAuth:
			v := value.Bool()
			p.RequiresOpenAIAuth = &v
		default:
			p.Extra = append(p.Extra, Field{Key: k, Value: DecodeValue(value)})
		}
		return true
	})
	return nil
}

// IflowBlock is a site's iFlow configuration
type IflowBlock struct {
	BaseURL   string `json:"baseUrl"`
	APIKey    string `json:"apiKey"`
	ModelName string `json:"modelName,omitempty"`
}

// compile-time interface checks
var (
	_ json.Marshaler   = (*ClaudeBlock)(nil)
	_ json.Unmarshaler = (*ClaudeBlock)(nil)
	_ json.Marshaler   = (*CodexBlock)(nil)
	_ json.Unmarshaler = (*CodexBlock)(nil)
	_ json.Marshaler   = ProviderConfig{}
	_ json.Unmarshaler = (*ProviderConfig)(nil)
	_ json.Marshaler   = Credential{}
)
