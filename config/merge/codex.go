package merge

import (
	"fmt"
	"regexp"
	"strings"

	"ccsw/config/models"

	"github.com/tidwall/sjson"
)

const toolCodex = "codex"

// Top-level keys the merger always rewrites
const (
	keyReasoningEffort        = "model_reasoning_effort"
	keyDisableResponseStorage = "disable_response_storage"
)

var alwaysManagedKeys = []string{
	models.CodexModelKey,
	models.CodexModelProviderKey,
	keyReasoningEffort,
	keyDisableResponseStorage,
	models.CodexAPIKeyKey,
}

// requiredDefaults are emitted when neither the block nor the kept lines set them
var requiredDefaults = []struct {
	key   string
	value string
}{
	{keyReasoningEffort, formatTomlString(models.DefaultReasoningLevel)},
	{keyDisableResponseStorage, "true"},
}

var (
	headerPattern = regexp.MustCompile(`^\s*(\[\[?)\s*([^\[\]]*?)\s*(\]\]?)\s*(#.*)?$`)
	keyPattern    = regexp.MustCompile(`^\s*("(?:[^"\\]|\\.)*"|'[^']*'|[A-Za-z0-9_.\-]+)\s*=`)
)

type scanState int

const (
	stateTopLevel scanState = iota
	stateModelProviders
	stateOtherSection
)

// scanResult is what survives of an existing config.toml
type scanResult struct {
	topLevel []string
	sections []string
}

// MergeCodexConfig regenerates Codex config.toml text from existing content,
// a site's codex block and the chosen provider key.
//
// Unknown top-level lines and sections other than model_providers are kept
// verbatim. Lines for managed keys and every model_providers table are
// always regenerated. The function never fails on malformed existing text.
func MergeCodexConfig(existing string, block *models.CodexBlock, providerKey string) (string, error) {
	provider, providerKey, err := resolveProvider(block, providerKey)
	if err != nil {
		return "", err
	}

	managed := make(map[string]bool, len(alwaysManagedKeys)+len(block.Extra))
	for _, k := range alwaysManagedKeys {
		managed[k] = true
	}
	for _, f := range block.Extra {
		managed[f.Key] = true
	}

	scan := scanCodexConfig(existing, managed)

	var out []string
	model := block.Model
	if model == "" {
		model = models.DefaultCodexModel
	}
	out = append(out,
		"model = "+formatTomlString(model),
		"model_provider = "+formatTomlString(providerKey),
	)

	emitted := make(map[string]bool)
	for _, f := range block.Extra {
		switch f.Key {
		case models.CodexAPIKeyKey, models.CodexModelProvidersKey, models.CodexModelKey, models.CodexModelProviderKey:
			continue
		}
		value, ok := formatTomlValue(f.Value)
		if !ok {
			continue
		}
		out = append(out, formatTomlKey(f.Key)+" = "+value)
		emitted[f.Key] = true
	}

	keptKeys := topLevelKeys(scan.topLevel)
	for _, d := range requiredDefaults {
		if emitted[d.key] || keptKeys[d.key] {
			continue
		}
		out = append(out, d.key+" = "+d.value)
	}

	out = append(out, scan.topLevel...)
	out = append(out, "")
	out = append(out, providerTable(providerKey, provider)...)

	if len(scan.sections) > 0 {
		out = append(out, "")
		out = append(out, scan.sections...)
	}

	return strings.Join(out, "\n") + "\n", nil
}

// resolveProvider picks the provider table to emit
func resolveProvider(block *models.CodexBlock, providerKey string) (*models.ProviderConfig, string, error) {
	if block == nil {
		return nil, "", &models.ValidationError{Tool: toolCodex, Field: "codex block"}
	}
	if len(block.Providers) == 0 {
		return nil, "", &models.ValidationError{Tool: toolCodex, Field: models.CodexModelProvidersKey}
	}
	if providerKey == "" {
		if len(block.Providers) > 1 {
			return nil, "", &models.ValidationError{
				Tool:   toolCodex,
				Field:  models.CodexModelProviderKey,
				Reason: fmt.Sprintf("must be chosen from %v", block.ProviderKeys()),
			}
		}
		providerKey = block.Providers[0].Key
	}

	provider, ok := block.Provider(providerKey)
	if !ok {
		return nil, "", &models.ValidationError{
			Tool:   toolCodex,
			Field:  "model_providers." + providerKey,
			Reason: "does not exist",
		}
	}
	if provider.BaseURL == "" {
		return nil, "", &models.ValidationError{
			Tool:  toolCodex,
			Field: "model_providers." + providerKey + "." + models.ProviderBaseURLKey,
		}
	}
	return provider, providerKey, nil
}

// providerTable renders the single [model_providers.<key>] table
func providerTable(key string, p *models.ProviderConfig) []string {
	name := p.Name
	if name == "" {
		name = key
	}
	wireAPI := p.WireAPI
	if wireAPI == "" {
		wireAPI = models.DefaultWireAPI
	}
	requiresAuth := true
	if p.RequiresOpenAIAuth != nil {
		requiresAuth = *p.RequiresOpenAIAuth
	}

	lines := []string{
		"[" + models.CodexModelProvidersKey + "." + formatTomlKey(key) + "]",
		"name = " + formatTomlString(name),
		"base_url = " + formatTomlString(p.BaseURL),
		"wire_api = " + formatTomlString(wireAPI),
		fmt.Sprintf("requires_openai_auth = %t", requiresAuth),
	}
	for _, f := range p.Extra {
		switch f.Key {
		case models.ProviderNameKey, models.ProviderBaseURLKey, models.ProviderWireAPIKey, models.ProviderRequiresAuth:
			continue
		}
		if value, ok := formatTomlValue(f.Value); ok {
			lines = append(lines, formatTomlKey(f.Key)+" = "+value)
		}
	}
	return lines
}

// scanCodexConfig classifies existing lines into kept top-level lines and
// kept section blocks.
func scanCodexConfig(existing string, managed map[string]bool) scanResult {
	var res scanResult
	state := stateTopLevel

	// cont is non-nil while a multi-line value is still open; keepCont says
	// whether its lines follow the key line into the output.
	var cont *valueScanner
	keepCont := false

	content := strings.ReplaceAll(existing, "\r\n", "\n")
	for _, line := range strings.Split(content, "\n") {
		if cont != nil {
			cont.feed(line)
			if keepCont {
				res.add(state, line)
			}
			if !cont.open() {
				cont = nil
			}
			continue
		}

		if name, ok := parseHeader(line); ok {
			if isModelProvidersTable(name) {
				state = stateModelProviders
			} else {
				state = stateOtherSection
				res.sections = append(res.sections, line)
			}
			continue
		}

		key, rest, isKey := parseKeyLine(line)
		keep := state != stateModelProviders
		if isKey && state == stateTopLevel && managed[key] {
			keep = false
		}
		if keep {
			res.add(state, line)
		}

		if isKey {
			sc := &valueScanner{}
			sc.feed(rest)
			if sc.open() {
				cont = sc
				keepCont = keep
			}
		}
	}

	res.topLevel = trimTrailingBlank(res.topLevel)
	res.sections = trimTrailingBlank(res.sections)
	return res
}

func (r *scanResult) add(state scanState, line string) {
	switch state {
	case stateTopLevel:
		r.topLevel = append(r.topLevel, line)
	case stateOtherSection:
		r.sections = append(r.sections, line)
	}
}

// parseHeader recognizes [table] and [[array.of.tables]] lines
func parseHeader(line string) (string, bool) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil || len(m[1]) != len(m[3]) || m[2] == "" {
		return "", false
	}
	return m[2], true
}

func isModelProvidersTable(name string) bool {
	first := strings.TrimSpace(strings.SplitN(name, ".", 2)[0])
	first = strings.Trim(first, `"'`)
	return first == models.CodexModelProvidersKey
}

// parseKeyLine returns the unquoted key of a `key = value` line and the text
// after the equals sign.
func parseKeyLine(line string) (key, rest string, ok bool) {
	loc := keyPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return "", "", false
	}
	key = line[loc[2]:loc[3]]
	if len(key) >= 2 && (key[0] == '"' || key[0] == '\'') {
		key = key[1 : len(key)-1]
	}
	return key, line[loc[1]:], true
}

// topLevelKeys collects the keys defined by kept top-level lines
func topLevelKeys(lines []string) map[string]bool {
	keys := make(map[string]bool)
	var cont *valueScanner
	for _, line := range lines {
		if cont != nil {
			cont.feed(line)
			if !cont.open() {
				cont = nil
			}
			continue
		}
		key, rest, ok := parseKeyLine(line)
		if !ok {
			continue
		}
		keys[key] = true
		sc := &valueScanner{}
		sc.feed(rest)
		if sc.open() {
			cont = sc
		}
	}
	return keys
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}

// valueScanner tracks whether a TOML value spans more lines: open brackets,
// braces or a multi-line string.
type valueScanner struct {
	depth     int
	multiline string
}

func (s *valueScanner) open() bool {
	return s.depth > 0 || s.multiline != ""
}

func (s *valueScanner) feed(text string) {
	for i := 0; i < len(text); {
		if s.multiline != "" {
			idx := strings.Index(text[i:], s.multiline)
			if idx < 0 {
				return
			}
			i += idx + len(s.multiline)
			s.multiline = ""
			continue
		}

		switch c := text[i]; c {
		case '#':
			return
		case '"', '\'':
			delim := strings.Repeat(string(c), 3)
			if strings.HasPrefix(text[i:], delim) {
				s.multiline = delim
				i += len(delim)
				continue
			}
			i = skipString(text, i)
		case '[', '{':
			s.depth++
			i++
		case ']', '}':
			if s.depth > 0 {
				s.depth--
			}
			i++
		default:
			i++
		}
	}
}

// skipString returns the index just past the single-line string starting at i
func skipString(text string, i int) int {
	quote := text[i]
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			if quote == '"' {
				j++
			}
		case quote:
			return j + 1
		}
	}
	return len(text)
}

// CodexAuthJSON renders the separate auth.json holding the API key
func CodexAuthJSON(apiKey string) (string, error) {
	if apiKey == "" {
		return "", &models.ValidationError{Tool: toolCodex, Field: models.CodexAPIKeyKey}
	}
	doc, err := sjson.Set("{}", models.CodexAPIKeyKey, apiKey)
	if err != nil {
		return "", fmt.Errorf("failed to build auth.json: %w", err)
	}
	return formatJSON(doc), nil
}
