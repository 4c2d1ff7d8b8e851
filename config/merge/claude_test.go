package merge

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"ccsw/config/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func claudeBlock(t *testing.T, raw string) *models.ClaudeBlock {
	t.Helper()
	var block models.ClaudeBlock
	require.NoError(t, json.Unmarshal([]byte(raw), &block))
	return &block
}

func TestMergeClaudeSettings_ReplacesCredentials(t *testing.T) {
	existing := `{"env":{"ANTHROPIC_AUTH_KEY":"old","FOO":"1"},"model":"x","theme":"dark"}`
	block := claudeBlock(t, `{"env":{"ANTHROPIC_BASE_URL":"https://a","ANTHROPIC_AUTH_TOKEN":"t"}}`)

	got, err := MergeClaudeSettings(existing, block, "t")
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &parsed))
	assert.Equal(t, map[string]any{
		"env": map[string]any{
			"FOO":                  "1",
			"ANTHROPIC_BASE_URL":   "https://a",
			"ANTHROPIC_AUTH_TOKEN": "t",
		},
		"theme": "dark",
	}, parsed)
}

func TestMergeClaudeSettings_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		block    string
		token    string
		expected map[string]any
	}{
		{
			name:     "named tokens, second selected",
			existing: `{"env":{"ANTHROPIC_AUTH_TOKEN":"old","foo":"bar"},"model":"m1","unrelated":true}`,
			block:    `{"env":{"ANTHROPIC_BASE_URL":"https://u","ANTHROPIC_AUTH_TOKEN":{"a":"tok1","b":"tok2"}}}`,
			token:    "tok2",
			expected: map[string]any{
				"env": map[string]any{
					"ANTHROPIC_AUTH_TOKEN": "tok2",
					"ANTHROPIC_BASE_URL":   "https://u",
					"foo":                  "bar",
				},
				"unrelated": true,
			},
		},
		{
			name:     "bare token block",
			existing: `{"env":{"ANTHROPIC_API_KEY":"stale"},"unrelated":1}`,
			block:    `{"env":{"ANTHROPIC_BASE_URL":"https://u","ANTHROPIC_AUTH_TOKEN":"tok"}}`,
			token:    "tok",
			expected: map[string]any{
				"env": map[string]any{
					"ANTHROPIC_AUTH_TOKEN": "tok",
					"ANTHROPIC_BASE_URL":   "https://u",
				},
				"unrelated": float64(1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergeClaudeSettings(tt.existing, claudeBlock(t, tt.block), tt.token)
			require.NoError(t, err)

			var parsed map[string]any
			require.NoError(t, json.Unmarshal([]byte(got), &parsed))
			assert.Equal(t, tt.expected, parsed)
			assert.False(t, gjson.Get(got, "model").Exists())
		})
	}
}

func TestMergeClaudeSettings_KeepsKeyOrder(t *testing.T) {
	existing := `{"zeta":1,"env":{"Z":"z","A":"a"},"alpha":2}`
	block := models.NewClaudeBlock("https://a", models.SingleCredential("t"))

	got, err := MergeClaudeSettings(existing, block, "t")
	require.NoError(t, err)

	zeta := strings.Index(got, `"zeta"`)
	env := strings.Index(got, `"env"`)
	alpha := strings.Index(got, `"alpha"`)
	assert.True(t, zeta < env && env < alpha, "top-level order changed:\n%s", got)
	assert.Less(t, strings.Index(got, `"Z"`), strings.Index(got, `"A"`))
}

func TestMergeClaudeSettings_DeepMerge(t *testing.T) {
	existing := `{"permissions":{"allow":["a","b"],"deny":["rm"]},"hooks":"old"}`
	block := claudeBlock(t, `{
		"env": {"ANTHROPIC_BASE_URL": "https://a", "ANTHROPIC_AUTH_TOKEN": {"main": "t1", "alt": "t2"}},
		"permissions": {"allow": ["c"]},
		"hooks": {"pre": "echo"}
	}`)

	got, err := MergeClaudeSettings(existing, block, "t2")
	require.NoError(t, err)

	assert.Equal(t, `["c"]`, strings.Join(strings.Fields(gjson.Get(got, "permissions.allow").Raw), ""))
	assert.Equal(t, "rm", gjson.Get(got, "permissions.deny.0").String())
	assert.Equal(t, "echo", gjson.Get(got, "hooks.pre").String())
	assert.Equal(t, "t2", gjson.Get(got, "env.ANTHROPIC_AUTH_TOKEN").String())
}

func TestMergeClaudeSettings_EmptyExisting(t *testing.T) {
	block := models.NewClaudeBlock("https://a", models.SingleCredential("t"))

	got, err := MergeClaudeSettings("", block, "t")
	require.NoError(t, err)
	assert.Equal(t, "https://a", gjson.Get(got, "env.ANTHROPIC_BASE_URL").String())
	assert.True(t, strings.HasSuffix(got, "\n"))
}

func TestMergeClaudeSettings_DottedKeys(t *testing.T) {
	existing := `{"a.b":{"c":1}}`
	block := claudeBlock(t, `{"env":{"ANTHROPIC_BASE_URL":"https://a","ANTHROPIC_AUTH_TOKEN":"t"},"a.b":{"d":2}}`)

	got, err := MergeClaudeSettings(existing, block, "t")
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &parsed))
	assert.Equal(t, map[string]any{"c": float64(1), "d": float64(2)}, parsed["a.b"])
}

func TestMergeClaudeSettings_Errors(t *testing.T) {
	valid := models.NewClaudeBlock("https://a", models.SingleCredential("t"))

	tests := []struct {
		name       string
		existing   string
		block      *models.ClaudeBlock
		credential string
		parseErr   bool
	}{
		{name: "invalid json", existing: `{"env":`, block: valid, credential: "t", parseErr: true},
		{name: "array document", existing: `[1,2]`, block: valid, credential: "t", parseErr: true},
		{name: "nil block", existing: `{}`, block: nil, credential: "t"},
		{name: "missing base url", existing: `{}`, block: models.NewClaudeBlock("", models.SingleCredential("t")), credential: "t"},
		{name: "missing token", existing: `{}`, block: models.NewClaudeBlock("https://a", models.Credential{}), credential: "t"},
		{name: "empty credential", existing: `{}`, block: valid, credential: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MergeClaudeSettings(tt.existing, tt.block, tt.credential)
			require.Error(t, err)
			if tt.parseErr {
				var perr *models.ParseError
				assert.True(t, errors.As(err, &perr), "expected ParseError, got %v", err)
				return
			}
			var verr *models.ValidationError
			assert.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
		})
	}
}
