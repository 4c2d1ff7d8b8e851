package merge

import (
	"fmt"

	"ccsw/config/models"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const toolClaude = "claude"

// credentialPaths are the mutually exclusive Claude credential keys. All of
// them are cleared before a new block is merged in.
var credentialPaths = []string{
	models.EnvKey + "." + models.EnvAuthToken,
	models.EnvKey + "." + models.EnvAuthKey,
	models.EnvKey + "." + models.EnvAPIKey,
	models.ClaudeModelKey,
}

// MergeClaudeSettings merges a site's claude block into existing Claude
// settings JSON, using credential as env.ANTHROPIC_AUTH_TOKEN.
//
// Keys unrelated to the block are preserved in their original order.
func MergeClaudeSettings(existing string, block *models.ClaudeBlock, credential string) (string, error) {
	if err := ValidateClaudeBlock(block); err != nil {
		return "", err
	}
	if credential == "" {
		return "", &models.ValidationError{Tool: toolClaude, Field: "env." + models.EnvAuthToken}
	}

	doc, err := parseObject(existing)
	if err != nil {
		return "", err
	}

	doc, err = deleteKeys(doc, credentialPaths...)
	if err != nil {
		return "", err
	}

	patch, err := block.Raw()
	if err != nil {
		return "", err
	}
	patch, err = sjson.SetBytes(patch, models.EnvKey+"."+models.EnvAuthToken, credential)
	if err != nil {
		return "", fmt.Errorf("failed to set credential: %w", err)
	}

	doc, err = deepMerge(doc, "", gjson.ParseBytes(patch))
	if err != nil {
		return "", err
	}

	if !gjson.Valid(doc) {
		return "", fmt.Errorf("merged Claude settings are not valid JSON")
	}
	return formatJSON(doc), nil
}

// ValidateClaudeBlock checks the fields a Claude merge needs
func ValidateClaudeBlock(block *models.ClaudeBlock) error {
	if block == nil {
		return &models.ValidationError{Tool: toolClaude, Field: "claude block"}
	}
	if block.BaseURL == "" {
		return &models.ValidationError{Tool: toolClaude, Field: "env." + models.EnvBaseURL}
	}
	if block.AuthToken.IsEmpty() {
		return &models.ValidationError{Tool: toolClaude, Field: "env." + models.EnvAuthToken}
	}
	return nil
}
