package merge

import (
	"fmt"

	"ccsw/config/models"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const toolIflow = "iflow"

// iFlow settings keys
const (
	IflowBaseURLKey   = "baseUrl"
	IflowAPIKeyKey    = "apiKey"
	IflowModelNameKey = "modelName"
	IflowModelKey     = "model"
)

type settingUpdate struct {
	key   string
	value string
}

// MergeIflowSettings overlays a site's iflow block onto existing iFlow
// settings JSON. Content that is absent or not a JSON object is replaced by
// an empty object; every other top-level key is kept.
func MergeIflowSettings(existing string, block *models.IflowBlock) (string, error) {
	if err := ValidateIflowBlock(block); err != nil {
		return "", err
	}

	doc, err := parseObject(existing)
	if err != nil {
		doc = "{}"
	}

	updates := []settingUpdate{
		{IflowBaseURLKey, block.BaseURL},
		{IflowAPIKeyKey, block.APIKey},
	}
	if block.ModelName != "" {
		updates = append(updates, settingUpdate{IflowModelNameKey, block.ModelName})
		if gjson.Get(doc, IflowModelKey).Exists() {
			updates = append(updates, settingUpdate{IflowModelKey, block.ModelName})
		}
	}

	for _, u := range updates {
		doc, err = sjson.Set(doc, u.key, u.value)
		if err != nil {
			return "", fmt.Errorf("failed to set %s: %w", u.key, err)
		}
	}
	return formatJSON(doc), nil
}

// ValidateIflowBlock checks the fields an iFlow write needs
func ValidateIflowBlock(block *models.IflowBlock) error {
	if block == nil {
		return &models.ValidationError{Tool: toolIflow, Field: "iflow block"}
	}
	if block.BaseURL == "" {
		return &models.ValidationError{Tool: toolIflow, Field: IflowBaseURLKey}
	}
	if block.APIKey == "" {
		return &models.ValidationError{Tool: toolIflow, Field: IflowAPIKeyKey}
	}
	return nil
}
