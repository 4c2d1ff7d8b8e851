package validation

import (
	"errors"

	"ccsw/config/merge"
	"ccsw/config/models"
)

// Validator validates site entries before they are stored or applied
type Validator struct {
	input *InputValidator
}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{input: NewInputValidator()}
}

// ValidateSite checks a site entry: key format, at least one tool block,
// and the required fields and URLs of every block present.
func (v *Validator) ValidateSite(key string, entry *models.SiteEntry) error {
	if err := v.input.ValidateSiteKey(key); err != nil {
		return &models.ValidationError{Site: key, Field: "site key", Reason: err.Error()}
	}
	if !entry.HasAnyBlock() {
		return &models.ValidationError{Site: key, Field: "site", Reason: "must define at least one of claude, codex or iflow"}
	}

	if entry.Claude != nil {
		if err := v.ValidateClaude(entry.Claude); err != nil {
			return withSite(err, key)
		}
	}
	if entry.Codex != nil {
		if err := v.ValidateCodex(entry.Codex); err != nil {
			return withSite(err, key)
		}
	}
	if entry.Iflow != nil {
		if err := v.ValidateIflow(entry.Iflow); err != nil {
			return withSite(err, key)
		}
	}
	return nil
}

// ValidateClaude checks a claude block
func (v *Validator) ValidateClaude(block *models.ClaudeBlock) error {
	if err := merge.ValidateClaudeBlock(block); err != nil {
		return err
	}
	if err := v.input.ValidateURL(block.BaseURL); err != nil {
		return &models.ValidationError{Tool: "claude", Field: "env." + models.EnvBaseURL, Reason: err.Error()}
	}
	return nil
}

// ValidateCodex checks a codex block: at least one provider, each with a
// well-formed base_url.
func (v *Validator) ValidateCodex(block *models.CodexBlock) error {
	if len(block.Providers) == 0 {
		return &models.ValidationError{Tool: "codex", Field: models.CodexModelProvidersKey}
	}
	for _, p := range block.Providers {
		field := models.CodexModelProvidersKey + "." + p.Key + "." + models.ProviderBaseURLKey
		if p.Config.BaseURL == "" {
			return &models.ValidationError{Tool: "codex", Field: field}
		}
		if err := v.input.ValidateURL(p.Config.BaseURL); err != nil {
			return &models.ValidationError{Tool: "codex", Field: field, Reason: err.Error()}
		}
	}
	return nil
}

// ValidateIflow checks an iflow block
func (v *Validator) ValidateIflow(block *models.IflowBlock) error {
	if err := merge.ValidateIflowBlock(block); err != nil {
		return err
	}
	if err := v.input.ValidateURL(block.BaseURL); err != nil {
		return &models.ValidationError{Tool: "iflow", Field: merge.IflowBaseURLKey, Reason: err.Error()}
	}
	return nil
}

func withSite(err error, site string) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) && verr.Site == "" {
		copied := *verr
		copied.Site = site
		return &copied
	}
	return err
}
