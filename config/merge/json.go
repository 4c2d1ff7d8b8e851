// Package merge rewrites tool settings files from site profile blocks.
//
// Every function here is a pure transform: it takes the current file content
// and returns the new content. Reading, backing up and writing files is the
// caller's job.
package merge

import (
	"fmt"
	"strings"

	"ccsw/config/models"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// joinPath appends an escaped key to a gjson/sjson path
func joinPath(parent, key string) string {
	escaped := gjson.Escape(key)
	if parent == "" {
		return escaped
	}
	return parent + "." + escaped
}

// parseObject returns content as a JSON object document. Empty content is an
// empty object; anything that is not a JSON object is a ParseError.
func parseObject(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "{}", nil
	}
	if !gjson.Valid(content) {
		return "", &models.ParseError{Err: fmt.Errorf("invalid JSON")}
	}
	if !gjson.Parse(content).IsObject() {
		return "", &models.ParseError{Err: fmt.Errorf("settings must be a JSON object")}
	}
	return content, nil
}

// deepMerge merges src into doc at path. Objects merge key by key; every
// other value, arrays included, replaces the target wholesale.
func deepMerge(doc, path string, src gjson.Result) (string, error) {
	var err error
	src.ForEach(func(key, value gjson.Result) bool {
		p := joinPath(path, key.String())
		if value.IsObject() {
			if current := gjson.Get(doc, p); current.IsObject() {
				doc, err = deepMerge(doc, p, value)
				return err == nil
			}
		}
		doc, err = sjson.SetRaw(doc, p, value.Raw)
		if err != nil {
			err = fmt.Errorf("failed to set %s: %w", p, err)
		}
		return err == nil
	})
	return doc, err
}

// deleteKeys removes each path from doc, ignoring paths that are absent
func deleteKeys(doc string, paths ...string) (string, error) {
	for _, p := range paths {
		var err error
		doc, err = sjson.Delete(doc, p)
		if err != nil {
			return "", fmt.Errorf("failed to delete %s: %w", p, err)
		}
	}
	return doc, nil
}

// formatJSON re-indents a document with two spaces, keeping key order
func formatJSON(doc string) string {
	return string(pretty.Pretty([]byte(doc)))
}
