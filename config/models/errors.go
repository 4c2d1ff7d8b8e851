package models

import (
	"fmt"
	"os"
)

// NotFoundError is returned when a required file does not exist
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// Is lets errors.Is(err, os.ErrNotExist) match
func (e *NotFoundError) Is(target error) bool {
	return target == os.ErrNotExist
}

// ParseError is returned when a file is not valid JSON
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse content: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a site block lacks a required field
type ValidationError struct {
	Site   string
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}

	switch {
	case e.Site != "" && e.Tool != "":
		return fmt.Sprintf("site '%s' (%s): %s %s", e.Site, e.Tool, e.Field, reason)
	case e.Site != "":
		return fmt.Sprintf("site '%s': %s %s", e.Site, e.Field, reason)
	case e.Tool != "":
		return fmt.Sprintf("%s: %s %s", e.Tool, e.Field, reason)
	default:
		return fmt.Sprintf("%s %s", e.Field, reason)
	}
}
