package models

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Default names given to a credential stored as a bare string
const (
	DefaultTokenName  = "默认Token"
	DefaultAPIKeyName = "默认API Key"
)

// CredentialEntry is one named secret
type CredentialEntry struct {
	Name  string
	Value string
}

// Credential holds either a single bare secret or an ordered set of named secrets.
// In JSON it is a string or a name->value object.
type Credential struct {
	single string
	named  []CredentialEntry
	isMap  bool
}

// SingleCredential builds a credential from one bare secret
func SingleCredential(value string) Credential {
	return Credential{single: value}
}

// NamedCredential builds a credential from named entries
func NamedCredential(entries ...CredentialEntry) Credential {
	return Credential{named: append([]CredentialEntry(nil), entries...), isMap: true}
}

// IsNamed reports whether the credential was given as a name->value map
func (c Credential) IsNamed() bool {
	return c.isMap
}

// IsEmpty reports whether no usable secret is present
func (c Credential) IsEmpty() bool {
	if !c.isMap {
		return c.single == ""
	}
	for _, e := range c.named {
		if e.Value != "" {
			return false
		}
	}
	return true
}

// Entries returns the credential in its named form. A bare secret becomes a
// single entry called defaultName.
func (c Credential) Entries(defaultName string) []CredentialEntry {
	if !c.isMap {
		if c.single == "" {
			return nil
		}
		return []CredentialEntry{{Name: defaultName, Value: c.single}}
	}
	out := make([]CredentialEntry, 0, len(c.named))
	for _, e := range c.named {
		if e.Value == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Lookup finds an entry by name in the normalized form
func (c Credential) Lookup(defaultName, name string) (CredentialEntry, bool) {
	for _, e := range c.Entries(defaultName) {
		if e.Name == name {
			return e, true
		}
	}
	return CredentialEntry{}, false
}

// NameOf returns the name of the entry holding value
func (c Credential) NameOf(defaultName, value string) (string, bool) {
	for _, e := range c.Entries(defaultName) {
		if e.Value == value {
			return e.Name, true
		}
	}
	return "", false
}

// MarshalJSON writes a bare string or an ordered object
func (c Credential) MarshalJSON() ([]byte, error) {
	if !c.isMap {
		return json.Marshal(c.single)
	}
	fields := make(Fields, 0, len(c.named))
	for _, e := range c.named {
		fields = append(fields, Field{Key: e.Name, Value: e.Value})
	}
	return fields.MarshalJSON()
}

// UnmarshalJSON accepts a string or an object of strings
func (c *Credential) UnmarshalJSON(data []byte) error {
	result := gjson.ParseBytes(data)
	switch {
	case result.Type == gjson.String:
		*c = SingleCredential(result.Str)
		return nil
	case result.Type == gjson.Null:
		*c = Credential{}
		return nil
	case result.IsObject():
		var entries []CredentialEntry
		var bad string
		result.ForEach(func(key, value gjson.Result) bool {
			if value.Type != gjson.String {
				bad = key.String()
				return false
			}
			entries = append(entries, CredentialEntry{Name: key.String(), Value: value.Str})
			return true
		})
		if bad != "" {
			return fmt.Errorf("credential %q must be a string", bad)
		}
		*c = NamedCredential(entries...)
		return nil
	default:
		return fmt.Errorf("credential must be a string or an object, got %s", result.Type)
	}
}
