package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Field is a single key/value pair of an ordered JSON object
type Field struct {
	Key   string
	Value any
}

// Fields is a JSON object that remembers the order its keys were read in.
// Values are string, json.Number, bool, []any, Fields or nil.
type Fields []Field

// Get returns the value stored under key
func (fs Fields) Get(key string) (any, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present
func (fs Fields) Has(key string) bool {
	_, ok := fs.Get(key)
	return ok
}

// Set replaces the value for key in place, or appends it
func (fs *Fields) Set(key string, value any) {
	for i := range *fs {
		if (*fs)[i].Key == key {
			(*fs)[i].Value = value
			return
		}
	}
	*fs = append(*fs, Field{Key: key, Value: value})
}

// Delete removes key if present
func (fs *Fields) Delete(key string) {
	out := (*fs)[:0]
	for _, f := range *fs {
		if f.Key != key {
			out = append(out, f)
		}
	}
	*fs = out
}

// Keys returns the keys in order
func (fs Fields) Keys() []string {
	keys := make([]string, 0, len(fs))
	for _, f := range fs {
		keys = append(keys, f.Key)
	}
	return keys
}

// MarshalJSON writes the object with keys in their stored order
func (fs Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		raw, err := EncodeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping its key order
func (fs *Fields) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid JSON object")
	}
	result := gjson.ParseBytes(data)
	if result.Type == gjson.Null {
		*fs = nil
		return nil
	}
	if !result.IsObject() {
		return fmt.Errorf("expected JSON object, got %s", result.Type)
	}
	*fs = decodeObject(result)
	return nil
}

// DecodeValue converts a gjson result into the Fields value model
func DecodeValue(r gjson.Result) any {
	switch {
	case r.IsObject():
		return decodeObject(r)
	case r.IsArray():
		items := make([]any, 0)
		r.ForEach(func(_, value gjson.Result) bool {
			items = append(items, DecodeValue(value))
			return true
		})
		return items
	}

	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return nil
	}
}

func decodeObject(r gjson.Result) Fields {
	out := Fields{}
	r.ForEach(func(key, value gjson.Result) bool {
		out = append(out, Field{Key: key.String(), Value: DecodeValue(value)})
		return true
	})
	return out
}

// EncodeValue renders a Fields value as JSON
func EncodeValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case Fields:
		return val.MarshalJSON()
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			raw, err := EncodeValue(item)
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(val)
	}
}
