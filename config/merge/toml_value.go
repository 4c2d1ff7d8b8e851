package merge

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ccsw/config/models"
)

var bareKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// formatTomlKey returns key bare when TOML allows it, quoted otherwise
func formatTomlKey(key string) string {
	if bareKeyPattern.MatchString(key) {
		return key
	}
	return formatTomlString(key)
}

// formatTomlString renders a TOML basic string
func formatTomlString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatTomlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// formatTomlValue renders v as a TOML value. It reports false for values
// TOML cannot hold (nil), which the caller omits.
func formatTomlValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return formatTomlString(val), true
	case bool:
		return strconv.FormatBool(val), true
	case json.Number:
		return val.String(), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return formatTomlFloat(val), true
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := formatTomlValue(item); ok {
				parts = append(parts, s)
			}
		}
		return "[" + strings.Join(parts, ", ") + "]", true
	case []string:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatTomlString(item))
		}
		return "[" + strings.Join(parts, ", ") + "]", true
	case models.Fields:
		return formatInlineTable(val), true
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make(models.Fields, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, models.Field{Key: k, Value: val[k]})
		}
		return formatInlineTable(fields), true
	default:
		return formatTomlString(fmt.Sprint(val)), true
	}
}

func formatInlineTable(fields models.Fields) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		s, ok := formatTomlValue(f.Value)
		if !ok {
			continue
		}
		parts = append(parts, formatTomlString(f.Key)+" = "+s)
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
