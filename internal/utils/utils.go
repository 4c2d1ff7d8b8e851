// Package utils holds small display and URL helpers shared by the commands.
package utils

// MaskAPIKey masks a secret for display, keeping the first and last four characters
func MaskAPIKey(key string) string {
	runes := []rune(key)
	if len(runes) <= 8 {
		return "****"
	}
	return string(runes[:4]) + "****" + string(runes[len(runes)-4:])
}

// Truncate shortens s to max characters, marking the cut with "…"
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
