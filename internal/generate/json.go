package generate

import "strings"

// CleanJSON extracts the JSON object or array from a model reply that may be
// wrapped in markdown code fences, a leading "json" tag, or prose.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)
	if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
		text = text[4:]
	}

	open := strings.IndexAny(text, "{[")
	if open < 0 {
		return strings.TrimSpace(text)
	}
	closer := "}"
	if text[open] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(text, closer); end > open {
		text = text[open : end+1]
	}
	return strings.TrimSpace(text)
}
