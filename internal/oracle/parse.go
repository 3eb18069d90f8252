package oracle

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// ParseJSON salvages a JSON object from an oracle reply. Three tiers are
// tried in order: a fenced code block, the first top-level {...} span, and
// finally the whole text. It never returns an error; when every tier fails
// the result is an empty map.
func ParseJSON(text string) map[string]string {
	for _, candidate := range jsonCandidates(text) {
		if parsed, ok := tryParseObject(candidate); ok {
			return parsed
		}
	}
	return map[string]string{}
}

func jsonCandidates(text string) []string {
	var candidates []string
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if span := braceSpan(text); span != "" {
		candidates = append(candidates, span)
	}
	candidates = append(candidates, text)
	return candidates
}

// braceSpan returns the outermost {...} span of text, or "".
func braceSpan(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// tryParseObject decodes a flat string map, tolerating non-string values by
// dropping them.
func tryParseObject(s string) (map[string]string, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &raw); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if str, ok := v.(string); ok {
			out[k] = strings.TrimSpace(str)
		}
	}
	return out, true
}
