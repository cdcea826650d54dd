package interview

import (
	"encoding/json"
	"strings"
)

// ParseQuestions decodes model output as a JSON array of strings. A Markdown
// code fence around the array is tolerated. Any other output is returned
// verbatim as a single question with degraded set.
func ParseQuestions(raw string) (questions []string, degraded bool) {
	var list []string
	if err := json.Unmarshal([]byte(stripFence(raw)), &list); err != nil || list == nil {
		return []string{raw}, true
	}
	return list, false
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string ("json") up to the first newline.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
