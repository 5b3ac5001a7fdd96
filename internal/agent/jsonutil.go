package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// extractJSONBlock isolates the JSON object from an LLM response that may wrap
// it in markdown fences or prose.
func extractJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.Contains(text, "```") {
		for _, part := range strings.Split(text, "```") {
			if strings.Contains(part, "{") && strings.Contains(part, "}") {
				text = part
				break
			}
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

var smartQuotes = strings.NewReplacer("“", `"`, "”", `"`, "’", "'")

// safeUnmarshal decodes model output into v, tolerating code fences, smart
// quotes and trailing commas. Returns false when nothing decodable is found.
func safeUnmarshal(text string, v any) bool {
	raw := extractJSONBlock(text)
	if json.Unmarshal([]byte(raw), v) == nil {
		return true
	}
	cleaned := smartQuotes.Replace(raw)
	cleaned = trailingCommaRe.ReplaceAllString(cleaned, "$1")
	return json.Unmarshal([]byte(cleaned), v) == nil
}
