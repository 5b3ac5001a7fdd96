package dsl

import "strings"

// Step is a single symbolic UI action.
type Step struct {
	Action string `json:"action"`
	Target string `json:"target"`
	Value  string `json:"value,omitempty"`
}

// Plan is an ordered list of steps, the unit of execution.
type Plan struct {
	Name    string `json:"name,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Steps   []Step `json:"steps"`
}

// MakeURL resolves a goto target against an optional base URL.
// Absolute targets bypass the base URL entirely.
func MakeURL(target, baseURL string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(target, "/")
	}
	return target
}
