package dsl

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// NormalizeKey lowercases a data key and collapses whitespace to underscores,
// so "Username Field" and "username_field" address the same value.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(strings.ToLower(key))
	return strings.Join(strings.Fields(key), "_")
}

// SubstitutePlaceholders resolves ${field} markers in every step value against
// the merged test data. Lookup tries the normalized key itself, the key with a
// dotted prefix stripped, and the last dot segment; unresolved markers are left
// intact so the failure is visible in the step log.
func SubstitutePlaceholders(plan *Plan, data map[string]string) {
	if len(data) == 0 {
		return
	}
	normalized := make(map[string]string, len(data))
	for k, v := range data {
		normalized[NormalizeKey(k)] = v
	}
	for i := range plan.Steps {
		value := plan.Steps[i].Value
		substituted := false
		value = placeholderRe.ReplaceAllStringFunc(value, func(m string) string {
			field := placeholderRe.FindStringSubmatch(m)[1]
			if v, ok := lookupField(normalized, field); ok {
				substituted = true
				return strings.Trim(v, `"'`)
			}
			return m
		})
		// Generators occasionally quote the whole value; strip what remains.
		if substituted {
			value = strings.Trim(value, `"'`)
		}
		plan.Steps[i].Value = value
	}
}

func lookupField(data map[string]string, field string) (string, bool) {
	key := NormalizeKey(field)
	if v, ok := data[key]; ok {
		return v, true
	}
	if i := strings.Index(key, "."); i >= 0 {
		if v, ok := data[key[i+1:]]; ok {
			return v, true
		}
	}
	if i := strings.LastIndex(key, "."); i >= 0 {
		if v, ok := data[key[i+1:]]; ok {
			return v, true
		}
	}
	// "username" should still find "username_field" and vice versa. Several
	// keys can prefix-match; take the longest (ties broken alphabetically) so
	// the winner does not depend on map iteration order.
	var bestKey, bestVal string
	for k, v := range data {
		if !strings.HasPrefix(k, key+"_") && !strings.HasPrefix(key, k+"_") {
			continue
		}
		if bestKey == "" || len(k) > len(bestKey) || (len(k) == len(bestKey) && k < bestKey) {
			bestKey, bestVal = k, v
		}
	}
	if bestKey != "" {
		return bestVal, true
	}
	return "", false
}
