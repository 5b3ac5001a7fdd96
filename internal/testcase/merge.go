package testcase

import "strings"

// canonicalFields collapses the human synonyms extraction and callers use onto
// one stable field name, so placeholder substitution downstream does not depend
// on which spelling the document happened to pick.
var canonicalFields = map[string]string{
	"email":     "username",
	"e_mail":    "username",
	"username":  "username",
	"user":      "username",
	"login":     "username",
	"password":  "password",
	"pass":      "password",
	"pwd":       "password",
	"url":       "url",
	"link":      "url",
	"address":   "url",
	"name":      "name",
	"full_name": "name",
	"phone":     "phone",
	"mobile":    "phone",
}

func canonicalKey(key string) string {
	key = normalizeKey(key)
	if canonical, ok := canonicalFields[key]; ok {
		return canonical
	}
	return key
}

// MergeData combines a case's own extracted data with caller-supplied
// overrides. Overrides win over extracted values but never over an override
// applied earlier in iteration, and empty overrides are ignored.
func MergeData(caseData map[string]string, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(caseData)+len(overrides))
	for k, v := range caseData {
		merged[canonicalKey(k)] = v
	}
	applied := make(map[string]bool)
	for k, v := range overrides {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := canonicalKey(k)
		if applied[key] {
			continue
		}
		merged[key] = v
		applied[key] = true
	}
	return merged
}
