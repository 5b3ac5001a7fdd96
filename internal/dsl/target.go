package dsl

import (
	"log"
	"strings"
)

// Target is a parsed symbolic element reference. Parsing happens once at the
// plan boundary; actions switch on the concrete type.
type Target interface {
	isTarget()
	String() string
}

type RoleTarget struct {
	Role string
	Name string
}

type LabelTarget struct {
	Label string
}

type TextTarget struct {
	Text string
}

type PlaceholderTarget struct {
	Text string
}

type CSSTarget struct {
	Selector string
}

type RawTarget struct {
	Value string
}

func (RoleTarget) isTarget()        {}
func (LabelTarget) isTarget()       {}
func (TextTarget) isTarget()        {}
func (PlaceholderTarget) isTarget() {}
func (CSSTarget) isTarget()         {}
func (RawTarget) isTarget()         {}

func (t RoleTarget) String() string {
	if t.Name != "" {
		return "role=" + t.Role + ` name="` + t.Name + `"`
	}
	return "role=" + t.Role
}
func (t LabelTarget) String() string       { return `label="` + t.Label + `"` }
func (t TextTarget) String() string        { return `text="` + t.Text + `"` }
func (t PlaceholderTarget) String() string { return `placeholder="` + t.Text + `"` }
func (t CSSTarget) String() string         { return "css=" + t.Selector }
func (t RawTarget) String() string         { return t.Value }

// allowedRoles is the set of semantic roles the generator may emit. Anything
// else degrades to a label or text lookup rather than failing the step.
var allowedRoles = map[string]bool{
	"textbox":  true,
	"button":   true,
	"link":     true,
	"checkbox": true,
	"radio":    true,
	"combobox": true,
	"option":   true,
}

// ParseTarget parses a symbolic target string into its typed form.
// A string with no recognized prefix is treated as a raw selector.
func ParseTarget(s string) Target {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "role="):
		role, name := splitRole(s)
		if !allowedRoles[role] {
			log.Printf("[dsl] invalid role %q, falling back to label/text", role)
			if name != "" {
				return LabelTarget{Label: name}
			}
			return TextTarget{Text: role}
		}
		return RoleTarget{Role: role, Name: name}
	case strings.HasPrefix(s, "label="):
		return LabelTarget{Label: stripQuotes(s[len("label="):])}
	case strings.HasPrefix(s, "text="):
		return TextTarget{Text: stripQuotes(s[len("text="):])}
	case strings.HasPrefix(s, "placeholder="):
		return PlaceholderTarget{Text: stripQuotes(s[len("placeholder="):])}
	case strings.HasPrefix(s, "css="):
		return CSSTarget{Selector: s[len("css="):]}
	default:
		return RawTarget{Value: s}
	}
}

// ParseRoleName reports the role and name when the string is a valid role
// target, for callers that branch on the role=button form.
func ParseRoleName(s string) (role, name string, ok bool) {
	if !strings.HasPrefix(strings.TrimSpace(s), "role=") {
		return "", "", false
	}
	role, name = splitRole(strings.TrimSpace(s))
	return role, name, true
}

func splitRole(s string) (role, name string) {
	parts := strings.SplitN(s, " ", 2)
	role = strings.TrimPrefix(parts[0], "role=")
	if len(parts) > 1 && strings.HasPrefix(parts[1], "name=") {
		name = stripQuotes(strings.TrimPrefix(parts[1], "name="))
	}
	return role, name
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
