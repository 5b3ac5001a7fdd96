package browser

import (
	"strings"

	"github.com/arjun/flowtest/internal/dsl"
)

// locator is a driver-native element reference: either a CSS selector or an
// XPath expression. Building one never touches the page; existence checks are
// deferred to the acting strategies.
type locator struct {
	expr  string
	xpath bool
}

// buildLocator translates a parsed symbolic target into a concrete query.
func buildLocator(t dsl.Target) locator {
	switch t := t.(type) {
	case dsl.RoleTarget:
		return locator{expr: roleXPath(t.Role, t.Name), xpath: true}
	case dsl.LabelTarget:
		return locator{expr: labelXPath(t.Label), xpath: true}
	case dsl.TextTarget:
		return locator{expr: textXPath(t.Text, false), xpath: true}
	case dsl.PlaceholderTarget:
		return locator{expr: `//*[@placeholder=` + xpathLiteral(t.Text) + `]`, xpath: true}
	case dsl.CSSTarget:
		return locator{expr: t.Selector}
	case dsl.RawTarget:
		return locator{expr: t.Value}
	default:
		return locator{expr: t.String()}
	}
}

// roleXPath maps a semantic role (plus accessible name) onto the DOM shapes
// that carry it. Name matching is exact on the element's normalized text,
// value or aria-label.
func roleXPath(role, name string) string {
	var alternatives []string
	switch role {
	case "button":
		if name == "" {
			return `//button | //*[@role="button"] | //input[@type="submit" or @type="button"]`
		}
		n := xpathLiteral(name)
		alternatives = []string{
			`//button[normalize-space()=` + n + `]`,
			`//button[@aria-label=` + n + `]`,
			`//*[@role="button"][normalize-space()=` + n + `]`,
			`//input[(@type="submit" or @type="button") and @value=` + n + `]`,
		}
	case "link":
		if name == "" {
			return `//a[@href] | //*[@role="link"]`
		}
		n := xpathLiteral(name)
		alternatives = []string{
			`//a[normalize-space()=` + n + `]`,
			`//a[@aria-label=` + n + `]`,
			`//*[@role="link"][normalize-space()=` + n + `]`,
		}
	case "textbox":
		if name == "" {
			return `//input[not(@type) or @type="text" or @type="email" or @type="password" or @type="search" or @type="tel" or @type="url" or @type="number"] | //textarea`
		}
		return namedControlXPath(`input[not(@type) or @type="text" or @type="email" or @type="password" or @type="search" or @type="tel" or @type="url" or @type="number"]`, "textarea", name)
	case "checkbox":
		if name == "" {
			return `//input[@type="checkbox"] | //*[@role="checkbox"]`
		}
		return namedControlXPath(`input[@type="checkbox"]`, "", name)
	case "radio":
		if name == "" {
			return `//input[@type="radio"] | //*[@role="radio"]`
		}
		return namedControlXPath(`input[@type="radio"]`, "", name)
	case "combobox":
		if name == "" {
			return `//select | //*[@role="combobox"]`
		}
		return namedControlXPath("select", `*[@role="combobox"]`, name)
	case "option":
		if name == "" {
			return `//option | //*[@role="option"]`
		}
		n := xpathLiteral(name)
		alternatives = []string{
			`//option[normalize-space()=` + n + `]`,
			`//*[@role="option"][normalize-space()=` + n + `]`,
		}
	}
	return strings.Join(alternatives, " | ")
}

// namedControlXPath finds form controls whose accessible name comes from an
// aria-label, an associated <label for=...>, or a wrapping <label>.
func namedControlXPath(control, alt, name string) string {
	n := xpathLiteral(name)
	parts := []string{
		`//` + control + `[@aria-label=` + n + `]`,
		`//` + control + `[@id=//label[normalize-space()=` + n + `]/@for]`,
		`//label[normalize-space()=` + n + `]//` + control,
	}
	if alt != "" {
		parts = append(parts,
			`//`+alt+`[@aria-label=`+n+`]`,
			`//`+alt+`[@id=//label[normalize-space()=`+n+`]/@for]`,
			`//label[normalize-space()=`+n+`]//`+alt,
		)
	}
	return strings.Join(parts, " | ")
}

// labelXPath resolves a control through its label association.
func labelXPath(label string) string {
	n := xpathLiteral(label)
	return strings.Join([]string{
		`//*[self::input or self::textarea or self::select][@id=//label[normalize-space()=` + n + `]/@for]`,
		`//label[normalize-space()=` + n + `]//*[self::input or self::textarea or self::select]`,
		`//*[self::input or self::textarea or self::select][@aria-label=` + n + `]`,
	}, " | ")
}

// textXPath finds elements by their own text content.
func textXPath(text string, exact bool) string {
	n := xpathLiteral(text)
	if exact {
		return `//*[normalize-space()=` + n + `]`
	}
	return `//*[text()[contains(normalize-space(.), ` + n + `)]]`
}

// xpathLiteral quotes an arbitrary string as an XPath 1.0 literal, falling
// back to concat() when both quote kinds appear.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	var parts []string
	for i, piece := range strings.Split(s, `"`) {
		if i > 0 {
			parts = append(parts, `'"'`)
		}
		if piece != "" {
			parts = append(parts, `"`+piece+`"`)
		}
	}
	return "concat(" + strings.Join(parts, ", ") + ")"
}
