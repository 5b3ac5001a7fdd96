package dsl

import "testing"

func TestParseTarget(t *testing.T) {
	cases := []struct {
		input string
		want  Target
	}{
		{`role=button name="Submit"`, RoleTarget{Role: "button", Name: "Submit"}},
		{`role=textbox`, RoleTarget{Role: "textbox"}},
		{`label="Email address"`, LabelTarget{Label: "Email address"}},
		{`text="Welcome back"`, TextTarget{Text: "Welcome back"}},
		{`placeholder="Search..."`, PlaceholderTarget{Text: "Search..."}},
		{`css=#login-form .submit`, CSSTarget{Selector: "#login-form .submit"}},
		{`#plain-selector`, RawTarget{Value: "#plain-selector"}},
	}

	for _, c := range cases {
		got := ParseTarget(c.input)
		if got != c.want {
			t.Errorf("ParseTarget(%q) = %#v, want %#v", c.input, got, c.want)
		}
	}
}

func TestParseTargetInvalidRole(t *testing.T) {
	// Unknown role with a name degrades to a label lookup.
	got := ParseTarget(`role=submitbutton name="Sign in"`)
	if got != (LabelTarget{Label: "Sign in"}) {
		t.Errorf("expected label fallback, got %#v", got)
	}

	// Unknown role without a name treats the role token as text.
	got = ParseTarget(`role=banner`)
	if got != (TextTarget{Text: "banner"}) {
		t.Errorf("expected text fallback, got %#v", got)
	}
}

func TestParseRoleName(t *testing.T) {
	role, name, ok := ParseRoleName(`role=button name="Add to cart"`)
	if !ok || role != "button" || name != "Add to cart" {
		t.Errorf("got role=%q name=%q ok=%v", role, name, ok)
	}

	if _, _, ok := ParseRoleName(`label="Email"`); ok {
		t.Error("label target should not parse as role")
	}
}

func TestMakeURL(t *testing.T) {
	cases := []struct {
		target, base, want string
	}{
		{"https://example.com/login", "https://base.test", "https://example.com/login"},
		{"/checkout", "https://shop.test/", "https://shop.test/checkout"},
		{"checkout", "https://shop.test", "https://shop.test/checkout"},
		{"/checkout", "", "/checkout"},
	}
	for _, c := range cases {
		if got := MakeURL(c.target, c.base); got != c.want {
			t.Errorf("MakeURL(%q, %q) = %q, want %q", c.target, c.base, got, c.want)
		}
	}
}
