package browser

import "testing"

func TestMatchOptionByValueWhenLabelDiffers(t *testing.T) {
	opts := []selectOption{
		{Label: "Azure", Text: "Azure", Value: "Blue"},
		{Label: "Crimson", Text: "Crimson", Value: "Red"},
	}

	idx, mode := matchOption(opts, "Blue")
	if idx != 0 || mode != "value" {
		t.Errorf("got idx=%d mode=%q, want 0 via value", idx, mode)
	}
}

func TestMatchOptionLabelBeatsValue(t *testing.T) {
	opts := []selectOption{
		{Label: "Red", Text: "Red", Value: "colour-1"},
		{Label: "Dark Red", Text: "Dark Red", Value: "Red"},
	}

	idx, mode := matchOption(opts, "Red")
	if idx != 0 || mode != "label" {
		t.Errorf("got idx=%d mode=%q, want 0 via label", idx, mode)
	}
}

func TestMatchOptionTrimsLabelWhitespace(t *testing.T) {
	opts := []selectOption{
		{Label: "  United Kingdom  ", Text: "  United Kingdom  ", Value: "UK"},
	}

	idx, mode := matchOption(opts, "United Kingdom")
	if idx != 0 || mode != "label" {
		t.Errorf("got idx=%d mode=%q, want 0 via label", idx, mode)
	}
}

func TestMatchOptionContainsFallback(t *testing.T) {
	opts := []selectOption{
		{Label: "Germany (DE)", Text: "Germany (DE)", Value: "de"},
		{Label: "France (FR)", Text: "France (FR)", Value: "fr"},
	}

	idx, mode := matchOption(opts, "France")
	if idx != 1 || mode != "manual" {
		t.Errorf("got idx=%d mode=%q, want 1 via manual", idx, mode)
	}
}

func TestMatchOptionNoMatch(t *testing.T) {
	opts := []selectOption{
		{Label: "One", Text: "One", Value: "1"},
	}

	if idx, _ := matchOption(opts, "Seven"); idx != -1 {
		t.Errorf("got idx=%d, want -1", idx)
	}
}
