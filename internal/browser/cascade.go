package browser

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/arjun/flowtest/internal/dsl"
)

// clickStrategy is one alternative way to land a click for a named button.
type clickStrategy struct {
	name string
	js   string
}

// clickStrategies is the ordered fallback cascade for a `role=button name=X`
// click that timed out: progressively looser matching, first success wins.
func clickStrategies(name string) []clickStrategy {
	partialButton := locator{
		expr: `//button[contains(normalize-space(), ` + xpathLiteral(name) + `)]` +
			` | //*[@role="button"][contains(normalize-space(), ` + xpathLiteral(name) + `)]` +
			` | //input[(@type="submit" or @type="button") and contains(@value, ` + xpathLiteral(name) + `)]`,
		xpath: true,
	}
	link := locator{expr: roleXPath("link", name), xpath: true}
	partialText := locator{expr: textXPath(name, false), xpath: true}

	return []clickStrategy{
		{name: "role=button partial", js: "(" + jsClickFirstVisible(partialButton) + ").clicked"},
		{name: "role=link", js: "(" + jsClickFirstVisible(link) + ").clicked"},
		{name: "text", js: "(" + jsClickFirstVisible(partialText) + ").clicked"},
		{name: "text regex", js: jsClickByRegex(name)},
		{name: "css has-text", js: jsClickHasText(name)},
	}
}

const fallbackBudget = 3 * time.Second

// clickFallbacks walks the cascade; each strategy gets its own short budget.
func (s *Session) clickFallbacks(ctx context.Context, name string) bool {
	for _, strat := range clickStrategies(name) {
		tctx, cancel := s.actionCtx(ctx, fallbackBudget)
		var clicked bool
		err := chromedp.Run(tctx, chromedp.Evaluate(strat.js, &clicked))
		cancel()
		if err != nil {
			continue
		}
		if clicked {
			log.Printf("[browser] click fallback via %s for %q", strat.name, name)
			return true
		}
	}
	return false
}

// maxOptionScrolls bounds the virtualized-dropdown search.
const maxOptionScrolls = 8

// selectOption mirrors one native <option> for the match decision.
type selectOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Value string `json:"value"`
}

// matchOption picks which option a wanted value selects: exact label/text
// match first, then exact value match, then a contains match on any of the
// three as a last resort. Returns the option index and the match kind, or -1.
func matchOption(opts []selectOption, want string) (int, string) {
	for i, o := range opts {
		if strings.TrimSpace(o.Label) == want || strings.TrimSpace(o.Text) == want {
			return i, "label"
		}
	}
	for i, o := range opts {
		if o.Value == want {
			return i, "value"
		}
	}
	for i, o := range opts {
		if strings.Contains(o.Label, want) || strings.Contains(o.Text, want) || strings.Contains(o.Value, want) {
			return i, "manual"
		}
	}
	return -1, ""
}

// SelectOption applies a value to a selection control. Native controls are
// preferred even when the visible widget is synthetic; a widget with no
// native control at all is treated as a pure synthetic dropdown and searched
// by opening it and scrolling its option container.
func (s *Session) SelectOption(ctx context.Context, target dsl.Target, value string) error {
	s.pause()
	loc := buildLocator(target)

	// Wait for the target itself before deciding which path applies.
	if _, err := s.probe(ctx, loc, s.cfg.StepTimeout); err != nil {
		return err
	}

	tctx, cancel := s.actionCtx(ctx, s.cfg.StepTimeout)
	var listing struct {
		Status  string         `json:"status"`
		Options []selectOption `json:"options"`
	}
	err := chromedp.Run(tctx, chromedp.Evaluate(jsListNativeOptions(loc), &listing))
	cancel()
	if err != nil {
		return classify(err, "select on "+target.String())
	}

	switch listing.Status {
	case "ok":
	case "no-control":
		return s.selectSynthetic(ctx, loc, target, value)
	default:
		return timeoutErrf("no element matched %s for select", target.String())
	}

	idx, mode := matchOption(listing.Options, value)
	if idx < 0 {
		return fmt.Errorf("no option matching %q in native control for %s", value, target.String())
	}

	tctx, cancel = s.actionCtx(ctx, s.cfg.StepTimeout)
	var applied bool
	err = chromedp.Run(tctx, chromedp.Evaluate(jsApplyNativeOption(loc, idx), &applied))
	cancel()
	if err != nil {
		return classify(err, "select on "+target.String())
	}
	if !applied {
		return fmt.Errorf("failed to apply option %q on %s", value, target.String())
	}
	log.Printf("[browser] select %q applied via %s match", value, mode)
	return nil
}

// selectSynthetic opens a custom dropdown widget and hunts for the option by
// text, scrolling the option container a bounded number of times to surface
// virtualized entries.
func (s *Session) selectSynthetic(ctx context.Context, loc locator, target dsl.Target, value string) error {
	log.Printf("[browser] no native control for %s, treating as synthetic dropdown", target.String())

	if !s.clickFirstVisible(ctx, loc) {
		return fmt.Errorf("could not open dropdown %s", target.String())
	}
	time.Sleep(300 * time.Millisecond)

	if s.pickSyntheticOption(ctx, value) {
		return nil
	}

	for i := 0; i < maxOptionScrolls; i++ {
		tctx, cancel := s.actionCtx(ctx, fallbackBudget)
		var scrolled bool
		err := chromedp.Run(tctx, chromedp.Evaluate(jsScrollOptionContainer(), &scrolled))
		cancel()
		if err != nil || !scrolled {
			break
		}
		time.Sleep(150 * time.Millisecond)
		if s.pickSyntheticOption(ctx, value) {
			return nil
		}
	}
	return fmt.Errorf("option %q not found in dropdown %s after scrolling", value, target.String())
}

func (s *Session) pickSyntheticOption(ctx context.Context, value string) bool {
	tctx, cancel := s.actionCtx(ctx, fallbackBudget)
	defer cancel()
	var picked bool
	if err := chromedp.Run(tctx, chromedp.Evaluate(jsPickSyntheticOption(value), &picked)); err != nil {
		return false
	}
	return picked
}
