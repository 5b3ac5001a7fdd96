package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/arjun/flowtest/internal/dsl"
)

// Config carries the per-driver execution knobs.
type Config struct {
	Headless      bool
	StepTimeout   time.Duration
	SettleTimeout time.Duration
	SlowMo        time.Duration
}

// Driver creates browser sessions. One session serves one plan.
type Driver struct {
	cfg Config
}

func NewDriver(cfg Config) *Driver {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 15 * time.Second
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = 3 * time.Second
	}
	return &Driver{cfg: cfg}
}

// Session owns one browser instance plus its allocator.
type Session struct {
	cfg           Config
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func (d *Driver) NewSession(ctx context.Context) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	s := &Session{cfg: d.cfg}
	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx)

	if err := chromedp.Run(s.browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %v", err)
	}
	return s, nil
}

func (s *Session) Close() {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// actionCtx scopes one interactive phase. The caller's context carries only
// cancellation; per-phase deadlines live here so a failed primary attempt
// still leaves budget for the fallback cascade.
func (s *Session) actionCtx(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}
	}
	merged, cancel := context.WithTimeout(s.browserCtx, budget)
	stop := context.AfterFunc(ctx, cancel)
	return merged, func() { stop(); cancel() }
}

func (s *Session) pause() {
	if s.cfg.SlowMo > 0 {
		time.Sleep(s.cfg.SlowMo)
	}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.pause()
	tctx, cancel := s.actionCtx(ctx, s.cfg.StepTimeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return classify(err, "navigate to "+url)
	}
	return nil
}

type probeResult struct {
	Total   int `json:"total"`
	Visible int `json:"visible"`
}

// probe polls the page for matches until at least one appears or the budget
// runs out. It never fails on zero matches by itself.
func (s *Session) probe(ctx context.Context, loc locator, budget time.Duration) (probeResult, error) {
	tctx, cancel := s.actionCtx(ctx, budget)
	defer cancel()

	var last probeResult
	for {
		var res probeResult
		if err := chromedp.Run(tctx, chromedp.Evaluate(jsProbe(loc), &res)); err != nil {
			if tctx.Err() != nil {
				return last, timeoutErrf("no element matched %s within %s", loc.expr, budget)
			}
			return last, fmt.Errorf("element lookup failed: %v", err)
		}
		if res.Total > 0 {
			return res, nil
		}
		last = res
		select {
		case <-tctx.Done():
			return last, timeoutErrf("no element matched %s within %s", loc.expr, budget)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// clickOps is the seam between the recovery policy and the driver calls.
type clickOps interface {
	strict(ctx context.Context) error
	firstVisible(ctx context.Context) bool
	fallbacks(ctx context.Context, name string) bool
}

type sessionClickOps struct {
	s      *Session
	loc    locator
	target dsl.Target
}

func (o *sessionClickOps) strict(ctx context.Context) error {
	return o.s.strictClick(ctx, o.loc, o.target)
}

func (o *sessionClickOps) firstVisible(ctx context.Context) bool {
	return o.s.clickFirstVisible(ctx, o.loc)
}

func (o *sessionClickOps) fallbacks(ctx context.Context, name string) bool {
	return o.s.clickFallbacks(ctx, name)
}

// Click performs a strict click with the full recovery cascade described by
// the plan semantics: ambiguity and hidden elements recover through the
// first visible match; a button-by-name that still has no click falls back to
// text strategies before the original failure is surfaced.
func (s *Session) Click(ctx context.Context, target dsl.Target) error {
	s.pause()
	loc := buildLocator(target)
	return clickWithRecovery(ctx, &sessionClickOps{s: s, loc: loc, target: target}, target)
}

func clickWithRecovery(ctx context.Context, ops clickOps, target dsl.Target) error {
	err := ops.strict(ctx)
	if err == nil {
		return nil
	}

	var amb *AmbiguityError
	var nv *NotVisibleError
	recoverable := errors.As(err, &amb) || errors.As(err, &nv)
	if recoverable {
		log.Printf("[browser] %v; clicking first visible match", err)
		if ops.firstVisible(ctx) {
			return nil
		}
	}

	if rt, ok := target.(dsl.RoleTarget); ok && rt.Role == "button" && rt.Name != "" && (recoverable || IsTimeout(err)) {
		if ops.fallbacks(ctx, rt.Name) {
			return nil
		}
		return timeoutErrf("unable to click %q: %v. Provide an explicit selector.", rt.Name, err)
	}
	return err
}

func (s *Session) strictClick(ctx context.Context, loc locator, target dsl.Target) error {
	res, err := s.probe(ctx, loc, s.cfg.StepTimeout)
	if err != nil {
		return err
	}
	if res.Total > 1 {
		return &AmbiguityError{Target: target.String(), Matches: res.Total}
	}
	if res.Visible == 0 {
		return &NotVisibleError{Target: target.String()}
	}

	tctx, cancel := s.actionCtx(ctx, s.cfg.StepTimeout)
	defer cancel()
	opt := queryOption(loc)
	if err := chromedp.Run(tctx,
		chromedp.ScrollIntoView(loc.expr, opt),
		chromedp.Click(loc.expr, opt),
	); err != nil {
		return classify(err, "click "+target.String())
	}
	return nil
}

func (s *Session) clickFirstVisible(ctx context.Context, loc locator) bool {
	tctx, cancel := s.actionCtx(ctx, 3*time.Second)
	defer cancel()
	var res struct {
		Total   int  `json:"total"`
		Clicked bool `json:"clicked"`
	}
	if err := chromedp.Run(tctx, chromedp.Evaluate(jsClickFirstVisible(loc), &res)); err != nil {
		return false
	}
	return res.Clicked
}

func (s *Session) Fill(ctx context.Context, target dsl.Target, value string) error {
	s.pause()
	loc := buildLocator(target)
	res, err := s.probe(ctx, loc, s.cfg.StepTimeout)
	if err != nil {
		return err
	}
	if res.Total > 1 {
		return &AmbiguityError{Target: target.String(), Matches: res.Total}
	}

	tctx, cancel := s.actionCtx(ctx, s.cfg.StepTimeout)
	defer cancel()
	opt := queryOption(loc)
	if err := chromedp.Run(tctx,
		chromedp.Clear(loc.expr, opt),
		chromedp.SendKeys(loc.expr, value, opt),
	); err != nil {
		return classify(err, "fill "+target.String())
	}
	return nil
}

func (s *Session) AssertVisible(ctx context.Context, target dsl.Target) error {
	s.pause()
	loc := buildLocator(target)
	tctx, cancel := s.actionCtx(ctx, s.cfg.StepTimeout)
	defer cancel()
	for {
		var res probeResult
		if err := chromedp.Run(tctx, chromedp.Evaluate(jsProbe(loc), &res)); err == nil && res.Visible > 0 {
			return nil
		}
		select {
		case <-tctx.Done():
			return fmt.Errorf("assertion failed: %s is not visible", target.String())
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (s *Session) AssertText(ctx context.Context, target dsl.Target, text string) error {
	s.pause()
	loc := buildLocator(target)
	tctx, cancel := s.actionCtx(ctx, s.cfg.StepTimeout)
	defer cancel()
	var actual string
	for {
		var res struct {
			Found  bool   `json:"found"`
			Actual string `json:"actual"`
		}
		if err := chromedp.Run(tctx, chromedp.Evaluate(jsTextContains(loc, text), &res)); err == nil {
			if res.Found {
				return nil
			}
			actual = res.Actual
		}
		select {
		case <-tctx.Done():
			if actual != "" {
				return fmt.Errorf("assertion failed: %s does not contain %q (got %q)", target.String(), text, actual)
			}
			return fmt.Errorf("assertion failed: %s does not contain %q", target.String(), text)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Screenshot writes a full-page PNG to path, creating parent directories.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	tctx, cancel := s.actionCtx(ctx, s.cfg.StepTimeout)
	defer cancel()
	var buf []byte
	if err := chromedp.Run(tctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("screenshot failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %v", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot: %v", err)
	}
	return nil
}

// DOMSnapshot captures the page's outer HTML for failure diagnostics.
func (s *Session) DOMSnapshot(ctx context.Context) (string, error) {
	tctx, cancel := s.actionCtx(ctx, s.cfg.StepTimeout)
	defer cancel()
	var html string
	err := chromedp.Run(tctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("dom snapshot failed: %v", err)
	}
	if len(html) > 200000 {
		html = html[:200000] + "\n<!-- truncated -->"
	}
	return html, nil
}

// DismissCookieBanner is a best-effort pre-action sweep; a page without a
// banner is the normal case.
func (s *Session) DismissCookieBanner(ctx context.Context) {
	tctx, cancel := s.actionCtx(ctx, 500*time.Millisecond)
	defer cancel()
	var clicked string
	if err := chromedp.Run(tctx, chromedp.Evaluate(jsDismissCookieBanner(), &clicked)); err != nil {
		return
	}
	if clicked != "" {
		log.Printf("[browser] dismissed cookie banner with %q", clicked)
	}
}

// WaitSettled waits for document readiness plus a short quiet period after
// navigation-triggering actions. Failure to settle is not an error.
func (s *Session) WaitSettled(ctx context.Context) {
	tctx, cancel := s.actionCtx(ctx, s.cfg.SettleTimeout)
	defer cancel()
	for {
		var state string
		if err := chromedp.Run(tctx, chromedp.Evaluate(`document.readyState`, &state)); err == nil && state == "complete" {
			break
		}
		select {
		case <-tctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
	select {
	case <-tctx.Done():
	case <-time.After(300 * time.Millisecond):
	}
}

func queryOption(loc locator) chromedp.QueryOption {
	if loc.xpath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// classify folds context deadlines into the timeout error class so the runner
// can tag artifacts correctly.
func classify(err error, what string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutErrf("timed out trying to %s: %v", what, err)
	}
	return fmt.Errorf("failed to %s: %v", what, err)
}
