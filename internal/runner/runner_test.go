package runner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/arjun/flowtest/internal/browser"
	"github.com/arjun/flowtest/internal/dsl"
	"github.com/arjun/flowtest/internal/store"
)

// fakeSession records the calls a plan makes and fails on demand.
type fakeSession struct {
	calls    []string
	failOn   string
	failWith error
	closed   bool
}

func (f *fakeSession) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeSession) fail(action string) error {
	if f.failOn == action {
		return f.failWith
	}
	return nil
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.record("navigate %s", url)
	return f.fail("goto")
}

func (f *fakeSession) Click(_ context.Context, target dsl.Target) error {
	f.record("click %s", target.String())
	return f.fail("click")
}

func (f *fakeSession) Fill(_ context.Context, target dsl.Target, value string) error {
	f.record("fill %s=%s", target.String(), value)
	return f.fail("fill")
}

func (f *fakeSession) SelectOption(_ context.Context, target dsl.Target, value string) error {
	f.record("select %s=%s", target.String(), value)
	return f.fail("select")
}

func (f *fakeSession) AssertVisible(_ context.Context, target dsl.Target) error {
	f.record("assert_visible %s", target.String())
	return f.fail("assert_visible")
}

func (f *fakeSession) AssertText(_ context.Context, target dsl.Target, text string) error {
	f.record("assert_text %s~%s", target.String(), text)
	return f.fail("assert_text")
}

func (f *fakeSession) Screenshot(_ context.Context, path string) error {
	f.record("screenshot %s", path)
	return f.fail("screenshot")
}

func (f *fakeSession) DOMSnapshot(context.Context) (string, error) {
	f.record("dom")
	return "<html></html>", nil
}

func (f *fakeSession) DismissCookieBanner(context.Context) { f.record("cookies") }
func (f *fakeSession) WaitSettled(context.Context)         { f.record("settle") }
func (f *fakeSession) Close()                              { f.closed = true }

func newTestRunner(t *testing.T, sess *fakeSession) *Runner {
	t.Helper()
	r := New(func(context.Context) (Session, error) { return sess, nil }, Options{
		OutputDir: t.TempDir(),
	})
	r.writeFile = func(string, []byte) error { return nil }
	return r
}

func loginPlan() dsl.Plan {
	return dsl.Plan{
		Name:    "login",
		BaseURL: "https://shop.example/",
		Steps: []dsl.Step{
			{Action: "goto", Target: "/login"},
			{Action: "fill", Target: `label="Username"`, Value: "alice"},
			{Action: "fill", Target: `label="Password"`, Value: "s3cret"},
			{Action: "click", Target: `role=button name="Sign in"`},
			{Action: "assert_text", Target: "css=.welcome", Value: "Welcome"},
			{Action: "screenshot", Value: "after-login"},
		},
	}
}

func TestExecutePassingPlan(t *testing.T) {
	sess := &fakeSession{}
	r := newTestRunner(t, sess)

	res := r.Execute(context.Background(), "run-1", loginPlan())

	if res.Status != store.StatusPassed || res.FailedStep != 0 || res.Error != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Steps) != 6 {
		t.Fatalf("expected 6 step records, got %d", len(res.Steps))
	}
	for _, rec := range res.Steps {
		if rec.Status != store.StatusPassed {
			t.Errorf("step %d status %s", rec.Step, rec.Status)
		}
	}
	if !sess.closed {
		t.Error("session not closed")
	}

	if sess.calls[0] != "navigate https://shop.example/login" {
		t.Errorf("goto did not join against base url: %s", sess.calls[0])
	}
	if len(res.Artifacts) != 1 || res.Artifacts[0].Type != "screenshot" || res.Artifacts[0].Step != 6 {
		t.Fatalf("unexpected artifacts: %+v", res.Artifacts)
	}
	if !strings.HasSuffix(res.Artifacts[0].Path, "after-login.png") {
		t.Errorf("screenshot name should come from the step value: %s", res.Artifacts[0].Path)
	}
}

func TestExecuteCookieSweepAndSettle(t *testing.T) {
	sess := &fakeSession{}
	r := newTestRunner(t, sess)

	r.Execute(context.Background(), "run-2", dsl.Plan{Steps: []dsl.Step{
		{Action: "goto", Target: "https://shop.example"},
		{Action: "click", Target: `text="Deals"`},
	}})

	want := []string{"navigate https://shop.example", "cookies", `click text="Deals"`, "settle"}
	if len(sess.calls) != len(want) {
		t.Fatalf("calls: %v", sess.calls)
	}
	for i := range want {
		if sess.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, sess.calls[i], want[i])
		}
	}
}

func TestExecuteTimeoutFailureCapturesDiagnostics(t *testing.T) {
	sess := &fakeSession{
		failOn:   "click",
		failWith: &browser.TimeoutError{Msg: "no element matched"},
	}
	r := newTestRunner(t, sess)

	res := r.Execute(context.Background(), "run-3", loginPlan())

	if res.Status != store.StatusFailed || res.FailedStep != 4 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.Error, "no element matched") {
		t.Errorf("error not carried: %s", res.Error)
	}
	if len(res.Steps) != 4 {
		t.Fatalf("run should stop at the failing step, got %d records", len(res.Steps))
	}
	if res.Steps[3].Status != store.StatusFailed {
		t.Errorf("failed step status %s", res.Steps[3].Status)
	}

	if len(res.Artifacts) != 2 {
		t.Fatalf("expected failure screenshot + dom dump, got %+v", res.Artifacts)
	}
	if !strings.HasSuffix(res.Artifacts[0].Path, "step-4-timeout.png") {
		t.Errorf("timeout screenshot name: %s", res.Artifacts[0].Path)
	}
	if res.Artifacts[1].Type != "dom" || !strings.HasSuffix(res.Artifacts[1].Path, "step-4-dom.html") {
		t.Errorf("dom artifact: %+v", res.Artifacts[1])
	}
}

func TestExecuteNonTimeoutFailureTag(t *testing.T) {
	sess := &fakeSession{
		failOn:   "assert_text",
		failWith: fmt.Errorf("assertion failed: .welcome does not contain %q", "Welcome"),
	}
	r := newTestRunner(t, sess)

	res := r.Execute(context.Background(), "run-4", loginPlan())

	if res.FailedStep != 5 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.HasSuffix(res.Artifacts[0].Path, "step-5-error.png") {
		t.Errorf("assertion failures are not timeouts: %s", res.Artifacts[0].Path)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	sess := &fakeSession{}
	r := newTestRunner(t, sess)

	res := r.Execute(context.Background(), "run-5", dsl.Plan{Steps: []dsl.Step{
		{Action: "hover", Target: "css=.menu"},
	}})

	if res.Status != store.StatusFailed || res.FailedStep != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.Error, "unknown action") {
		t.Errorf("error: %s", res.Error)
	}
}

func TestExecuteSessionStartFailure(t *testing.T) {
	r := New(func(context.Context) (Session, error) {
		return nil, fmt.Errorf("chrome not found")
	}, Options{OutputDir: t.TempDir()})

	res := r.Execute(context.Background(), "run-6", loginPlan())

	if res.Status != store.StatusFailed || len(res.Steps) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.Error, "failed to start browser session") {
		t.Errorf("error: %s", res.Error)
	}
}
