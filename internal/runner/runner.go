package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/arjun/flowtest/internal/browser"
	"github.com/arjun/flowtest/internal/dsl"
	"github.com/arjun/flowtest/internal/store"
)

// Result is the complete outcome of executing one plan: a final status, the
// per-step ledger, and the artifacts produced along the way. FailedStep is
// zero when the run passed.
type Result struct {
	Status     string
	FailedStep int
	Error      string
	Steps      []store.StepRecord
	Artifacts  []store.Artifact
}

// Executor is the run submission boundary the orchestrator depends on. The
// in-process Runner satisfies it today; the shape leaves room for a remote
// execution service later.
type Executor interface {
	Execute(ctx context.Context, runID string, plan dsl.Plan) Result
}

// Session is the browser surface one plan executes against.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, target dsl.Target) error
	Fill(ctx context.Context, target dsl.Target, value string) error
	SelectOption(ctx context.Context, target dsl.Target, value string) error
	AssertVisible(ctx context.Context, target dsl.Target) error
	AssertText(ctx context.Context, target dsl.Target, text string) error
	Screenshot(ctx context.Context, path string) error
	DOMSnapshot(ctx context.Context) (string, error)
	DismissCookieBanner(ctx context.Context)
	WaitSettled(ctx context.Context)
	Close()
}

// SessionFactory opens a fresh browser session. One session serves one plan.
type SessionFactory func(ctx context.Context) (Session, error)

// Runner interprets a plan step by step against a browser session.
type Runner struct {
	newSession SessionFactory
	outputDir  string
	stepBudget time.Duration
	writeFile  func(path string, data []byte) error
}

// Options configures a Runner. StepBudget is the outer bound for a whole step
// including its fallback cascades; the session applies its own tighter
// per-phase budgets inside it.
type Options struct {
	OutputDir  string
	StepBudget time.Duration
}

func New(factory SessionFactory, opts Options) *Runner {
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join("logs", "test_runs")
	}
	if opts.StepBudget <= 0 {
		opts.StepBudget = 60 * time.Second
	}
	return &Runner{
		newSession: factory,
		outputDir:  opts.OutputDir,
		stepBudget: opts.StepBudget,
		writeFile:  writeArtifactFile,
	}
}

// Execute runs the plan to completion or first failure. Every attempted step
// gets exactly one record; a failing step stops the run and triggers failure
// diagnostics (screenshot tagged by failure kind, plus a DOM snapshot).
func (r *Runner) Execute(ctx context.Context, runID string, plan dsl.Plan) Result {
	res := Result{Status: store.StatusPassed}

	sess, err := r.newSession(ctx)
	if err != nil {
		res.Status = store.StatusFailed
		res.Error = fmt.Sprintf("failed to start browser session: %v", err)
		return res
	}
	defer sess.Close()

	for i, step := range plan.Steps {
		n := i + 1
		res.Steps = append(res.Steps, store.StepRecord{
			Step:   n,
			Action: step.Action,
			Target: step.Target,
			Status: store.StatusRunning,
		})
		log.Printf("[runner] run %s step %d: %s %s", runID, n, step.Action, step.Target)

		err := r.runStep(ctx, sess, runID, n, plan, step, &res)
		if err == nil {
			res.Steps[i].Status = store.StatusPassed
			continue
		}

		res.Steps[i].Status = store.StatusFailed
		res.Status = store.StatusFailed
		res.FailedStep = n
		res.Error = err.Error()
		log.Printf("[runner] run %s step %d failed: %v", runID, n, err)
		r.captureFailure(ctx, sess, runID, n, err, &res)
		break
	}
	return res
}

func (r *Runner) runStep(ctx context.Context, sess Session, runID string, n int, plan dsl.Plan, step dsl.Step, res *Result) error {
	sctx, cancel := context.WithTimeout(ctx, r.stepBudget)
	defer cancel()

	switch step.Action {
	case "goto":
		raw := step.Target
		if raw == "" {
			raw = step.Value
		}
		return sess.Navigate(sctx, dsl.MakeURL(raw, plan.BaseURL))
	case "click":
		sess.DismissCookieBanner(sctx)
		if err := sess.Click(sctx, dsl.ParseTarget(step.Target)); err != nil {
			return err
		}
		sess.WaitSettled(sctx)
		return nil
	case "fill":
		sess.DismissCookieBanner(sctx)
		return sess.Fill(sctx, dsl.ParseTarget(step.Target), step.Value)
	case "select":
		sess.DismissCookieBanner(sctx)
		if err := sess.SelectOption(sctx, dsl.ParseTarget(step.Target), step.Value); err != nil {
			return err
		}
		sess.WaitSettled(sctx)
		return nil
	case "assert_visible":
		sess.DismissCookieBanner(sctx)
		return sess.AssertVisible(sctx, dsl.ParseTarget(step.Target))
	case "assert_text":
		sess.DismissCookieBanner(sctx)
		return sess.AssertText(sctx, dsl.ParseTarget(step.Target), step.Value)
	case "screenshot":
		name := step.Value
		if name == "" {
			name = fmt.Sprintf("step-%d", n)
		}
		path := filepath.Join(r.outputDir, runID, name+".png")
		if err := sess.Screenshot(sctx, path); err != nil {
			return err
		}
		res.Artifacts = append(res.Artifacts, store.Artifact{Type: "screenshot", Path: path, Step: n})
		return nil
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// captureFailure records diagnostics for the step that broke the run. Capture
// trouble is logged and swallowed: the run already has its real error.
func (r *Runner) captureFailure(ctx context.Context, sess Session, runID string, n int, cause error, res *Result) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 20*time.Second)
	defer cancel()

	kind := "error"
	if browser.IsTimeout(cause) {
		kind = "timeout"
	}

	shot := filepath.Join(r.outputDir, runID, fmt.Sprintf("step-%d-%s.png", n, kind))
	if err := sess.Screenshot(cctx, shot); err != nil {
		log.Printf("[runner] run %s: failure screenshot: %v", runID, err)
	} else {
		res.Artifacts = append(res.Artifacts, store.Artifact{Type: "screenshot", Path: shot, Step: n})
	}

	html, err := sess.DOMSnapshot(cctx)
	if err != nil {
		log.Printf("[runner] run %s: dom snapshot: %v", runID, err)
		return
	}
	dump := filepath.Join(r.outputDir, runID, fmt.Sprintf("step-%d-dom.html", n))
	if err := r.writeFile(dump, []byte(html)); err != nil {
		log.Printf("[runner] run %s: dom dump: %v", runID, err)
		return
	}
	res.Artifacts = append(res.Artifacts, store.Artifact{Type: "dom", Path: dump, Step: n})
}

func writeArtifactFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
