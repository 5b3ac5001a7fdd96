package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/arjun/flowtest/internal/dsl"
	"github.com/arjun/flowtest/internal/observability"
	"github.com/arjun/flowtest/internal/retrieval"
	"github.com/arjun/flowtest/internal/runner"
	"github.com/arjun/flowtest/internal/store"
	"github.com/arjun/flowtest/internal/testcase"
)

// Actionable failure messages for input-class errors. They go into the run
// record verbatim so every surface shows the same guidance.
const (
	msgNoRelevantCases = "No relevant test cases found. Ingest the doc or pass doc=YourDoc.docx"
	msgNoMatchingCase  = "No matching test case found. Ingest the doc or pass doc=YourDoc.docx"
	msgEmptyPlan       = "Generated DSL is empty"
)

// RunRequest is everything a surface collects before starting a run.
type RunRequest struct {
	Query       string
	Tags        []string
	DocFilename string
	BaseURL     string
	Overrides   map[string]string
}

// Notifier receives run-completion summaries. Optional.
type Notifier interface {
	NotifyRunFinished(runID, status, detail string)
}

// CaseExtractor turns retrieved document context into test cases.
type CaseExtractor interface {
	Extract(ctx context.Context, contextText string) []testcase.TestCase
}

// PlanGenerator renders a selected case into an executable plan.
type PlanGenerator interface {
	Generate(ctx context.Context, tc testcase.TestCase, baseURL string, testData map[string]string) dsl.Plan
}

// Orchestrator drives the whole pipeline for each run: retrieval, catalog
// extraction (cached per document), case selection, DSL generation, execution,
// and state mirroring. Submission is asynchronous; callers poll by run id.
type Orchestrator struct {
	store     store.RunStore
	retriever retrieval.Retriever
	extractor CaseExtractor
	generator PlanGenerator
	executor  runner.Executor
	logger    *observability.Logger
	notifier  Notifier
	topK      int

	wg sync.WaitGroup
}

type Options struct {
	TopK int
}

func New(st store.RunStore, ret retrieval.Retriever, ex CaseExtractor, gen PlanGenerator, exec runner.Executor, logger *observability.Logger, opts Options) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = 6
	}
	return &Orchestrator{
		store:     st,
		retriever: ret,
		extractor: ex,
		generator: gen,
		executor:  exec,
		logger:    logger,
		topK:      opts.TopK,
	}
}

// SetNotifier attaches an optional completion hook. Must be called before the
// first StartRun.
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.notifier = n
}

// StartRun creates the run record and hands the rest of the pipeline to a
// supervised goroutine. It returns immediately with the new run id.
func (o *Orchestrator) StartRun(req RunRequest) string {
	runID := uuid.NewString()
	o.store.CreateRun(runID, map[string]string{
		"query":        req.Query,
		"doc_filename": req.DocFilename,
		"tags":         strings.Join(req.Tags, ","),
	})
	o.logger.LogRun(runID, store.StatusQueued, req.Query)
	observability.RunStarted(runID, req.Query)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer observability.RunFinished()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[orchestrator] run %s panicked: %v", runID, r)
				o.finish(runID, store.StatusFailed, map[string]string{
					"error": fmt.Sprintf("internal error: %v", r),
				})
			}
		}()
		o.runFlow(context.Background(), runID, req)
	}()
	return runID
}

// GetRun returns the current snapshot for a run id. Unknown ids yield empty
// structures; surfaces decide how to present that.
func (o *Orchestrator) GetRun(runID string) store.RunSnapshot {
	return o.store.GetRun(runID)
}

// Shutdown waits for in-flight runs to drain, or for ctx to give up.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown interrupted with runs still in flight: %v", ctx.Err())
	}
}

func (o *Orchestrator) runFlow(ctx context.Context, runID string, req RunRequest) {
	o.store.UpdateStatus(runID, store.StatusRunning, nil)
	o.logger.LogRun(runID, store.StatusRunning, "")

	chunks, err := o.retriever.Retrieve(ctx, req.Query, o.topK, req.DocFilename)
	if err != nil {
		log.Printf("[orchestrator] run %s: retrieval failed: %v", runID, err)
	}
	if len(chunks) == 0 {
		o.finish(runID, store.StatusFailed, map[string]string{"error": msgNoRelevantCases})
		return
	}

	cases := o.catalogFor(ctx, req.DocFilename, chunks)
	if len(cases) == 0 {
		o.finish(runID, store.StatusFailed, map[string]string{"error": msgNoRelevantCases})
		return
	}

	tc := testcase.Select(cases, req.Query, req.Tags, nil)
	if tc == nil {
		o.finish(runID, store.StatusFailed, map[string]string{"error": msgNoMatchingCase})
		return
	}
	log.Printf("[orchestrator] run %s: selected case %s (%s)", runID, tc.ID, tc.Scenario)
	o.store.UpdateStatus(runID, store.StatusRunning, map[string]string{"test_case_id": tc.ID})

	data := testcase.MergeData(tc.TestData.Map(), req.Overrides)
	plan := o.generator.Generate(ctx, *tc, req.BaseURL, data)
	if plan.BaseURL == "" {
		plan.BaseURL = req.BaseURL
	}
	dsl.SubstitutePlaceholders(&plan, data)
	if len(plan.Steps) == 0 {
		o.finish(runID, store.StatusFailed, map[string]string{"error": msgEmptyPlan})
		return
	}

	result := o.executor.Execute(ctx, runID, plan)
	o.mirror(runID, result)

	if result.Status == store.StatusPassed {
		o.finish(runID, store.StatusPassed, nil)
		return
	}
	o.finish(runID, store.StatusFailed, map[string]string{
		"error":       result.Error,
		"failed_step": strconv.Itoa(result.FailedStep),
	})
}

// catalogFor returns the extracted test cases for a document, going through
// the per-document cache. The cache never invalidates on its own; re-ingesting
// under a new filename gets a new key.
func (o *Orchestrator) catalogFor(ctx context.Context, docFilename string, chunks []retrieval.Chunk) []testcase.TestCase {
	key := docFilename
	if key == "" {
		key = "default"
	}

	if blob := o.store.CachedCatalog(key); blob != nil {
		var catalog testcase.Catalog
		if err := json.Unmarshal(blob, &catalog); err == nil {
			log.Printf("[orchestrator] catalog cache hit for %q (%d cases)", key, len(catalog.TestCases))
			return catalog.TestCases
		}
		log.Printf("[orchestrator] discarding unreadable catalog cache for %q", key)
	}

	cases := o.extractor.Extract(ctx, retrieval.FormatContext(chunks))
	if len(cases) == 0 {
		return nil
	}
	if blob, err := json.Marshal(testcase.Catalog{TestCases: cases}); err == nil {
		o.store.CacheCatalog(key, blob)
	}
	return cases
}

// mirror copies the executor's step and artifact ledger into the store so
// pollers see the same records the runner produced.
func (o *Orchestrator) mirror(runID string, result runner.Result) {
	for _, rec := range result.Steps {
		final := rec.Status
		rec.Status = store.StatusRunning
		o.store.AddStep(runID, rec)
		if final != store.StatusRunning {
			o.store.SetStepStatus(runID, rec.Step, final)
		}
		o.logger.LogStep(runID, rec.Step, rec.Action, rec.Target, final)
	}
	for _, a := range result.Artifacts {
		o.store.AddArtifact(runID, a)
		o.logger.LogArtifact(runID, a.Type, a.Path, a.Step)
	}
}

func (o *Orchestrator) finish(runID, status string, fields map[string]string) {
	o.store.UpdateStatus(runID, status, fields)
	detail := ""
	if fields != nil {
		detail = fields["error"]
	}
	o.logger.LogRun(runID, status, detail)
	if o.notifier != nil {
		o.notifier.NotifyRunFinished(runID, status, detail)
	}
}
