package store

import "log"

// Run statuses.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusBlocked = "blocked"
)

// StepRecord is one attempted step of a run, 1-based and ordered. A record
// transitions running→passed/failed in place and is immutable once terminal.
type StepRecord struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Target string `json:"target"`
	Status string `json:"status"`
}

// Artifact is a file produced during a run, associated with a step.
type Artifact struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Step int    `json:"step"`
}

// RunSnapshot is what pollers see. An unknown run id yields empty structures;
// callers distinguish "not found" by emptiness of the Run map.
type RunSnapshot struct {
	Run       map[string]string `json:"run"`
	Steps     []StepRecord      `json:"steps"`
	Artifacts []Artifact        `json:"artifacts"`
}

// RunStore tracks run metadata, ordered step logs and artifacts, plus the
// per-document test-case catalog cache. All keys are namespaced by run id or
// cache key, and per-run operations are safe for concurrent use.
type RunStore interface {
	CreateRun(runID string, meta map[string]string)
	UpdateStatus(runID, status string, fields map[string]string)
	AddStep(runID string, rec StepRecord)
	SetStepStatus(runID string, step int, status string)
	AddArtifact(runID string, a Artifact)
	GetRun(runID string) RunSnapshot
	CacheCatalog(key string, blob []byte)
	CachedCatalog(key string) []byte
	Close() error
}

// Options selects the backend once at startup; backends are never mixed
// per call.
type Options struct {
	Type       string // "sqlite" or "memory"
	Path       string
	TTLSeconds int
}

// New returns the configured store, degrading to the in-memory store when the
// durable backend cannot be opened. Run tracking is non-durable by design, so
// backend trouble is logged rather than surfaced.
func New(opts Options) RunStore {
	if opts.Type == "sqlite" && opts.Path != "" {
		s, err := NewSQLiteStore(opts.Path, opts.TTLSeconds)
		if err != nil {
			log.Printf("[store] sqlite unavailable, using memory store: %v", err)
			return NewMemoryStore()
		}
		log.Printf("[store] sqlite enabled at %s", opts.Path)
		return s
	}
	return NewMemoryStore()
}

func isTerminal(status string) bool {
	return status == StatusPassed || status == StatusFailed || status == StatusBlocked
}
