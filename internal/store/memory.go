package store

import (
	"sync"
	"time"
)

// MemoryStore is the process-local fallback. Data is lost on restart, which is
// acceptable for this tracking layer.
type MemoryStore struct {
	mu        sync.Mutex
	runs      map[string]map[string]string
	steps     map[string][]StepRecord
	artifacts map[string][]Artifact
	catalogs  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:      make(map[string]map[string]string),
		steps:     make(map[string][]StepRecord),
		artifacts: make(map[string][]Artifact),
		catalogs:  make(map[string][]byte),
	}
}

func (m *MemoryStore) CreateRun(runID string, meta map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := map[string]string{
		"status":     StatusQueued,
		"started_at": "",
		"ended_at":   "",
	}
	for k, v := range meta {
		run[k] = v
	}
	m.runs[runID] = run
}

func (m *MemoryStore) UpdateStatus(runID, status string, fields map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		run = make(map[string]string)
		m.runs[runID] = run
	}
	for k, v := range fields {
		run[k] = v
	}
	run["status"] = status
	stampTimes(run, status)
}

// stampTimes sets started_at/ended_at exactly once, on the first transition
// into running or a terminal status.
func stampTimes(run map[string]string, status string) {
	now := time.Now().UTC().Format(time.RFC3339)
	if status == StatusRunning && run["started_at"] == "" {
		run["started_at"] = now
	}
	if isTerminal(status) && run["ended_at"] == "" {
		run["ended_at"] = now
	}
}

func (m *MemoryStore) AddStep(runID string, rec StepRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[runID] = append(m.steps[runID], rec)
}

func (m *MemoryStore) SetStepStatus(runID string, step int, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.steps[runID]
	for i := range records {
		if records[i].Step == step && !stepTerminal(records[i].Status) {
			records[i].Status = status
			return
		}
	}
}

func (m *MemoryStore) AddArtifact(runID string, a Artifact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[runID] = append(m.artifacts[runID], a)
}

func (m *MemoryStore) GetRun(runID string) RunSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := RunSnapshot{
		Run:       map[string]string{},
		Steps:     []StepRecord{},
		Artifacts: []Artifact{},
	}
	for k, v := range m.runs[runID] {
		snap.Run[k] = v
	}
	snap.Steps = append(snap.Steps, m.steps[runID]...)
	snap.Artifacts = append(snap.Artifacts, m.artifacts[runID]...)
	return snap
}

func (m *MemoryStore) CacheCatalog(key string, blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogs[key] = blob
}

func (m *MemoryStore) CachedCatalog(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalogs[key]
}

func (m *MemoryStore) Close() error { return nil }

func stepTerminal(status string) bool {
	return status == StatusPassed || status == StatusFailed
}
