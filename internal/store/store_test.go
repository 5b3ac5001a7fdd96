package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func backends(t *testing.T) map[string]RunStore {
	t.Helper()
	dir := t.TempDir()
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "runs.db"), 3600)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]RunStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestCreateAndGetRun(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.CreateRun("r1", map[string]string{"query": "checkout test"})
			snap := s.GetRun("r1")
			if snap.Run["status"] != StatusQueued {
				t.Errorf("status = %q", snap.Run["status"])
			}
			if snap.Run["query"] != "checkout test" {
				t.Errorf("meta missing: %v", snap.Run)
			}
			if snap.Run["started_at"] != "" || snap.Run["ended_at"] != "" {
				t.Errorf("timestamps should be blank: %v", snap.Run)
			}
		})
	}
}

func TestUnknownRunIsEmpty(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			snap := s.GetRun("never-created")
			if len(snap.Run) != 0 || len(snap.Steps) != 0 || len(snap.Artifacts) != 0 {
				t.Errorf("expected empty snapshot, got %+v", snap)
			}
		})
	}
}

func TestTimestampsStampedOnce(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.CreateRun("r1", nil)
			s.UpdateStatus("r1", StatusRunning, nil)
			started := s.GetRun("r1").Run["started_at"]
			if started == "" {
				t.Fatal("started_at not stamped on running")
			}
			if s.GetRun("r1").Run["ended_at"] != "" {
				t.Fatal("ended_at stamped before terminal")
			}

			s.UpdateStatus("r1", StatusFailed, map[string]string{"error": "boom"})
			ended := s.GetRun("r1").Run["ended_at"]
			if ended == "" {
				t.Fatal("ended_at not stamped on terminal")
			}

			// Re-entering the same terminal status must not re-stamp.
			time.Sleep(1100 * time.Millisecond)
			s.UpdateStatus("r1", StatusFailed, nil)
			snap := s.GetRun("r1")
			if snap.Run["ended_at"] != ended {
				t.Errorf("ended_at changed: %q -> %q", ended, snap.Run["ended_at"])
			}
			if snap.Run["started_at"] != started {
				t.Errorf("started_at changed: %q -> %q", started, snap.Run["started_at"])
			}
			if snap.Run["error"] != "boom" {
				t.Errorf("fields not merged: %v", snap.Run)
			}
		})
	}
}

func TestStepOrderingAndInPlaceTransition(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.CreateRun("r1", nil)
			for i := 1; i <= 3; i++ {
				s.AddStep("r1", StepRecord{Step: i, Action: "click", Target: "t", Status: "running"})
				s.SetStepStatus("r1", i, StatusPassed)
			}
			snap := s.GetRun("r1")
			if len(snap.Steps) != 3 {
				t.Fatalf("expected 3 records, got %d", len(snap.Steps))
			}
			for i, rec := range snap.Steps {
				if rec.Step != i+1 {
					t.Errorf("step %d out of order: %+v", i, rec)
				}
				if rec.Status != StatusPassed {
					t.Errorf("step %d not transitioned: %+v", i, rec)
				}
			}

			// Terminal records are immutable.
			s.SetStepStatus("r1", 2, StatusFailed)
			if got := s.GetRun("r1").Steps[1].Status; got != StatusPassed {
				t.Errorf("terminal step mutated to %q", got)
			}
		})
	}
}

func TestArtifactsAppendOnly(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.CreateRun("r1", nil)
			s.AddArtifact("r1", Artifact{Type: "screenshot", Path: "a.png", Step: 1})
			s.AddArtifact("r1", Artifact{Type: "screenshot", Path: "b.png", Step: 2})
			snap := s.GetRun("r1")
			if len(snap.Artifacts) != 2 || snap.Artifacts[0].Path != "a.png" || snap.Artifacts[1].Path != "b.png" {
				t.Errorf("got %+v", snap.Artifacts)
			}
		})
	}
}

func TestRunsAreNamespaced(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.CreateRun("a", nil)
			s.CreateRun("b", nil)
			s.AddStep("a", StepRecord{Step: 1, Action: "goto", Status: "running"})
			if got := s.GetRun("b").Steps; len(got) != 0 {
				t.Errorf("run b sees run a's steps: %+v", got)
			}
		})
	}
}

func TestCatalogCache(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if got := s.CachedCatalog("missing"); got != nil {
				t.Errorf("expected nil on miss, got %q", got)
			}
			s.CacheCatalog("Doc.docx", []byte(`{"test_cases":[]}`))
			if got := string(s.CachedCatalog("Doc.docx")); got != `{"test_cases":[]}` {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestNewFallsBackToMemory(t *testing.T) {
	s := New(Options{Type: "sqlite", Path: filepath.Join(string(os.PathSeparator), "no", "such", "dir", "x.db")})
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected memory fallback, got %T", s)
	}
}
