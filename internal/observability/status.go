package observability

import (
	"sync"
	"time"
)

// SystemStatus tracks what the engine is doing for the live dashboard.
type SystemStatus struct {
	mu            sync.RWMutex
	ActiveRuns    int
	TotalRuns     int
	LastRunID     string
	LastQuery     string
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	LastHeartbeat: time.Now(),
}

// RunStarted records a new in-flight run.
func RunStarted(runID, query string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.ActiveRuns++
	globalStatus.TotalRuns++
	globalStatus.LastRunID = runID
	globalStatus.LastQuery = query
}

// RunFinished decrements the in-flight counter.
func RunFinished() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	if globalStatus.ActiveRuns > 0 {
		globalStatus.ActiveRuns--
	}
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (active, total int, lastRunID, lastQuery string, lastHB time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.ActiveRuns, globalStatus.TotalRuns,
		globalStatus.LastRunID, globalStatus.LastQuery, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
