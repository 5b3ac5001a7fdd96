package gateway

import (
	"fmt"
	"strings"

	"github.com/arjun/flowtest/internal/orchestrator"
	"github.com/arjun/flowtest/internal/store"
)

// Messenger defines the interface for communication gateways (Telegram, Discord, etc.)
type Messenger interface {
	// Start begins the message listening loop
	Start() error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Runs is the orchestrator surface every gateway drives: submit a run, poll a
// run. Gateways never touch the store directly.
type Runs interface {
	StartRun(req orchestrator.RunRequest) string
	GetRun(runID string) store.RunSnapshot
}

// FormatSnapshot renders a run snapshot as chat-friendly text.
func FormatSnapshot(runID string, snap store.RunSnapshot) string {
	if len(snap.Run) == 0 {
		return fmt.Sprintf("Run %s not found.", runID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s\n", runID, snap.Run["status"])
	if q := snap.Run["query"]; q != "" {
		fmt.Fprintf(&b, "Query: %s\n", q)
	}
	if e := snap.Run["error"]; e != "" {
		fmt.Fprintf(&b, "Error: %s\n", e)
	}
	for _, s := range snap.Steps {
		fmt.Fprintf(&b, "  %d. %s %s — %s\n", s.Step, s.Action, s.Target, s.Status)
	}
	if len(snap.Artifacts) > 0 {
		fmt.Fprintf(&b, "Artifacts:\n")
		for _, a := range snap.Artifacts {
			fmt.Fprintf(&b, "  [%s] %s\n", a.Type, a.Path)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
