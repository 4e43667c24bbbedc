package agent

import (
	"context"
	"strings"

	"github.com/hupe1980/agentloop/core"
)

// Operator is the human (or scripted) side of a session.
//
// Emit receives observational progress events and must not influence
// control flow. NextTask asks for the next piece of work; a quit sentinel
// (see IsQuit) ends the whole session rather than just the current task.
type Operator interface {
	Emit(ctx context.Context, ev core.Event)
	NextTask(ctx context.Context) (string, error)
}

// IsQuit reports whether s is a session-ending reply: empty, "quit", "exit"
// or "q" (case-insensitive, surrounding whitespace ignored).
func IsQuit(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "quit", "exit", "q":
		return true
	default:
		return false
	}
}
