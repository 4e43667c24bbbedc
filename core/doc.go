// Package core provides the foundational domain types shared by the agent
// loop packages:
//
//   - Segments (closed sum type of parsed assistant output: text or tool invocation)
//   - TurnState (per-request presentation cursor, readiness and cancellation signals)
//   - PendingResult (tool outcomes fed back into the next request)
//   - History (append-only conversation owned by one task)
//   - Event (observational records handed to the operator)
//
// The package intentionally keeps parsing, backend access and tool execution
// out of scope so every other package can depend on it without cycles.
package core
