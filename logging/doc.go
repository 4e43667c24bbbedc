// Package logging provides a minimal logging interface and adapters for agentloop.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// that the dispatcher, turn controller and task loop use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - TaskLogger with task/turn scoping, tint text output and domain helpers
//   - ZapAdapter for deployments standardized on zap
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	loop := agent.NewTaskLoop(m, d, op, func(o *agent.TaskLoopOptions) { o.Logger = logger })
//
// The interface stays minimal to avoid vendor lock-in while supporting
// structured logging where available.
package logging
