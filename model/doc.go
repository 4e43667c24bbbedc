// Package model defines the backend stream abstraction consumed by the turn
// controller.
//
// A backend opens one stream per request and yields zero or more text deltas
// followed by a single usage report. Failures to open or read a stream are
// wrapped in BackendError so callers can report the provider.
//
// Providers (Anthropic, OpenAI) live in subpackages and adapt their vendor
// SDK streams to this interface. ScriptedModel replays fixed turns for tests
// and examples.
package model
