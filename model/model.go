package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// ErrNoMessages is returned when a request carries an empty conversation.
var ErrNoMessages = errors.New("no messages provided")

// ResponseKind distinguishes text deltas from the final usage report.
type ResponseKind string

const (
	// ResponseText carries an incremental text delta.
	ResponseText ResponseKind = "text"
	// ResponseUsage carries the token accounting, emitted once before the
	// stream completes.
	ResponseUsage ResponseKind = "usage"
)

// Request captures the normalized model input for one turn.
type Request struct {
	SystemPrompt string         `json:"system_prompt"`
	Messages     []core.Message `json:"messages"`
}

// Response is one event of a streaming backend: zero or more text deltas
// followed by exactly one usage report.
type Response struct {
	Kind  ResponseKind `json:"kind"`
	Delta string       `json:"delta,omitempty"`
	Usage *core.Usage  `json:"usage,omitempty"`
}

// TextResponse is a convenience constructor for a text delta.
func TextResponse(delta string) Response { return Response{Kind: ResponseText, Delta: delta} }

// UsageResponse is a convenience constructor for the usage report.
func UsageResponse(in, out int) Response {
	return Response{Kind: ResponseUsage, Usage: &core.Usage{InputTokens: in, OutputTokens: out}}
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "anthropic", "openai", "scripted", ...
}

// Model is the backend stream adapter consumed by the turn controller.
//
// Generate opens one stream per call. Both channels are closed when the
// stream ends; an abnormal termination sends exactly one error on the error
// channel before it is closed.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// BackendError wraps a failure to open or read a backend stream.
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend error: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error { return e.Err }

// Turn configures one scripted backend stream.
type Turn struct {
	Responses []Response
	Err       error // sent after Responses when non-nil
}

// ScriptedModel is a deterministic Model for tests and examples. Each call
// to Generate replays the next Turn of the script.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	turns    []Turn
	index    int
	requests []Request
}

var _ Model = (*ScriptedModel)(nil)

// NewScriptedModel returns a ScriptedModel replaying turns in order.
func NewScriptedModel(turns ...Turn) *ScriptedModel {
	cloned := make([]Turn, len(turns))
	copy(cloned, turns)
	return &ScriptedModel{
		info:  Info{Name: "scripted", Provider: "scripted"},
		turns: cloned,
	}
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, cloneRequest(req))
	var (
		turn      Turn
		exhausted = m.index >= len(m.turns)
	)
	if !exhausted {
		turn = m.turns[m.index]
		m.index++
	}
	step := m.index
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if len(req.Messages) == 0 {
			errCh <- ErrNoMessages
			return
		}
		if exhausted {
			errCh <- fmt.Errorf("script exhausted at step %d", step+1)
			return
		}
		for _, r := range turn.Responses {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case respCh <- r:
			}
		}
		if turn.Err != nil {
			errCh <- turn.Err
		}
	}()

	return respCh, errCh
}

// Requests returns a copy of every request received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	for i, r := range m.requests {
		out[i] = cloneRequest(r)
	}
	return out
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }

func cloneRequest(r Request) Request {
	msgs := make([]core.Message, len(r.Messages))
	copy(msgs, r.Messages)
	return Request{SystemPrompt: r.SystemPrompt, Messages: msgs}
}
