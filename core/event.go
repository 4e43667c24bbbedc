package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies an operator-facing progress event.
type EventKind string

const (
	// EventText carries a finalized text segment.
	EventText EventKind = "text"
	// EventToolCall announces that a tool segment is about to run.
	EventToolCall EventKind = "tool_call"
	// EventToolResult carries the textual result of a tool.
	EventToolResult EventKind = "tool_result"
	// EventCompletion carries the result reported by the completion tool.
	EventCompletion EventKind = "completion"
	// EventUsage reports token accounting for one backend request.
	EventUsage EventKind = "usage"
	// EventError reports a fatal turn error.
	EventError EventKind = "error"
)

// Usage is the token accounting reported at the end of a backend stream.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Event is a purely observational record handed to the operator. Events
// never influence control flow. After emission it should be treated as
// immutable.
type Event struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	TurnID    string    `json:"turn_id,omitempty"`
	Kind      EventKind `json:"kind"`
	Tool      ToolName  `json:"tool,omitempty"`
	Text      string    `json:"text,omitempty"`
	Usage     *Usage    `json:"usage,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates a bare event of the given kind bound to a task and turn.
func NewEvent(taskID, turnID string, kind EventKind) Event {
	return Event{
		ID:        NewID(),
		TaskID:    taskID,
		TurnID:    turnID,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

// NewTextEvent wraps a presented text segment.
func NewTextEvent(taskID, turnID, text string) Event {
	e := NewEvent(taskID, turnID, EventText)
	e.Text = text
	return e
}

// NewToolCallEvent announces a tool invocation.
func NewToolCallEvent(taskID, turnID string, name ToolName) Event {
	e := NewEvent(taskID, turnID, EventToolCall)
	e.Tool = name
	return e
}

// NewToolResultEvent records the textual result of a tool invocation.
func NewToolResultEvent(taskID, turnID string, name ToolName, result string) Event {
	e := NewEvent(taskID, turnID, EventToolResult)
	e.Tool = name
	e.Text = result
	return e
}

// NewCompletionEvent records the result reported through the completion tool.
func NewCompletionEvent(taskID, turnID, result string) Event {
	e := NewEvent(taskID, turnID, EventCompletion)
	e.Tool = ToolAttemptCompletion
	e.Text = result
	return e
}

// NewUsageEvent records token usage for one backend request.
func NewUsageEvent(taskID, turnID string, usage Usage) Event {
	e := NewEvent(taskID, turnID, EventUsage)
	e.Usage = &usage
	return e
}

// NewErrorEvent records a fatal turn error.
func NewErrorEvent(taskID, turnID string, err error) Event {
	e := NewEvent(taskID, turnID, EventError)
	if err != nil {
		e.Text = err.Error()
	}
	return e
}

// NewID generates a new unique identifier for tasks, turns and events.
func NewID() string { return uuid.NewString() }

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
