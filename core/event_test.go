package core

import (
	"errors"
	"testing"
)

// Event constructor & helper tests
func TestEvent_Constructors(t *testing.T) {
	e := NewEvent("task-1", "turn-1", EventText)
	if e.TaskID != "task-1" || e.TurnID != "turn-1" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}

	text := NewTextEvent("task", "turn", "hello")
	if text.Kind != EventText || text.Text != "hello" {
		t.Fatalf("NewTextEvent malformed: %+v", text)
	}

	call := NewToolCallEvent("task", "turn", ToolReadFile)
	if call.Kind != EventToolCall || call.Tool != ToolReadFile {
		t.Fatalf("NewToolCallEvent malformed: %+v", call)
	}

	res := NewToolResultEvent("task", "turn", ToolListFiles, "Contents of .:")
	if res.Kind != EventToolResult || res.Tool != ToolListFiles || res.Text == "" {
		t.Fatalf("NewToolResultEvent malformed: %+v", res)
	}

	done := NewCompletionEvent("task", "turn", "done")
	if done.Kind != EventCompletion || done.Tool != ToolAttemptCompletion || done.Text != "done" {
		t.Fatalf("NewCompletionEvent malformed: %+v", done)
	}

	usage := NewUsageEvent("task", "turn", Usage{InputTokens: 10, OutputTokens: 3})
	if usage.Usage == nil || usage.Usage.InputTokens != 10 || usage.Usage.OutputTokens != 3 {
		t.Fatalf("NewUsageEvent malformed: %+v", usage)
	}

	failed := NewErrorEvent("task", "turn", errors.New("boom"))
	if failed.Kind != EventError || failed.Text != "boom" {
		t.Fatalf("NewErrorEvent malformed: %+v", failed)
	}
}

func TestEvent_UniqueIDs(t *testing.T) {
	a := NewEvent("t", "", EventText)
	b := NewEvent("t", "", EventText)
	if a.ID == b.ID {
		t.Fatalf("expected unique IDs, got %q twice", a.ID)
	}
	if a.UnixSeconds() <= 0 {
		t.Fatalf("expected positive unix seconds, got %f", a.UnixSeconds())
	}
}
