// Package tool implements the tool calling subsystem: the Tool contract, a
// FunctionTool adapter with schema validated arguments, the built-in
// filesystem, command and completion tools, and the Dispatcher that turns a
// parsed tool segment into a textual result without ever failing the turn.
package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/agentloop/internal/util"
)

// Error codes carried by ToolError.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeUnknownTool = "UNKNOWN_TOOL"
	CodePanic       = "PANIC"
)

// Tool defines the interface for capabilities the model can invoke through
// tool tags.
//
// Arguments arrive as the raw string parameters of a tool segment. The
// returned string is fed back to the model verbatim on the next turn.
type Tool interface {
	// Name returns the unique tag name for this tool (snake_case).
	Name() string

	// Description returns a human-readable description used in the system prompt.
	Description() string

	// Parameters returns a JSON schema describing the accepted parameters.
	Parameters() map[string]any

	// Call executes the tool. Implementations should honor ctx cancellation
	// for long running work.
	Call(ctx context.Context, args map[string]string) (string, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Usage renders the tag-format example for t, listing its parameters in
// schema order (required first, then alphabetical).
func Usage(t Tool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%s>\n", t.Name())
	for _, p := range parameterNames(t.Parameters()) {
		fmt.Fprintf(&b, "<%s>%s</%s>\n", p.name, p.hint, p.name)
	}
	fmt.Fprintf(&b, "</%s>", t.Name())
	return b.String()
}

type paramHint struct {
	name string
	hint string
}

func parameterNames(schema map[string]any) []paramHint {
	props, _ := schema["properties"].(map[string]any)
	required := map[string]bool{}
	switch req := schema["required"].(type) {
	case []string:
		for _, r := range req {
			required[r] = true
		}
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	out := make([]paramHint, 0, len(props))
	for name, raw := range props {
		hint := name
		if m, ok := raw.(map[string]any); ok {
			if d, ok := m["description"].(string); ok && d != "" {
				hint = d
			}
		}
		out = append(out, paramHint{name: name, hint: hint})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := required[out[i].name], required[out[j].name]
		if ri != rj {
			return ri
		}
		return out[i].name < out[j].name
	})
	return out
}
