package tool

import (
	"context"

	"github.com/hupe1980/agentloop/core"
)

type completionArgs struct {
	Result string `json:"result,omitempty" description:"summary of what was done"`
}

// NewAttemptCompletionTool returns the attempt_completion tool. The presenter
// intercepts completion before dispatch; this implementation only answers
// when it is dispatched directly.
func NewAttemptCompletionTool() *FunctionTool {
	return NewFunctionToolFromStruct(
		core.ToolAttemptCompletion.String(),
		"Mark task as complete",
		completionArgs{},
		func(_ context.Context, args map[string]string) (string, error) {
			result := args["result"]
			if result == "" {
				result = "Done"
			}
			return "Task completed: " + result, nil
		},
	)
}

// Builtins returns the five built-in tools operating on workDir.
func Builtins(workDir string) []Tool {
	if workDir == "" {
		workDir = "."
	}
	return []Tool{
		NewReadFileTool(workDir),
		NewWriteFileTool(workDir),
		NewExecuteCommandTool(workDir),
		NewListFilesTool(workDir),
		NewAttemptCompletionTool(),
	}
}
