package agent

import (
	"github.com/hupe1980/agentloop/internal/util"
	"github.com/hupe1980/agentloop/tool"
)

// DefaultSystemPrompt is the template used when no instruction is configured.
// It is rendered with PromptData.
const DefaultSystemPrompt = `You are a coding assistant working in {{.WorkDir}}.

Available tools:
{{range .Tools}}- {{.Name}}: {{.Description}}
{{end}}
Tool format examples:
{{range .Tools}}{{.Usage}}

{{end}}Use tools systematically to complete tasks. Call attempt_completion when finished.`

// ContinuationPrompt is sent after a turn that used tools.
const ContinuationPrompt = "Continue with the task or call attempt_completion."

// ToolInfo describes one tool in the system prompt.
type ToolInfo struct {
	Name        string
	Description string
	Usage       string
}

// PromptData is the data available to instruction templates.
type PromptData struct {
	WorkDir string
	Tools   []ToolInfo
}

// NewPromptData collects the prompt data for the given tools.
func NewPromptData(workDir string, tools []tool.Tool) PromptData {
	infos := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, ToolInfo{Name: t.Name(), Description: t.Description(), Usage: tool.Usage(t)})
	}
	return PromptData{WorkDir: workDir, Tools: infos}
}

func (d PromptData) state() map[string]any {
	return map[string]any{"WorkDir": d.WorkDir, "Tools": d.Tools}
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(PromptData) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(PromptData) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(d PromptData) (string, error) { return f(d) }

// Instruction represents either a static instruction template or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static template string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(PromptData) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether no instruction was configured.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text. Static text is rendered as a
// template over d; provider output is returned as-is.
func (i Instruction) Resolve(d PromptData) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(d)
	}
	return util.RenderTemplate(i.text, d.state())
}
