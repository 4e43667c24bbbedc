package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
)

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	Logger logging.Logger
}

// Dispatcher routes tool segments to registered tools and renders every
// outcome as text. Execute never panics and never returns an error: failures
// become "Error: ..." results so the turn always has something to feed back.
type Dispatcher struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewDispatcher creates a Dispatcher with the given tools registered.
func NewDispatcher(tools []Tool, optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	d := &Dispatcher{tools: make(map[string]Tool, len(tools)), logger: opts.Logger}
	for _, t := range tools {
		d.Register(t)
	}
	return d
}

// NewBuiltinDispatcher creates a Dispatcher holding the built-in tools for workDir.
func NewBuiltinDispatcher(workDir string, optFns ...func(o *DispatcherOptions)) *Dispatcher {
	return NewDispatcher(Builtins(workDir), optFns...)
}

// Register adds or replaces a tool.
func (d *Dispatcher) Register(t Tool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tools[t.Name()] = t
}

// Lookup returns the tool registered under name.
func (d *Dispatcher) Lookup(name string) (Tool, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tools[name]
	return t, ok
}

// Tools returns the registered tools sorted by name.
func (d *Dispatcher) Tools() []Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Tool, 0, len(d.tools))
	for _, t := range d.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Execute runs the invocation and returns its textual result. Names
// outside the enumerated tool set are rejected before lookup.
func (d *Dispatcher) Execute(ctx context.Context, seg core.ToolSegment) string {
	name := seg.Name.String()
	if !seg.Name.IsKnown() {
		d.logger.Warn("tool.call.unknown", "tool", name)
		return "Unknown tool: " + name
	}
	impl, ok := d.Lookup(name)
	if !ok {
		d.logger.Warn("tool.call.unregistered", "tool", name)
		return "Unknown tool: " + name
	}

	d.logger.Debug("tool.call.start", "tool", name)
	start := time.Now()

	result, err := d.call(ctx, impl, seg)

	logging.ToolCall(d.logger, name, time.Since(start), err)
	if err != nil {
		return renderError(err)
	}
	return result
}

// call invokes impl, turning a panic into a CodePanic ToolError.
func (d *Dispatcher) call(ctx context.Context, impl Tool, seg core.ToolSegment) (result string, err error) {
	name := seg.Name.String()
	defer func() {
		if r := recover(); r != nil {
			err = NewToolError(name, fmt.Sprintf("panic recovered: %v", r), CodePanic)
			if tl, ok := d.logger.(*logging.TaskLogger); ok {
				tl.ErrorWithStack(err, "tool.call.panic", "tool", name)
				return
			}
			d.logger.Error("tool.call.panic", "tool", name, "error", err.Error())
		}
	}()
	return impl.Call(ctx, seg.Parameters)
}

func renderError(err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return "Error: " + toolErr.Message
	}
	return "Error: " + err.Error()
}
