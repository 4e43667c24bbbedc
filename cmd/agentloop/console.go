package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
)

// consoleOperator renders events as plain terminal output and reads tasks
// line by line.
type consoleOperator struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	// afterCompletion switches the prompt to the follow-up wording.
	afterCompletion bool
}

var _ agent.Operator = (*consoleOperator)(nil)

func newConsoleOperator(in io.Reader, out io.Writer) *consoleOperator {
	return &consoleOperator{in: bufio.NewReader(in), out: out}
}

func (c *consoleOperator) Emit(_ context.Context, ev core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case core.EventText:
		fmt.Fprintln(c.out, ev.Text)
	case core.EventToolCall:
		fmt.Fprintf(c.out, "\n[tool] %s\n", ev.Tool)
	case core.EventToolResult:
		fmt.Fprintf(c.out, "[result] %s\n", ev.Text)
	case core.EventCompletion:
		fmt.Fprintf(c.out, "[done] %s\n", ev.Text)
		c.afterCompletion = true
	case core.EventUsage:
		if ev.Usage != nil {
			fmt.Fprintf(c.out, "[usage] %d in, %d out\n", ev.Usage.InputTokens, ev.Usage.OutputTokens)
		}
	case core.EventError:
		fmt.Fprintf(c.out, "[error] %s\n", ev.Text)
	}
}

// NextTask prompts and reads one line. io.EOF is returned only when the
// input ends without any pending text.
func (c *consoleOperator) NextTask(ctx context.Context) (string, error) {
	c.mu.Lock()
	prompt := "\nTask (or 'quit'): "
	if c.afterCompletion {
		prompt = "\nNext task (or 'quit' to exit): "
		c.afterCompletion = false
	}
	fmt.Fprint(c.out, prompt)
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	line, err := c.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
