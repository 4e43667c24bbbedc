package agent

import (
	"context"
	"strings"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/tool"
)

// PresenterState names the phases of the presentation state machine.
type PresenterState int

const (
	// StateIdle means nothing is available to present.
	StateIdle PresenterState = iota
	// StatePresentingText emits a finalized text segment.
	StatePresentingText
	// StatePresentingTool dispatches a finalized tool segment.
	StatePresentingTool
	// StateAwaitingCompletion asks the operator for a follow-up task after
	// the completion tool was reached.
	StateAwaitingCompletion
	// StateTaskEnding is terminal for the turn.
	StateTaskEnding
)

// String implements fmt.Stringer.
func (s PresenterState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePresentingText:
		return "presenting_text"
	case StatePresentingTool:
		return "presenting_tool"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateTaskEnding:
		return "task_ending"
	default:
		return "unknown"
	}
}

// Dispatcher executes tool segments. *tool.Dispatcher satisfies it.
type Dispatcher interface {
	Execute(ctx context.Context, seg core.ToolSegment) string
	Tools() []tool.Tool
}

// Completion is the outcome of reaching the completion tool.
type Completion struct {
	Result  string
	Handoff *string // follow-up task supplied by the operator
	Quit    bool    // operator ended the session
}

// Presenter walks a turn's segments left to right, presenting each finalized
// segment exactly once. One Presenter serves one turn.
type Presenter struct {
	taskID     string
	turnID     string
	dispatcher Dispatcher
	operator   Operator
	logger     logging.Logger

	state      PresenterState
	completion *Completion
	presented  []int
}

// NewPresenter creates a presenter for one turn.
func NewPresenter(taskID, turnID string, d Dispatcher, op Operator, logger logging.Logger) *Presenter {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Presenter{
		taskID:     taskID,
		turnID:     turnID,
		dispatcher: d,
		operator:   op,
		logger:     logger,
	}
}

// State returns the current state.
func (p *Presenter) State() PresenterState { return p.state }

// Completion returns the completion outcome, or nil if the completion tool
// was not reached.
func (p *Presenter) Completion() *Completion { return p.completion }

// Presented returns the segment indices presented so far, in order.
func (p *Presenter) Presented() []int {
	out := make([]int, len(p.presented))
	copy(out, p.presented)
	return out
}

// Present advances over every segment of ts that can be presented now. A
// partial segment stops the walk while the stream is live. Once streaming has
// ended and the cursor reaches the end, the turn is marked ready. The only
// error returned is one from the operator or ctx.
func (p *Presenter) Present(ctx context.Context, ts *core.TurnState) error {
	if p.state == StateTaskEnding {
		return nil
	}

	for !ts.Cancelled() {
		if err := ctx.Err(); err != nil {
			ts.Cancel()
			return err
		}

		seg, ok := ts.Current()
		if !ok {
			break
		}
		if seg.IsPartial() && ts.Streaming() {
			break
		}

		switch s := seg.(type) {
		case core.TextSegment:
			p.state = StatePresentingText
			p.operator.Emit(ctx, core.NewTextEvent(p.taskID, p.turnID, s.Content))
		case core.ToolSegment:
			if s.Name == core.ToolAttemptCompletion {
				p.presented = append(p.presented, ts.NextIndex())
				return p.awaitCompletion(ctx, ts, s)
			}
			p.state = StatePresentingTool
			p.presentTool(ctx, ts, s)
		}
		p.presented = append(p.presented, ts.NextIndex())
		ts.Advance()
	}

	if ts.Cancelled() {
		return nil
	}
	p.state = StateIdle
	if !ts.Streaming() && ts.Exhausted() {
		ts.MarkReady()
	}
	return nil
}

func (p *Presenter) presentTool(ctx context.Context, ts *core.TurnState, s core.ToolSegment) {
	p.operator.Emit(ctx, core.NewToolCallEvent(p.taskID, p.turnID, s.Name))
	p.logger.Debug("presenter.tool.dispatch", "tool", s.Name.String(), "index", ts.NextIndex())

	result := p.dispatcher.Execute(ctx, s)

	ts.AddResult(core.PendingResult{Source: s.Name, Text: result})
	p.operator.Emit(ctx, core.NewToolResultEvent(p.taskID, p.turnID, s.Name, result))
}

// awaitCompletion handles the completion tool. It always cancels the turn,
// whatever the operator answers.
func (p *Presenter) awaitCompletion(ctx context.Context, ts *core.TurnState, s core.ToolSegment) error {
	p.state = StateAwaitingCompletion

	result := s.Param("result", "")
	if result == "" {
		result = "Task completed"
	}
	p.operator.Emit(ctx, core.NewToolCallEvent(p.taskID, p.turnID, s.Name))
	p.operator.Emit(ctx, core.NewCompletionEvent(p.taskID, p.turnID, result))
	p.logger.Info("presenter.completion", "result", result)

	next, err := p.operator.NextTask(ctx)

	p.state = StateTaskEnding
	c := &Completion{Result: result}
	p.completion = c
	defer func() {
		ts.Cancel()
		ts.MarkReady()
	}()

	if err != nil {
		c.Quit = true
		return err
	}

	next = strings.TrimSpace(next)
	if IsQuit(next) {
		c.Quit = true
		p.logger.Info("presenter.completion.quit")
		return nil
	}
	c.Handoff = &next
	p.logger.Info("presenter.completion.handoff", "next_task", next)
	return nil
}
