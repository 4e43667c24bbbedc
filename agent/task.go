package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
)

var (
	// ErrNilModel is returned when a TaskLoop is built without a backend.
	ErrNilModel = errors.New("agent: model must not be nil")
	// ErrTaskCancelled is returned when ctx ends a task mid-turn.
	ErrTaskCancelled = errors.New("agent: task cancelled")
	// ErrMaxTurns is returned when a task exceeds TaskLoopOptions.MaxTurns.
	ErrMaxTurns = errors.New("agent: maximum number of turns reached")
)

// TaskLoopOptions configure a TaskLoop.
type TaskLoopOptions struct {
	// Instruction renders the system prompt. Defaults to DefaultSystemPrompt.
	Instruction Instruction
	// WorkDir is exposed to the instruction template.
	WorkDir string
	// MaxTurns caps the turns of one task, handoffs included. 0 means unlimited.
	MaxTurns int
	Logger   logging.Logger
}

// TaskResult summarizes a finished task.
type TaskResult struct {
	TaskID string
	Turns  int
	// Handoffs counts follow-up tasks chained after a completion.
	Handoffs int
	// Completion is the last completion reached, if any.
	Completion *Completion
	// Quit is true when the operator ended the session at a completion prompt.
	Quit bool
}

// TaskLoop drives one task from its initial prompt through as many turns as
// the backend needs, chaining operator handoffs into fresh conversations.
type TaskLoop struct {
	model      model.Model
	dispatcher Dispatcher
	operator   Operator
	opts       TaskLoopOptions
	logger     logging.Logger

	handoff *string
}

// NewTaskLoop constructs a TaskLoop.
func NewTaskLoop(m model.Model, d Dispatcher, op Operator, optFns ...func(o *TaskLoopOptions)) (*TaskLoop, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	if d == nil {
		return nil, errors.New("agent: dispatcher must not be nil")
	}
	if op == nil {
		return nil, errors.New("agent: operator must not be nil")
	}

	opts := TaskLoopOptions{
		Instruction: NewInstructionFromText(DefaultSystemPrompt),
		WorkDir:     ".",
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Instruction.IsZero() {
		opts.Instruction = NewInstructionFromText(DefaultSystemPrompt)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &TaskLoop{model: m, dispatcher: d, operator: op, opts: opts, logger: opts.Logger}, nil
}

// SystemPrompt renders the configured instruction.
func (l *TaskLoop) SystemPrompt() (string, error) {
	prompt, err := l.opts.Instruction.Resolve(NewPromptData(l.opts.WorkDir, l.dispatcher.Tools()))
	if err != nil {
		return "", fmt.Errorf("agent: render system prompt: %w", err)
	}
	return prompt, nil
}

// RunTask runs initialPrompt to completion.
//
// The task ends when a turn produces no tool invocation, or when the turn is
// cancelled without a pending handoff. A handoff from the completion tool
// starts a fresh history seeded with the handoff text. Backend errors end
// the task and are returned.
func (l *TaskLoop) RunTask(ctx context.Context, initialPrompt string) (TaskResult, error) {
	result := TaskResult{TaskID: core.NewID()}

	systemPrompt, err := l.SystemPrompt()
	if err != nil {
		return result, err
	}

	logger := l.taskLogger(result.TaskID)
	controller := NewTurnController(l.model, l.dispatcher, l.operator, systemPrompt, logger)

	start := time.Now()
	logger.Info("task.start", "task_id", result.TaskID)

	history := core.NewHistory(initialPrompt)
	pending := ""
	l.handoff = nil

	for {
		if l.opts.MaxTurns > 0 && result.Turns >= l.opts.MaxTurns {
			logger.Warn("task.max_turns", "task_id", result.TaskID, "turns", result.Turns)
			return result, ErrMaxTurns
		}

		outcome, err := controller.RunTurn(ctx, result.TaskID, history, pending)
		result.Turns++
		if outcome.Completion != nil {
			result.Completion = outcome.Completion
			l.handoff = outcome.Completion.Handoff
			result.Quit = outcome.Completion.Quit
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warn("task.cancelled", "task_id", result.TaskID, "turns", result.Turns)
			return result, fmt.Errorf("%w: %w", ErrTaskCancelled, ctxErr)
		}
		if err != nil {
			logger.Error("task.error", "task_id", result.TaskID, "turns", result.Turns, "error", err.Error())
			return result, err
		}

		if outcome.Cancelled {
			if l.handoff == nil {
				break
			}
			next := *l.handoff
			l.handoff = nil
			result.Handoffs++
			logger.Info("task.handoff", "task_id", result.TaskID, "next_task", next)
			history = core.NewHistory(next)
			pending = ""
			continue
		}

		if !outcome.Continue {
			break
		}
		pending = continuation(outcome.Results)
	}

	logger.Info("task.end", "task_id", result.TaskID, "turns", result.Turns,
		"handoffs", result.Handoffs, "quit", result.Quit, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// continuation builds the next user content from the turn's tool results.
func continuation(results []core.PendingResult) string {
	if len(results) == 0 {
		return ContinuationPrompt
	}
	return core.RenderResults(results) + "\n" + ContinuationPrompt
}

func (l *TaskLoop) taskLogger(taskID string) logging.Logger {
	if tl, ok := l.logger.(*logging.TaskLogger); ok {
		return tl.WithComponent("task").WithTask(taskID, "")
	}
	return l.logger
}
