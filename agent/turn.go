package agent

import (
	"context"
	"strings"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/parser"
)

// TurnOutcome summarizes one request/stream/present cycle.
type TurnOutcome struct {
	TurnID string
	// Continue is true when the finalized segments contain at least one tool
	// invocation, meaning more work is expected.
	Continue bool
	// Cancelled is true when the turn was cut short by the completion tool or
	// by ctx.
	Cancelled     bool
	Completion    *Completion
	Segments      []core.Segment
	Results       []core.PendingResult
	AssistantText string
	Usage         *core.Usage
}

// TurnController runs single turns against a backend.
type TurnController struct {
	model        model.Model
	dispatcher   Dispatcher
	operator     Operator
	parser       *parser.Parser
	systemPrompt string
	logger       logging.Logger
}

// NewTurnController wires a turn controller. The system prompt is sent
// verbatim with every request.
func NewTurnController(m model.Model, d Dispatcher, op Operator, systemPrompt string, logger logging.Logger) *TurnController {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &TurnController{
		model:        m,
		dispatcher:   d,
		operator:     op,
		parser:       parser.New(),
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// RunTurn sends history plus pendingUserContent to the backend, presents the
// streamed segments as they finalize and reports whether the task should
// continue. A backend error is fatal to the turn: it is emitted to the
// operator and returned.
//
// On a normal finish the user content and the raw assistant text are
// appended to history. Cancelled or failed turns leave history untouched.
func (c *TurnController) RunTurn(ctx context.Context, taskID string, history *core.History, pendingUserContent string) (TurnOutcome, error) {
	ts := core.NewTurnState()
	out := TurnOutcome{TurnID: ts.ID}
	presenter := NewPresenter(taskID, ts.ID, c.dispatcher, c.operator, c.logger)
	start := time.Now()

	c.logger.Debug("turn.start", "task_id", taskID, "turn_id", ts.ID, "messages", history.Len())

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	respCh, errCh := c.model.Generate(streamCtx, model.Request{
		SystemPrompt: c.systemPrompt,
		Messages:     history.With(pendingUserContent),
	})

	var (
		buf       strings.Builder
		streamErr error
	)

loop:
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			switch resp.Kind {
			case model.ResponseText:
				if resp.Delta == "" {
					continue
				}
				buf.WriteString(resp.Delta)
				ts.SetSegments(c.parser.Parse(buf.String()))
				if err := presenter.Present(ctx, ts); err != nil {
					if streamErr == nil {
						streamErr = err
					}
					break loop
				}
				if ts.Cancelled() {
					break loop
				}
			case model.ResponseUsage:
				if resp.Usage != nil {
					u := *resp.Usage
					out.Usage = &u
					c.operator.Emit(ctx, core.NewUsageEvent(taskID, ts.ID, u))
				}
			}
		case err, ok := <-errCh:
			// Deltas sent before the failure are still drained from respCh.
			errCh = nil
			if ok && err != nil && streamErr == nil {
				streamErr = err
			}
		case <-ctx.Done():
			ts.Cancel()
			break loop
		}
	}
	ts.StopStreaming()
	cancelStream()
	if ctx.Err() != nil {
		ts.Cancel()
	}

	out.AssistantText = buf.String()
	c.logLLMCall(out, time.Since(start), streamErr)

	if streamErr != nil {
		out.Completion = presenter.Completion()
		out.Cancelled = ts.Cancelled()
		if out.Completion == nil && ctx.Err() == nil {
			c.operator.Emit(ctx, core.NewErrorEvent(taskID, ts.ID, streamErr))
		}
		c.logTurn(out, time.Since(start), streamErr)
		return out, streamErr
	}

	if !ts.Cancelled() {
		ts.SetSegments(c.parser.ParseFinal(out.AssistantText))
		if err := presenter.Present(ctx, ts); err != nil {
			out.Completion = presenter.Completion()
			out.Cancelled = true
			c.logTurn(out, time.Since(start), err)
			return out, err
		}
		if err := ts.WaitReady(ctx); err != nil {
			ts.Cancel()
		}
	}

	out.Segments = ts.Segments()
	out.Results = ts.Results()
	out.Completion = presenter.Completion()

	if ts.Cancelled() {
		out.Cancelled = true
		c.logTurn(out, time.Since(start), nil)
		return out, nil
	}

	if out.AssistantText != "" {
		if pendingUserContent != "" {
			history.Append(core.RoleUser, pendingUserContent)
		}
		history.Append(core.RoleAssistant, out.AssistantText)
	}
	out.Continue = core.CountTools(out.Segments) > 0

	c.logTurn(out, time.Since(start), nil)
	return out, nil
}

func (c *TurnController) logLLMCall(out TurnOutcome, dur time.Duration, err error) {
	in, outTokens := 0, 0
	if out.Usage != nil {
		in, outTokens = out.Usage.InputTokens, out.Usage.OutputTokens
	}
	logging.LLMCall(c.logger, c.model.Info().Name, in, outTokens, dur, err)
}

func (c *TurnController) logTurn(out TurnOutcome, dur time.Duration, err error) {
	if tl, ok := c.logger.(*logging.TaskLogger); ok {
		tl.LogTurn(len(out.Segments), core.CountTools(out.Segments), out.Continue, dur, err)
		return
	}
	if err != nil {
		c.logger.Error("turn.error", "turn_id", out.TurnID, "error", err.Error())
		return
	}
	c.logger.Info("turn.end", "turn_id", out.TurnID, "continue", out.Continue, "cancelled", out.Cancelled)
}
