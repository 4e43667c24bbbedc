// Package agentloop provides a high-level façade over the task loop, the tool
// dispatcher and the backend adapters. Most applications interact with this
// package by:
//  1. Creating an AgentLoop via New() with a model and an operator, or via
//     NewFromConfig() from a loaded config.Config
//  2. Running a single task (RunTask) or an interactive session (Serve)
//
// All defaults are safe for local development: the built-in file and shell
// tools operate relative to the configured working directory and logging is
// disabled unless a logger is supplied.
package agentloop

import (
	"context"
	"errors"
	"fmt"
	"io"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/model/anthropic"
	"github.com/hupe1980/agentloop/model/openai"
	"github.com/hupe1980/agentloop/tool"
)

// Options configures the AgentLoop instance.
type Options struct {
	// WorkDir is the directory the built-in tools operate in.
	WorkDir string
	// MaxTurns caps the turns of a single task. 0 means unlimited.
	MaxTurns int
	// Instruction overrides the default system prompt template.
	Instruction agent.Instruction
	// Dispatcher defaults to the built-in tools rooted at WorkDir.
	Dispatcher agent.Dispatcher
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentLoop is the high-level façade aggregating the task loop and its services.
type AgentLoop struct {
	opts     Options
	operator agent.Operator
	loop     *agent.TaskLoop
}

// New creates an AgentLoop that talks to m and reports to op.
func New(m model.Model, op agent.Operator, optFns ...func(o *Options)) (*AgentLoop, error) {
	opts := Options{
		WorkDir: ".",
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = tool.NewBuiltinDispatcher(opts.WorkDir, func(o *tool.DispatcherOptions) {
			o.Logger = opts.Logger
		})
	}

	loop, err := agent.NewTaskLoop(m, opts.Dispatcher, op, func(o *agent.TaskLoopOptions) {
		o.Instruction = opts.Instruction
		o.WorkDir = opts.WorkDir
		o.MaxTurns = opts.MaxTurns
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &AgentLoop{opts: opts, operator: op, loop: loop}, nil
}

// NewFromConfig builds the backend and the agent settings from cfg. Options
// applied via optFns take precedence over the config.
func NewFromConfig(cfg *config.Config, op agent.Operator, optFns ...func(o *Options)) (*AgentLoop, error) {
	m, err := NewModel(cfg.Backend)
	if err != nil {
		return nil, err
	}

	fns := []func(o *Options){func(o *Options) {
		o.WorkDir = cfg.Agent.WorkDir
		o.MaxTurns = cfg.Agent.MaxTurns
		if cfg.Agent.SystemPrompt != "" {
			o.Instruction = agent.NewInstructionFromText(cfg.Agent.SystemPrompt)
		}
	}}
	return New(m, op, append(fns, optFns...)...)
}

// NewModel creates the backend adapter selected by cfg.Provider.
func NewModel(cfg config.BackendConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.MaxRetries = cfg.MaxRetries
		}), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.MaxRetries = cfg.MaxRetries
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
}

// RunTask runs a single task to completion.
func (a *AgentLoop) RunTask(ctx context.Context, prompt string) (agent.TaskResult, error) {
	return a.loop.RunTask(ctx, prompt)
}

// Serve runs the interactive session: it asks the operator for a task, runs
// it and asks again. A quit reply (see agent.IsQuit), an io.EOF from the
// operator or a quit at a completion prompt ends the session with a nil
// error. Task failures are logged and the session continues.
func (a *AgentLoop) Serve(ctx context.Context) error {
	logger := a.opts.Logger
	logger.Info("session.start", "work_dir", a.opts.WorkDir)

	for {
		task, err := a.operator.NextTask(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("session.end", "reason", "eof")
				return nil
			}
			return err
		}
		if agent.IsQuit(task) {
			logger.Info("session.end", "reason", "quit")
			return nil
		}

		result, err := a.loop.RunTask(ctx, task)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if result.Quit {
			logger.Info("session.end", "reason", "quit", "task_id", result.TaskID)
			return nil
		}
		if err != nil {
			logger.Error("session.task_failed", "task_id", result.TaskID, "error", err.Error())
			if errors.Is(err, agent.ErrMaxTurns) {
				a.operator.Emit(ctx, core.NewErrorEvent(result.TaskID, "", err))
			}
		}
	}
}

// SystemPrompt renders the system prompt sent with every request.
func (a *AgentLoop) SystemPrompt() (string, error) { return a.loop.SystemPrompt() }
