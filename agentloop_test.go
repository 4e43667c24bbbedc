package agentloop

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/internal/testutil"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/model/anthropic"
	"github.com/hupe1980/agentloop/model/openai"
)

func reply(s string) model.Turn {
	return testutil.NewChunkBuilder().Chunked(s, 8).Usage(3, 2).Build()
}

func TestRunTask_UsesBuiltinTools(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))

	m := model.NewScriptedModel(
		reply("<list_files></list_files>"),
		reply("There is one file."),
	)
	op := testutil.NewRecordingOperator()
	a, err := New(m, op, func(o *Options) { o.WorkDir = dir })
	require.NoError(t, err)

	res, err := a.RunTask(context.Background(), "what files are there?")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Turns)

	results := op.Texts(core.EventToolResult)
	require.Len(t, results, 1)
	assert.Equal(t, "Contents of .:\n[file] notes.txt", results[0])

	msgs := m.Requests()[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "Tool list_files result:\nContents of .:\n[file] notes.txt\n"+agent.ContinuationPrompt, msgs[2].Content)
}

func TestServe_QuitAtCompletion(t *testing.T) {
	m := model.NewScriptedModel(reply("<attempt_completion><result>ok</result></attempt_completion>"))
	op := testutil.NewRecordingOperator("say hi", "q")
	a, err := New(m, op)
	require.NoError(t, err)

	require.NoError(t, a.Serve(context.Background()))
	assert.Equal(t, 2, op.Asked())
	assert.Len(t, m.Requests(), 1)
}

func TestServe_ContinuesAfterTaskFailure(t *testing.T) {
	m := model.NewScriptedModel(
		testutil.NewChunkBuilder().Fail(errors.New("rate limited")).Build(),
		reply("Done."),
	)
	op := testutil.NewRecordingOperator("first", "second", "exit")
	a, err := New(m, op)
	require.NoError(t, err)

	require.NoError(t, a.Serve(context.Background()))
	assert.Equal(t, 3, op.Asked())
	assert.Len(t, m.Requests(), 2)
	assert.Equal(t, []string{"rate limited"}, op.Texts(core.EventError))
	assert.Equal(t, []string{"Done."}, op.Texts(core.EventText))
}

func TestServe_MaxTurnsReported(t *testing.T) {
	m := model.NewScriptedModel(reply("<list_files></list_files>"))
	op := testutil.NewRecordingOperator("loop")
	a, err := New(m, op, func(o *Options) {
		o.MaxTurns = 1
		o.WorkDir = t.TempDir()
	})
	require.NoError(t, err)

	require.NoError(t, a.Serve(context.Background()))
	assert.Equal(t, []string{agent.ErrMaxTurns.Error()}, op.Texts(core.EventError))
}

func TestServe_OperatorEOF(t *testing.T) {
	op := testutil.NewRecordingOperator().FailNextTask(io.EOF)
	a, err := New(model.NewScriptedModel(), op)
	require.NoError(t, err)
	assert.NoError(t, a.Serve(context.Background()))
}

func TestServe_OperatorError(t *testing.T) {
	boom := errors.New("terminal gone")
	op := testutil.NewRecordingOperator().FailNextTask(boom)
	a, err := New(model.NewScriptedModel(), op)
	require.NoError(t, err)
	assert.ErrorIs(t, a.Serve(context.Background()), boom)
}

func TestServe_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := testutil.NewRecordingOperator("task")
	a, err := New(model.NewScriptedModel(reply("<list_files></list_files>")), op)
	require.NoError(t, err)
	assert.ErrorIs(t, a.Serve(ctx), context.Canceled)
}

func TestNew_NilModel(t *testing.T) {
	_, err := New(nil, testutil.NewRecordingOperator())
	assert.ErrorIs(t, err, agent.ErrNilModel)
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(config.BackendConfig{Provider: config.ProviderAnthropic, Model: "claude-x", APIKey: "k", MaxTokens: 10})
	require.NoError(t, err)
	_, ok := m.(*anthropic.Model)
	assert.True(t, ok)
	assert.Equal(t, "claude-x", m.Info().Name)

	m, err = NewModel(config.BackendConfig{Provider: config.ProviderOpenAI, Model: "gpt-x", APIKey: "k", MaxTokens: 10})
	require.NoError(t, err)
	_, ok = m.(*openai.Model)
	assert.True(t, ok)
	assert.Equal(t, "gpt-x", m.Info().Name)

	_, err = NewModel(config.BackendConfig{Provider: "other"})
	assert.ErrorIs(t, err, config.ErrUnknownProvider)
}

func TestNewFromConfig_SystemPromptOverride(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{Provider: config.ProviderOpenAI, APIKey: "k", MaxTokens: 10},
		Agent:   config.AgentConfig{WorkDir: "/work", SystemPrompt: "Work in {{.WorkDir}}."},
	}
	a, err := NewFromConfig(cfg, testutil.NewRecordingOperator())
	require.NoError(t, err)

	prompt, err := a.SystemPrompt()
	require.NoError(t, err)
	assert.Equal(t, "Work in /work.", prompt)
}
