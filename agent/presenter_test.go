package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/internal/testutil"
	"github.com/hupe1980/agentloop/tool"
)

// fakeDispatcher records invocations and answers "ok:<name>".
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []core.ToolSegment
}

func (f *fakeDispatcher) Execute(_ context.Context, seg core.ToolSegment) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, seg)
	return "ok:" + seg.Name.String()
}

func (f *fakeDispatcher) Tools() []tool.Tool { return tool.Builtins(".") }

func (f *fakeDispatcher) Calls() []core.ToolSegment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.ToolSegment, len(f.calls))
	copy(out, f.calls)
	return out
}

func text(s string) core.TextSegment { return core.TextSegment{Content: s} }

func toolSeg(name core.ToolName, params map[string]string) core.ToolSegment {
	return core.ToolSegment{Name: name, Parameters: params}
}

func finishedTurn(segs ...core.Segment) *core.TurnState {
	ts := core.NewTurnState()
	ts.SetSegments(segs)
	ts.StopStreaming()
	return ts
}

func TestPresenter_PresentsInOrderExactlyOnce(t *testing.T) {
	d := &fakeDispatcher{}
	op := testutil.NewRecordingOperator()
	p := NewPresenter("task", "turn", d, op, nil)

	ts := finishedTurn(
		text("a"),
		toolSeg(core.ToolReadFile, map[string]string{"path": "x"}),
		text("b"),
		toolSeg(core.ToolListFiles, nil),
	)
	require.NoError(t, p.Present(context.Background(), ts))
	require.NoError(t, p.Present(context.Background(), ts))

	assert.Equal(t, []int{0, 1, 2, 3}, p.Presented())
	assert.Len(t, d.Calls(), 2)
	assert.True(t, ts.ResultsReady())
	assert.False(t, ts.Cancelled())
	assert.Equal(t, StateIdle, p.State())
	assert.Equal(t, []core.EventKind{
		core.EventText,
		core.EventToolCall, core.EventToolResult,
		core.EventText,
		core.EventToolCall, core.EventToolResult,
	}, op.Kinds())
	assert.Equal(t, []core.PendingResult{
		{Source: core.ToolReadFile, Text: "ok:read_file"},
		{Source: core.ToolListFiles, Text: "ok:list_files"},
	}, ts.Results())
}

func TestPresenter_StopsAtPartialWhileStreaming(t *testing.T) {
	d := &fakeDispatcher{}
	op := testutil.NewRecordingOperator()
	p := NewPresenter("task", "turn", d, op, nil)

	ts := core.NewTurnState()
	ts.SetSegments([]core.Segment{text("a"), core.TextSegment{Content: "b <read_file>", Partial: true}})
	require.NoError(t, p.Present(context.Background(), ts))

	assert.Equal(t, []int{0}, p.Presented())
	assert.False(t, ts.ResultsReady())

	ts.SetSegments([]core.Segment{text("a"), text("b"), toolSeg(core.ToolReadFile, nil)})
	require.NoError(t, p.Present(context.Background(), ts))
	assert.Equal(t, []int{0, 1, 2}, p.Presented())
	assert.False(t, ts.ResultsReady(), "not ready while streaming")

	ts.StopStreaming()
	require.NoError(t, p.Present(context.Background(), ts))
	assert.True(t, ts.ResultsReady())
	assert.Equal(t, []string{"a", "b"}, op.Texts(core.EventText))
}

func TestPresenter_PartialProcessedOnceStreamingEnded(t *testing.T) {
	op := testutil.NewRecordingOperator()
	p := NewPresenter("task", "turn", &fakeDispatcher{}, op, nil)

	ts := core.NewTurnState()
	ts.SetSegments([]core.Segment{core.TextSegment{Content: "tail", Partial: true}})
	ts.StopStreaming()
	require.NoError(t, p.Present(context.Background(), ts))

	assert.Equal(t, []string{"tail"}, op.Texts(core.EventText))
	assert.True(t, ts.ResultsReady())
}

func TestPresenter_EmptyFinishedTurnIsReady(t *testing.T) {
	p := NewPresenter("task", "turn", &fakeDispatcher{}, testutil.NewRecordingOperator(), nil)
	ts := finishedTurn()
	require.NoError(t, p.Present(context.Background(), ts))
	assert.True(t, ts.ResultsReady())
}

func TestPresenter_CompletionShortCircuits(t *testing.T) {
	d := &fakeDispatcher{}
	op := testutil.NewRecordingOperator("add tests")
	p := NewPresenter("task", "turn", d, op, nil)

	ts := finishedTurn(
		text("done soon"),
		toolSeg(core.ToolAttemptCompletion, map[string]string{"result": "all good"}),
		toolSeg(core.ToolReadFile, map[string]string{"path": "never"}),
		text("never shown"),
	)
	require.NoError(t, p.Present(context.Background(), ts))

	assert.Equal(t, []int{0, 1}, p.Presented())
	assert.Empty(t, d.Calls())
	assert.True(t, ts.Cancelled())
	assert.True(t, ts.ResultsReady())
	assert.Equal(t, StateTaskEnding, p.State())
	assert.Equal(t, 1, op.Asked())

	c := p.Completion()
	require.NotNil(t, c)
	assert.Equal(t, "all good", c.Result)
	require.NotNil(t, c.Handoff)
	assert.Equal(t, "add tests", *c.Handoff)
	assert.False(t, c.Quit)
	assert.Equal(t, []string{"all good"}, op.Texts(core.EventCompletion))

	require.NoError(t, p.Present(context.Background(), ts))
	assert.Equal(t, []int{0, 1}, p.Presented())
}

func TestPresenter_CompletionQuitReplies(t *testing.T) {
	for _, reply := range []string{"quit", "EXIT", " q ", ""} {
		t.Run(reply, func(t *testing.T) {
			op := testutil.NewRecordingOperator(reply)
			p := NewPresenter("task", "turn", &fakeDispatcher{}, op, nil)

			ts := finishedTurn(toolSeg(core.ToolAttemptCompletion, nil))
			require.NoError(t, p.Present(context.Background(), ts))

			c := p.Completion()
			require.NotNil(t, c)
			assert.True(t, c.Quit)
			assert.Nil(t, c.Handoff)
			assert.Equal(t, "Task completed", c.Result)
			assert.True(t, ts.Cancelled())
		})
	}
}

func TestPresenter_OperatorErrorCancelsTurn(t *testing.T) {
	boom := errors.New("stdin closed")
	op := testutil.NewRecordingOperator().FailNextTask(boom)
	p := NewPresenter("task", "turn", &fakeDispatcher{}, op, nil)

	ts := finishedTurn(toolSeg(core.ToolAttemptCompletion, nil))
	err := p.Present(context.Background(), ts)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ts.Cancelled())
	require.NotNil(t, p.Completion())
	assert.True(t, p.Completion().Quit)
}

func TestPresenter_ContextCancelled(t *testing.T) {
	d := &fakeDispatcher{}
	p := NewPresenter("task", "turn", d, testutil.NewRecordingOperator(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts := finishedTurn(toolSeg(core.ToolReadFile, nil))
	err := p.Present(ctx, ts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, ts.Cancelled())
	assert.Empty(t, d.Calls())
}

func TestPresenter_CancelledTurnPresentsNothing(t *testing.T) {
	d := &fakeDispatcher{}
	p := NewPresenter("task", "turn", d, testutil.NewRecordingOperator(), nil)

	ts := finishedTurn(text("a"), toolSeg(core.ToolReadFile, nil))
	ts.Cancel()
	require.NoError(t, p.Present(context.Background(), ts))
	assert.Empty(t, p.Presented())
	assert.Empty(t, d.Calls())
}

func TestPresenterState_String(t *testing.T) {
	assert.Equal(t, "awaiting_completion", StateAwaitingCompletion.String())
	assert.Equal(t, "unknown", PresenterState(99).String())
}

func TestIsQuit(t *testing.T) {
	assert.True(t, IsQuit(""))
	assert.True(t, IsQuit("  Quit "))
	assert.True(t, IsQuit("q"))
	assert.False(t, IsQuit("quit later"))
}
