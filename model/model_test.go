package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/agentloop/core"
)

func drain(t *testing.T, respCh <-chan Response, errCh <-chan error) ([]Response, error) {
	t.Helper()
	var (
		out []Response
		err error
	)
	timeout := time.After(2 * time.Second)
	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			out = append(out, r)
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			err = e
		case <-timeout:
			t.Fatal("timed out")
		}
	}
	return out, err
}

var userMsg = []core.Message{{Role: core.RoleUser, Content: "hi"}}

func TestScriptedModel_ReplaysTurnsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewScriptedModel(
		Turn{Responses: []Response{TextResponse("a"), UsageResponse(1, 2)}},
		Turn{Responses: []Response{TextResponse("b")}},
	)

	respCh, errCh := m.Generate(context.Background(), Request{Messages: userMsg})
	out, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, []Response{TextResponse("a"), UsageResponse(1, 2)}, out)

	respCh, errCh = m.Generate(context.Background(), Request{SystemPrompt: "s", Messages: userMsg})
	out, err = drain(t, respCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, []Response{TextResponse("b")}, out)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "s", reqs[1].SystemPrompt)
}

func TestScriptedModel_Exhausted(t *testing.T) {
	m := NewScriptedModel()
	respCh, errCh := m.Generate(context.Background(), Request{Messages: userMsg})
	_, err := drain(t, respCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script exhausted at step 1")
}

func TestScriptedModel_TurnError(t *testing.T) {
	boom := errors.New("boom")
	m := NewScriptedModel(Turn{Responses: []Response{TextResponse("x")}, Err: boom})
	respCh, errCh := m.Generate(context.Background(), Request{Messages: userMsg})
	out, err := drain(t, respCh, errCh)
	assert.Len(t, out, 1)
	assert.ErrorIs(t, err, boom)
}

func TestScriptedModel_NoMessages(t *testing.T) {
	m := NewScriptedModel(Turn{})
	respCh, errCh := m.Generate(context.Background(), Request{})
	_, err := drain(t, respCh, errCh)
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestScriptedModel_CancelledContextStopsStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	responses := make([]Response, 64)
	for i := range responses {
		responses[i] = TextResponse("x")
	}
	m := NewScriptedModel(Turn{Responses: responses})

	ctx, cancel := context.WithCancel(context.Background())
	respCh, errCh := m.Generate(ctx, Request{Messages: userMsg})
	<-respCh
	cancel()

	_, err := drain(t, respCh, errCh)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScriptedModel_RequestsAreCopies(t *testing.T) {
	m := NewScriptedModel(Turn{})
	msgs := []core.Message{{Role: core.RoleUser, Content: "hi"}}
	respCh, errCh := m.Generate(context.Background(), Request{Messages: msgs})
	_, _ = drain(t, respCh, errCh)
	msgs[0].Content = "changed"
	assert.Equal(t, "hi", m.Requests()[0].Messages[0].Content)
}

func TestBackendError(t *testing.T) {
	inner := errors.New("connection reset")
	err := &BackendError{Provider: "anthropic", Err: inner}
	assert.Equal(t, "anthropic backend error: connection reset", err.Error())
	assert.ErrorIs(t, err, inner)
}
