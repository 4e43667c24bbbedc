package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

const sseBody = `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":"Hi "},"finish_reason":null}]}

data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"there"},"finish_reason":null}]}

data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":7,"completion_tokens":2,"total_tokens":9}}

data: [DONE]

`

func collect(t *testing.T, respCh <-chan model.Response, errCh <-chan error) ([]model.Response, error) {
	t.Helper()
	var (
		out []model.Response
		err error
	)
	timeout := time.After(5 * time.Second)
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
			t.Fatal("timed out waiting for stream")
		}
	}
	return out, err
}

func TestModel_GenerateStreamsTextAndUsage(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, sseBody)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL
		o.MaxRetries = 0
	})

	respCh, errCh := m.Generate(context.Background(), model.Request{
		SystemPrompt: "sys",
		Messages:     []core.Message{{Role: core.RoleUser, Content: "hello"}},
	})
	out, err := collect(t, respCh, errCh)
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, model.TextResponse("Hi "), out[0])
	assert.Equal(t, model.TextResponse("there"), out[1])
	assert.Equal(t, model.UsageResponse(7, 2), out[2])

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first, ok := msgs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, true, captured["stream"])
}

func TestModel_GenerateBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL
		o.MaxRetries = 0
	})

	respCh, errCh := m.Generate(context.Background(), model.Request{
		Messages: []core.Message{{Role: core.RoleUser, Content: "hello"}},
	})
	out, err := collect(t, respCh, errCh)
	assert.Empty(t, out)

	var backendErr *model.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, "openai", backendErr.Provider)
}

func TestModel_GenerateNoMessages(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "k" })
	respCh, errCh := m.Generate(context.Background(), model.Request{})
	_, err := collect(t, respCh, errCh)
	assert.ErrorIs(t, err, model.ErrNoMessages)
}

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages(model.Request{
		SystemPrompt: "sys",
		Messages: []core.Message{
			{Role: core.RoleUser, Content: "a"},
			{Role: core.RoleAssistant, Content: ""},
			{Role: core.RoleAssistant, Content: "b"},
		},
	})
	require.Len(t, msgs, 3)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
}

func TestModel_Info(t *testing.T) {
	m := NewModel(func(o *Options) { o.Model = "gpt-test" })
	assert.Equal(t, model.Info{Name: "gpt-test", Provider: "openai"}, m.Info())
}
