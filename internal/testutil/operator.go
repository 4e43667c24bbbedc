package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// RecordingOperator records every emitted event and answers NextTask from a
// fixed list of replies. Once the replies run out it answers "quit".
type RecordingOperator struct {
	mu      sync.Mutex
	events  []core.Event
	replies []string
	asked   int
	err     error
}

// NewRecordingOperator creates an operator that answers NextTask with replies in order.
func NewRecordingOperator(replies ...string) *RecordingOperator {
	return &RecordingOperator{replies: replies}
}

// FailNextTask makes every NextTask call return err.
func (o *RecordingOperator) FailNextTask(err error) *RecordingOperator {
	o.err = err
	return o
}

// Emit records ev.
func (o *RecordingOperator) Emit(_ context.Context, ev core.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

// NextTask returns the next scripted reply.
func (o *RecordingOperator) NextTask(_ context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.asked++
	if o.err != nil {
		return "", o.err
	}
	if len(o.replies) == 0 {
		return "quit", nil
	}
	r := o.replies[0]
	o.replies = o.replies[1:]
	return r, nil
}

// Asked returns how many times NextTask was called.
func (o *RecordingOperator) Asked() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.asked
}

// Events returns a copy of the recorded events.
func (o *RecordingOperator) Events() []core.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]core.Event, len(o.events))
	copy(out, o.events)
	return out
}

// Kinds returns the kinds of the recorded events in order.
func (o *RecordingOperator) Kinds() []core.EventKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]core.EventKind, len(o.events))
	for i, ev := range o.events {
		out[i] = ev.Kind
	}
	return out
}

// Texts returns the Text of every event of the given kind.
func (o *RecordingOperator) Texts(kind core.EventKind) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, ev := range o.events {
		if ev.Kind == kind {
			out = append(out, ev.Text)
		}
	}
	return out
}
