package core

import (
	"context"
	"fmt"
	"strings"
)

// PendingResult is the textual outcome of one executed tool, waiting to be
// fed back to the backend as part of the next user message.
type PendingResult struct {
	Source ToolName
	Text   string
}

// Render formats the result the way it is presented to the backend.
func (r PendingResult) Render() string {
	return fmt.Sprintf("Tool %s result:\n%s", r.Source, r.Text)
}

// RenderResults joins pending results into one user content block.
func RenderResults(results []PendingResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Render())
	}
	return strings.Join(parts, "\n")
}

// TurnState is the per-request record driven by the presenter. A fresh
// TurnState is created at the start of every turn and discarded at its end.
//
// Readiness and cancellation are signalled through channels so a waiter
// never has to poll. Only the goroutine driving the turn mutates the state.
type TurnState struct {
	ID string

	segments  []Segment
	nextIndex int
	streaming bool

	results []PendingResult

	resultsReady bool
	ready        chan struct{}

	cancelled bool
	cancel    chan struct{}
}

// NewTurnState creates a streaming turn state.
func NewTurnState() *TurnState {
	return &TurnState{
		ID:        NewID(),
		streaming: true,
		ready:     make(chan struct{}),
		cancel:    make(chan struct{}),
	}
}

// SetSegments replaces the segment sequence with a fresh parse of the buffer.
// Segments before NextIndex are already presented and are never revisited.
func (s *TurnState) SetSegments(segs []Segment) { s.segments = segs }

// Segments returns the current segment sequence.
func (s *TurnState) Segments() []Segment { return s.segments }

// NextIndex returns the cursor of the next segment not yet presented.
func (s *TurnState) NextIndex() int { return s.nextIndex }

// Advance moves the cursor past the current segment.
func (s *TurnState) Advance() { s.nextIndex++ }

// Current returns the segment under the cursor, if any.
func (s *TurnState) Current() (Segment, bool) {
	if s.nextIndex >= len(s.segments) {
		return nil, false
	}
	return s.segments[s.nextIndex], true
}

// Exhausted reports whether the cursor reached the end of the sequence.
func (s *TurnState) Exhausted() bool { return s.nextIndex >= len(s.segments) }

// Streaming reports whether backend events are still arriving.
func (s *TurnState) Streaming() bool { return s.streaming }

// StopStreaming marks the end of the backend stream.
func (s *TurnState) StopStreaming() { s.streaming = false }

// AddResult appends a tool result to the pending results.
func (s *TurnState) AddResult(r PendingResult) { s.results = append(s.results, r) }

// Results returns a copy of the pending results collected so far.
func (s *TurnState) Results() []PendingResult {
	out := make([]PendingResult, len(s.results))
	copy(out, s.results)
	return out
}

// MarkReady records that every finalized segment has been presented. The
// ready signal fires exactly once.
func (s *TurnState) MarkReady() {
	if s.resultsReady {
		return
	}
	s.resultsReady = true
	close(s.ready)
}

// ResultsReady reports whether MarkReady has been called.
func (s *TurnState) ResultsReady() bool { return s.resultsReady }

// Cancel flags the turn as cancelled and wakes any waiter.
func (s *TurnState) Cancel() {
	if s.cancelled {
		return
	}
	s.cancelled = true
	close(s.cancel)
}

// Cancelled reports whether the turn has been cancelled.
func (s *TurnState) Cancelled() bool { return s.cancelled }

// WaitReady blocks until the turn is ready, cancelled, or ctx is done. It
// returns ctx.Err() only in the last case.
func (s *TurnState) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.cancel:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
