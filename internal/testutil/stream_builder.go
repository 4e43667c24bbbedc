package testutil

import (
	"github.com/hupe1980/agentloop/model"
)

// ChunkBuilder provides a fluent helper for scripting one backend turn.
// Example:
//
//	turn := NewChunkBuilder().Text("Hello ").Chunked("<list_files></list_files>", 4).Usage(10, 5).Build()
//
// Chain only the parts you need.
type ChunkBuilder struct {
	responses []model.Response
	err       error
}

// NewChunkBuilder creates an empty builder.
func NewChunkBuilder() *ChunkBuilder { return &ChunkBuilder{} }

// Text appends one text delta (chainable).
func (b *ChunkBuilder) Text(delta string) *ChunkBuilder {
	b.responses = append(b.responses, model.TextResponse(delta))
	return b
}

// Chunked splits s into deltas of at most size bytes (chainable). Splits may
// fall inside tags, which is the point.
func (b *ChunkBuilder) Chunked(s string, size int) *ChunkBuilder {
	if size <= 0 {
		size = 1
	}
	for len(s) > 0 {
		n := size
		if n > len(s) {
			n = len(s)
		}
		b.Text(s[:n])
		s = s[n:]
	}
	return b
}

// Usage appends the usage report (chainable).
func (b *ChunkBuilder) Usage(in, out int) *ChunkBuilder {
	b.responses = append(b.responses, model.UsageResponse(in, out))
	return b
}

// Fail makes the turn end with err after the scripted responses (chainable).
func (b *ChunkBuilder) Fail(err error) *ChunkBuilder {
	b.err = err
	return b
}

// Build returns the scripted turn.
func (b *ChunkBuilder) Build() model.Turn {
	out := make([]model.Response, len(b.responses))
	copy(out, b.responses)
	return model.Turn{Responses: out, Err: b.err}
}
