// Package modeltest provides a deterministic model.Provider for tests.
package modeltest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/model"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Chunks []model.Chunk
	Err    error
}

// Text builds a response that streams the given text in one chunk.
func Text(s string) Response {
	return Response{Chunks: []model.Chunk{{Text: s}}}
}

// ToolCalls builds a response that requests the given tool calls.
func ToolCalls(calls ...domain.ToolCall) Response {
	r := Response{}
	for i := range calls {
		r.Chunks = append(r.Chunks, model.Chunk{ToolCall: &calls[i]})
	}
	return r
}

// ScriptedProvider replays a fixed sequence of responses, one per Stream
// call. It records the instructions, messages and tool defs of every call
// for assertions.
type ScriptedProvider struct {
	mu        sync.Mutex
	index     int
	responses []Response

	Calls        [][]domain.Message
	Tools        [][]model.ToolDef
	Instructions []string
}

func NewScriptedProvider(responses ...Response) *ScriptedProvider {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedProvider{responses: cloned}
}

var _ model.Provider = (*ScriptedProvider)(nil)

func (p *ScriptedProvider) Name() string { return "scripted" }

func (p *ScriptedProvider) Stream(_ context.Context, _, instructions string, messages []domain.Message, tools []model.ToolDef) (model.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, append([]domain.Message(nil), messages...))
	p.Tools = append(p.Tools, append([]model.ToolDef(nil), tools...))
	p.Instructions = append(p.Instructions, instructions)

	if p.index >= len(p.responses) {
		return nil, fmt.Errorf("script exhausted at step %d", p.index+1)
	}
	current := p.responses[p.index]
	p.index++
	if current.Err != nil {
		return nil, current.Err
	}
	return &scriptedStream{chunks: current.Chunks}, nil
}

type scriptedStream struct {
	chunks []model.Chunk
	pos    int
}

func (s *scriptedStream) Recv() (*model.Chunk, error) {
	if s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return &c, nil
}

func (s *scriptedStream) Close() error { return nil }
