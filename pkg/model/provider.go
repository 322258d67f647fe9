package model

import (
	"context"

	"github.com/syncwise-ai/syncwise/pkg/domain"
)

// ToolDef describes a callable tool to the model: a unique name, a natural
// language description and a JSON schema for the input object.
type ToolDef struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Chunk is one increment of a model response. Exactly one field is set:
// Text carries a partial text delta, ToolCall a complete tool invocation
// request.
type Chunk struct {
	Text     string
	ToolCall *domain.ToolCall
}

// Stream is a pull-based stream of response chunks. Recv returns io.EOF
// when the response is complete.
type Stream interface {
	Recv() (*Chunk, error)
	Close() error
}

// Provider represents a service that provides LLMs (e.g. Gemini, Groq).
type Provider interface {
	// Name returns the provider's identifier (e.g. "gemini", "groq").
	Name() string

	// Stream sends a conversation context to the LLM and returns a stream of
	// response chunks. instructions is the system prompt; tools declares the
	// callable tools for this session.
	Stream(ctx context.Context, modelName, instructions string, messages []domain.Message, tools []ToolDef) (Stream, error)
}
