// Package groq implements model.Provider against Groq's OpenAI-compatible
// chat completions API.
package groq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/model"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Provider implements model.Provider using the go-openai client pointed at
// Groq's endpoint.
type Provider struct {
	client      *openai.Client
	temperature float32
}

var _ model.Provider = (*Provider)(nil)

// New creates a new Groq provider. baseURL may be empty to use the default
// Groq endpoint.
func New(apiKey, baseURL string) *Provider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cfg.BaseURL = baseURL
	return &Provider{
		client:      openai.NewClientWithConfig(cfg),
		temperature: 0.35,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "groq" }

// Stream sends a conversation context to the LLM and returns a chunk stream.
func (p *Provider) Stream(ctx context.Context, modelName, instructions string, messages []domain.Message, tools []model.ToolDef) (model.Stream, error) {
	slog.Debug("groq stream", "model", modelName, "messages", len(messages), "tools", len(tools))

	req := openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    convertMessages(instructions, messages),
		Tools:       convertTools(tools),
		Temperature: p.temperature,
		Stream:      true,
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating chat completion stream: %w", err)
	}
	return &groqStream{stream: stream, partial: make(map[int]*partialCall)}, nil
}

func convertMessages(instructions string, messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if instructions != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: instructions,
		})
	}

	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Content,
			})

		case domain.RoleAssistant:
			m := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Input)
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, m)

		case domain.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})

		default:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		}
	}
	return out
}

func convertTools(tools []model.ToolDef) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}
	return out
}

// partialCall accumulates a tool call streamed across multiple deltas.
type partialCall struct {
	id   string
	name string
	args string
}

type groqStream struct {
	stream  *openai.ChatCompletionStream
	partial map[int]*partialCall
	order   []int
	done    bool
}

var _ model.Stream = (*groqStream)(nil)

func (s *groqStream) Recv() (*model.Chunk, error) {
	for {
		if s.done {
			return s.flush()
		}

		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return s.flush()
		}
		if err != nil {
			return nil, fmt.Errorf("receiving from groq: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			pc, ok := s.partial[idx]
			if !ok {
				pc = &partialCall{}
				s.partial[idx] = pc
				s.order = append(s.order, idx)
			}
			if tc.ID != "" {
				pc.id = tc.ID
			}
			if tc.Function.Name != "" {
				pc.name = tc.Function.Name
			}
			pc.args += tc.Function.Arguments
		}

		if delta.Content != "" {
			return &model.Chunk{Text: delta.Content}, nil
		}
	}
}

// flush emits accumulated tool calls one at a time after the stream ends,
// in the order the model introduced them.
func (s *groqStream) flush() (*model.Chunk, error) {
	if len(s.order) == 0 {
		return nil, io.EOF
	}
	idx := s.order[0]
	s.order = s.order[1:]
	pc := s.partial[idx]
	delete(s.partial, idx)

	if pc.id == "" {
		pc.id = uuid.New().String()
	}
	input := map[string]any{}
	if pc.args != "" {
		if err := json.Unmarshal([]byte(pc.args), &input); err != nil {
			slog.Warn("groq tool call arguments are not valid JSON", "tool", pc.name, "error", err)
		}
	}
	return &model.Chunk{ToolCall: &domain.ToolCall{
		ID:    pc.id,
		Name:  pc.name,
		Input: input,
	}}, nil
}

func (s *groqStream) Close() error {
	s.stream.Close()
	return nil
}
