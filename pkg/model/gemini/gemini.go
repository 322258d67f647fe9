// Package gemini implements model.Provider using the Google Gen AI SDK.
package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/model"
)

// Provider implements model.Provider backed by Gemini models.
type Provider struct {
	client *genai.Client
}

var _ model.Provider = (*Provider)(nil)

// New creates a new Gemini provider.
func New(ctx context.Context, apiKey string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Provider{client: client}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gemini" }

// Stream sends a conversation context to the LLM and returns a chunk stream.
func (p *Provider) Stream(ctx context.Context, modelName, instructions string, messages []domain.Message, tools []model.ToolDef) (model.Stream, error) {
	slog.Debug("gemini stream", "model", modelName, "messages", len(messages), "tools", len(tools))

	var systemInstruction *genai.Content
	if instructions != "" {
		systemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: instructions}},
		}
	}

	// Gemini correlates tool results by function name, not call ID.
	toolNames := make(map[string]string)
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			// Handled via systemInstruction.
			continue

		case domain.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				toolNames[tc.ID] = tc.Name
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: tc.Input,
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}

		case domain.RoleTool:
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:   msg.ToolCallID,
						Name: toolNames[msg.ToolCallID],
						Response: map[string]any{
							"result": msg.Content,
						},
					},
				}},
			})

		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Tools:             buildToolDeclarations(tools),
	}

	streamCtx, cancel := context.WithCancel(ctx)
	next, stop := iter.Pull2(p.client.Models.GenerateContentStream(streamCtx, modelName, contents, config))

	return &geminiStream{next: next, stop: stop, cancel: cancel}, nil
}

func buildToolDeclarations(tools []model.ToolDef) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schemaFromMap(t.Schema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// schemaFromMap converts a plain JSON schema document into the genai schema
// representation. Unknown keywords are ignored.
func schemaFromMap(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}

	if t, ok := m["type"].(string); ok {
		switch t {
		case "object":
			s.Type = genai.TypeObject
		case "string":
			s.Type = genai.TypeString
		case "number":
			s.Type = genai.TypeNumber
		case "integer":
			s.Type = genai.TypeInteger
		case "boolean":
			s.Type = genai.TypeBoolean
		case "array":
			s.Type = genai.TypeArray
		}
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				s.Properties[name] = schemaFromMap(pm)
			}
		}
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = append(s.Required, req...)
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = schemaFromMap(items)
	}
	if enum, ok := m["enum"].([]any); ok {
		for _, e := range enum {
			if v, ok := e.(string); ok {
				s.Enum = append(s.Enum, v)
			}
		}
	}
	return s
}

type geminiStream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	cancel  context.CancelFunc
	pending []*model.Chunk
}

var _ model.Stream = (*geminiStream)(nil)

func (s *geminiStream) Recv() (*model.Chunk, error) {
	if len(s.pending) > 0 {
		c := s.pending[0]
		s.pending = s.pending[1:]
		return c, nil
	}

	for {
		resp, err, ok := s.next()
		if !ok {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("receiving from gemini: %w", err)
		}

		var chunks []*model.Chunk
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part.Text != "" {
					chunks = append(chunks, &model.Chunk{Text: part.Text})
				}
				if part.FunctionCall != nil {
					id := part.FunctionCall.ID
					if id == "" {
						id = uuid.New().String()
					}
					chunks = append(chunks, &model.Chunk{ToolCall: &domain.ToolCall{
						ID:    id,
						Name:  part.FunctionCall.Name,
						Input: part.FunctionCall.Args,
					}})
				}
			}
		}
		if len(chunks) == 0 {
			continue
		}
		s.pending = chunks[1:]
		return chunks[0], nil
	}
}

func (s *geminiStream) Close() error {
	s.stop()
	s.cancel()
	return nil
}
