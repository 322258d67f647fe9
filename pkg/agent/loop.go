// Package agent runs the tool-augmented conversation loop: model turns that
// request tools are answered with tool results and fed back until the model
// produces a plain text reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syncwise-ai/syncwise/pkg/convo"
	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/model"
)

// DefaultMaxToolCycles bounds how many model turns may request tools before
// the loop gives up on the request.
const DefaultMaxToolCycles = 8

// gaveUpMessage is returned when the model keeps requesting tools past the
// cycle limit.
const gaveUpMessage = "I wasn't able to finish that within a reasonable number of steps. " +
	"Try breaking the request into smaller pieces."

// EventType identifies what an Event carries.
type EventType string

const (
	EventText       EventType = "text"        // partial assistant text
	EventToolCall   EventType = "tool_call"   // the model requested a tool
	EventToolResult EventType = "tool_result" // a tool finished
	EventDone       EventType = "done"        // the turn is complete
)

// Event is one observable step of a running turn, suitable for streaming to
// a client as it happens.
type Event struct {
	Type       EventType          `json:"type"`
	Text       string             `json:"text,omitempty"`
	ToolCall   *domain.ToolCall   `json:"tool_call,omitempty"`
	ToolResult *domain.ToolResult `json:"tool_result,omitempty"`
}

// Sink receives events as the turn progresses. May be nil.
type Sink func(Event)

// Loop drives one conversation against a model provider and a tool set.
type Loop struct {
	Provider model.Provider
	Model    string
	Tools    Tools
	Convo    *convo.Store

	// MaxToolCycles caps tool-requesting model turns per user input.
	// Zero means DefaultMaxToolCycles.
	MaxToolCycles int
}

// Run processes one user input on the given conversation: it appends the
// input, alternates model turns and tool execution until the model answers
// in plain text, and returns that final text. Every tool call the model
// makes is answered by exactly one result, in request order, before the
// next model turn.
func (l *Loop) Run(ctx context.Context, conversationID, instructions, input string, sink Sink) (string, error) {
	if sink == nil {
		sink = func(Event) {}
	}
	maxCycles := l.MaxToolCycles
	if maxCycles <= 0 {
		maxCycles = DefaultMaxToolCycles
	}

	l.Convo.Append(conversationID, domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   input,
		Timestamp: time.Now().UTC(),
	})

	defs := l.Tools.Defs()

	for cycle := 0; cycle < maxCycles; cycle++ {
		text, calls, err := l.modelTurn(ctx, conversationID, instructions, defs, sink)
		if err != nil {
			return "", err
		}

		assistant := domain.Message{
			ID:        uuid.New().String(),
			Role:      domain.RoleAssistant,
			Content:   text,
			ToolCalls: calls,
			Timestamp: time.Now().UTC(),
		}
		l.Convo.Append(conversationID, assistant)

		if len(calls) == 0 {
			sink(Event{Type: EventDone})
			return text, nil
		}

		results := ExecuteAll(ctx, l.Tools, calls)
		for i := range results {
			r := results[i]
			sink(Event{Type: EventToolResult, ToolResult: &r})
			l.Convo.Append(conversationID, domain.Message{
				ID:         uuid.New().String(),
				Role:       domain.RoleTool,
				Content:    r.Content,
				ToolCallID: r.ToolCallID,
				IsError:    r.IsError,
				Timestamp:  time.Now().UTC(),
			})
		}
	}

	// Every requested tool call above has been answered, so the conversation
	// stays well formed for the next turn.
	l.Convo.Append(conversationID, domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   gaveUpMessage,
		Timestamp: time.Now().UTC(),
	})
	sink(Event{Type: EventText, Text: gaveUpMessage})
	sink(Event{Type: EventDone})
	return gaveUpMessage, nil
}

// modelTurn performs one streamed model call, emitting text and tool call
// events as they arrive, and returns the accumulated text and tool calls.
func (l *Loop) modelTurn(ctx context.Context, conversationID, instructions string, defs []model.ToolDef, sink Sink) (string, []domain.ToolCall, error) {
	stream, err := l.Provider.Stream(ctx, l.Model, instructions, l.Convo.Load(conversationID), defs)
	if err != nil {
		return "", nil, fmt.Errorf("starting model stream: %w", err)
	}
	defer stream.Close()

	var text strings.Builder
	var calls []domain.ToolCall
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("receiving model response: %w", err)
		}
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
			sink(Event{Type: EventText, Text: chunk.Text})
		}
		if chunk.ToolCall != nil {
			calls = append(calls, *chunk.ToolCall)
			sink(Event{Type: EventToolCall, ToolCall: chunk.ToolCall})
		}
	}
	return text.String(), calls, nil
}
