// Package toolkit builds the per-session set of callable tools from a
// resolved credentials bundle. Capabilities with missing or broken
// configuration are skipped; a session with no configured services still
// gets the meeting retrieval tool.
package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/model"
)

// Tool is a named, schema-typed operation exposed to the model.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
	Run         func(ctx context.Context, args map[string]any) (string, error)
}

type entry struct {
	tool   Tool
	schema *jsonschema.Schema // nil when the schema failed to compile
}

// Registry is the immutable per-session tool set. Lookup is by name;
// listing preserves registration order.
type Registry struct {
	order   []string
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Build constructs the tool set for a session. Construction failures for one
// capability are logged and do not prevent other capabilities from being
// registered. Build never fails.
func Build(ctx context.Context, creds domain.Credentials, deps Deps) *Registry {
	reg := NewRegistry()

	if creds.CalendarToken != "" {
		if tools, err := calendarTools(ctx, creds, deps.GoogleOAuth); err != nil {
			slog.Warn("calendar tools unavailable", "error", err)
		} else {
			reg.add(tools...)
		}
	}

	if creds.HasJira() {
		if tools, err := jiraTools(creds); err != nil {
			slog.Warn("jira tools unavailable", "error", err)
		} else {
			reg.add(tools...)
		}
	}

	if creds.GitHubRepository != "" {
		if tools, err := githubTools(creds); err != nil {
			slog.Warn("github tools unavailable", "error", err)
		} else {
			reg.add(tools...)
		}
	}

	if creds.SlackUserToken != "" {
		reg.add(slackTools(creds)...)
	}

	// Meeting retrieval depends only on internally stored data and is always
	// available.
	reg.add(meetingTool(creds, deps))

	return reg
}

func (r *Registry) add(tools ...Tool) {
	for _, t := range tools {
		if _, exists := r.entries[t.Name]; exists {
			slog.Warn("duplicate tool name ignored", "tool", t.Name)
			continue
		}
		e := entry{tool: t}
		if t.Schema != nil {
			sch, err := compileSchema(t.Name, t.Schema)
			if err != nil {
				slog.Warn("tool schema failed to compile, skipping validation", "tool", t.Name, "error", err)
			} else {
				e.schema = sch
			}
		}
		r.entries[t.Name] = e
		r.order = append(r.order, t.Name)
	}
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	return jsonschema.CompileString(name+".json", string(b))
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Defs returns the tool declarations for the model, in registration order.
func (r *Registry) Defs() []model.ToolDef {
	defs := make([]model.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.entries[name].tool
		defs = append(defs, model.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.Schema,
		})
	}
	return defs
}

// Call executes one tool call and always returns a result: unknown tools,
// invalid arguments and tool failures become error results that the model
// can see and react to. Call never panics out.
func (r *Registry) Call(ctx context.Context, call domain.ToolCall) (result domain.ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool panicked", "tool", call.Name, "panic", rec)
			result = errorResult(call.ID, fmt.Sprintf("An error occurred: tool %q panicked: %v", call.Name, rec))
		}
	}()

	e, ok := r.entries[call.Name]
	if !ok {
		return errorResult(call.ID, fmt.Sprintf("An error occurred: unknown tool %q", call.Name))
	}

	if e.schema != nil {
		if err := e.schema.Validate(normalizeArgs(call.Input)); err != nil {
			return errorResult(call.ID, fmt.Sprintf("An error occurred: invalid arguments: %v", err))
		}
	}

	content, err := e.tool.Run(ctx, call.Input)
	if err != nil {
		return errorResult(call.ID, "An error occurred: "+err.Error())
	}
	return domain.ToolResult{ToolCallID: call.ID, Content: content}
}

func errorResult(callID, msg string) domain.ToolResult {
	return domain.ToolResult{ToolCallID: callID, Content: msg, IsError: true}
}

// normalizeArgs round-trips arguments through JSON so the validator sees
// the standard decoded representation regardless of how the provider
// produced them.
func normalizeArgs(args map[string]any) any {
	if args == nil {
		return map[string]any{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return args
	}
	return out
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
