package domain

import "time"

// Message is a single entry in a conversation. The ordered message sequence
// forms the model's context; it is append-only within a conversation.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // set on assistant messages requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on tool result messages
	IsError    bool       `json:"is_error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult represents the outcome of a tool call execution.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// Credentials is the per-session bundle of service secrets resolved from
// stored API keys. A capability is configured only when all of its required
// fields are present. Immutable once resolved for a session.
type Credentials struct {
	UserID    string
	ProjectID string

	JiraAPIToken    string
	JiraInstanceURL string
	JiraUsername    string
	JiraProjectKey  string

	GitHubRepository string // "owner/repo"
	GitHubToken      string

	SlackUserToken string

	CalendarToken string // JSON-encoded OAuth2 token
}

// HasJira reports whether the issue-tracker capability is fully configured.
func (c Credentials) HasJira() bool {
	return c.JiraAPIToken != "" && c.JiraInstanceURL != "" && c.JiraUsername != ""
}

// User is an account that owns a project and chat sessions.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
}

// Project scopes credentials, meetings and the assistant's context.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
	GitHubRepo  string `json:"github_repo,omitempty"`
}

// ChatToken authorizes one websocket session for a user. The session token
// doubles as the conversation (thread) identifier.
type ChatToken struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	SessionToken string `json:"session_token"`
}

// APIKey is one stored per-service secret belonging to a project.
type APIKey struct {
	ID             string            `json:"id"`
	ProjectID      string            `json:"project_id"`
	Service        string            `json:"service"` // "jira", "slack", "calendar", "github"
	Key            string            `json:"key"`
	AdditionalData map[string]string `json:"additional_data,omitempty"`
}

// Meeting is a recorded meeting with an optional transcript bot attached.
type Meeting struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	UserID    string     `json:"user_id"`
	ProjectID string     `json:"project_id"`
	MeetingID string     `json:"meeting_id"` // external meeting link/identifier
	Attendees []string   `json:"attendees"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	BotID     string     `json:"bot_id,omitempty"`
	BotState  string     `json:"bot_state,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Tasks     []Task     `json:"tasks"`
}

// Task is an action item extracted from a meeting transcript.
type Task struct {
	Title    string `json:"title"`
	Assignee string `json:"assignee,omitempty"`
	Due      string `json:"due,omitempty"`
}
