package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/syncwise-ai/syncwise/pkg/agent"
	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/toolkit"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleChat serves one websocket chat session. The thread ID in the path is
// the session token; it also identifies the conversation, so reconnecting
// with the same token resumes the same history.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	threadID := r.PathValue("thread_id")

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	ctx := r.Context()

	if _, err := s.cfg.Identity.GetChatToken(ctx, userID, threadID); err != nil {
		closePolicyViolation(ws, "invalid session token")
		return
	}
	user, err := s.cfg.Identity.GetUser(ctx, userID)
	if err != nil {
		closePolicyViolation(ws, "unknown user")
		return
	}
	project, err := s.cfg.Identity.GetProject(ctx, user.ProjectID)
	if err != nil {
		closePolicyViolation(ws, "user has no project")
		return
	}

	keys, err := s.cfg.Identity.ListAPIKeys(ctx, project.ID)
	if err != nil {
		slog.Error("Failed to list api keys", "error", err, "project_id", project.ID)
		keys = nil
	}
	creds := resolveCredentials(user, project, keys)

	reg := toolkit.Build(ctx, creds, s.cfg.ToolDeps)
	instructions := systemPrompt(project, creds, reg.Names())

	loop := &agent.Loop{
		Provider:      s.cfg.Provider,
		Model:         s.cfg.Model,
		Tools:         reg,
		Convo:         s.cfg.Convos,
		MaxToolCycles: s.cfg.MaxToolCycles,
	}

	slog.Info("Chat session started", "user_id", userID, "thread_id", threadID, "tools", reg.Len())

	for {
		var msg struct {
			Content string `json:"content"`
		}
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			slog.Info("Chat session closed", "user_id", userID, "error", err)
			return
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}

		writeErr := error(nil)
		sink := func(e agent.Event) {
			if writeErr != nil {
				return
			}
			writeErr = ws.WriteJSON(e)
		}
		if _, err := loop.Run(ctx, threadID, instructions, msg.Content, sink); err != nil {
			slog.Error("Turn failed", "error", err, "thread_id", threadID)
			_ = ws.WriteJSON(map[string]string{
				"type":  "error",
				"error": "Something went wrong while answering. Please try again.",
			})
			continue
		}
		if writeErr != nil {
			slog.Info("Chat session write failed", "error", writeErr)
			return
		}
	}
}

func closePolicyViolation(ws *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	deadline := time.Now().Add(5 * time.Second)
	if err := ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		slog.Debug("Failed to write close frame", "error", err)
	}
}

// resolveCredentials folds the project's stored API keys into the session
// credential bundle.
func resolveCredentials(user *domain.User, project *domain.Project, keys []domain.APIKey) domain.Credentials {
	creds := domain.Credentials{
		UserID:           user.ID,
		ProjectID:        project.ID,
		GitHubRepository: project.GitHubRepo,
	}
	for _, k := range keys {
		switch k.Service {
		case "jira":
			creds.JiraAPIToken = k.Key
			creds.JiraInstanceURL = k.AdditionalData["domain"]
			creds.JiraUsername = k.AdditionalData["email"]
			creds.JiraProjectKey = k.AdditionalData["project_key"]
		case "slack":
			creds.SlackUserToken = k.Key
		case "github":
			creds.GitHubToken = k.Key
			if repo := k.AdditionalData["repository"]; repo != "" {
				creds.GitHubRepository = repo
			}
		case "calendar":
			creds.CalendarToken = k.Key
		default:
			slog.Debug("Ignoring api key for unknown service", "service", k.Service)
		}
	}
	return creds
}

// systemPrompt builds the session instructions: current time, project
// context and the capabilities actually available to this session.
func systemPrompt(project *domain.Project, creds domain.Credentials, toolNames []string) string {
	var b strings.Builder
	b.WriteString("You are a productivity assistant for the project ")
	fmt.Fprintf(&b, "%q.", project.Name)
	if project.Description != "" {
		fmt.Fprintf(&b, " Project description: %s.", project.Description)
	}
	fmt.Fprintf(&b, "\nThe current date and time is %s (UTC).", time.Now().UTC().Format(time.RFC1123))
	b.WriteString("\nYou can use the following tools: ")
	b.WriteString(strings.Join(toolNames, ", "))
	b.WriteString(".")
	b.WriteString(`
Behavior:
- When the user requests or implies an action in Jira, GitHub, Slack, Google Calendar, or against their meetings, invoke the corresponding tool.
- For side-effecting operations (creating issues, sending messages, creating or updating events, etc.), always confirm with the user before executing.
- Return raw tool output when possible, then provide a concise human-readable summary.
- If a tool call fails, explain the error and offer alternative approaches.
- For everything else, respond as a normal conversational assistant.
- If it's unclear which system to use, ask the user to clarify.
- When a needed service is not among the tools, say so instead of guessing.
- When writing code or file contents, use markdown code blocks with triple backticks and specify the language or file format immediately after the opening backticks (e.g., ` + "```html" + `).`)
	if creds.JiraProjectKey != "" {
		fmt.Fprintf(&b, "\nThe Jira project key is %s.", creds.JiraProjectKey)
	}
	if creds.GitHubRepository != "" {
		fmt.Fprintf(&b, "\nThe GitHub repository is %s.", creds.GitHubRepository)
	}
	return b.String()
}
