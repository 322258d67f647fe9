package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/syncwise-ai/syncwise/pkg/agent"
	"github.com/syncwise-ai/syncwise/pkg/convo"
	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/meetings"
	"github.com/syncwise-ai/syncwise/pkg/model"
	"github.com/syncwise-ai/syncwise/pkg/model/modeltest"
	"github.com/syncwise-ai/syncwise/pkg/store/sqlite"
	"github.com/syncwise-ai/syncwise/pkg/toolkit"
)

func newTestServer(t *testing.T, provider model.Provider, ingestor *meetings.Ingestor) (*httptest.Server, *sqlite.Store) {
	t.Helper()
	st, err := sqlite.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	srv := New(Config{
		Identity: st,
		Meetings: st,
		Provider: provider,
		Model:    "test-model",
		Convos:   convo.NewStore(),
		ToolDeps: toolkit.Deps{Meetings: st, Index: st},
		Ingestor: ingestor,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func seedSession(t *testing.T, st *sqlite.Store) (*domain.User, *domain.Project, *domain.ChatToken) {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{ID: uuid.New().String(), Email: "ada@example.com", Name: "Ada"}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	project := &domain.Project{ID: uuid.New().String(), Name: "Apollo", Description: "Launch planning", UserID: user.ID}
	if err := st.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := st.SetUserProject(ctx, user.ID, project.ID); err != nil {
		t.Fatalf("SetUserProject: %v", err)
	}
	user.ProjectID = project.ID

	token := &domain.ChatToken{ID: uuid.New().String(), UserID: user.ID, SessionToken: uuid.New().String()}
	if err := st.CreateChatToken(ctx, token); err != nil {
		t.Fatalf("CreateChatToken: %v", err)
	}
	return user, project, token
}

func wsURL(ts *httptest.Server, userID, threadID string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + userID + "/" + threadID
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, modeltest.NewScriptedProvider(), nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "working" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestChatRejectsInvalidToken(t *testing.T) {
	ts, st := newTestServer(t, modeltest.NewScriptedProvider(), nil)
	user, _, _ := seedSession(t, st)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts, user.ID, "wrong-token"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("err = %v, want close error", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", closeErr.Code, websocket.ClosePolicyViolation)
	}
}

func TestChatToolAssistedTurn(t *testing.T) {
	provider := modeltest.NewScriptedProvider(
		modeltest.ToolCalls(domain.ToolCall{
			ID:    "tc1",
			Name:  "retrieve_or_list_meetings",
			Input: map[string]any{"query": "my meetings"},
		}),
		modeltest.Text("You have one meeting: Kickoff."),
	)
	ts, st := newTestServer(t, provider, nil)
	user, project, token := seedSession(t, st)

	err := st.CreateMeeting(context.Background(), &domain.Meeting{
		ID: uuid.New().String(), Name: "Kickoff", UserID: user.ID, ProjectID: project.ID,
		Attendees: []string{"Ada"}, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts, user.ID, token.SessionToken), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(map[string]string{"content": "what meetings do I have?"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var types []agent.EventType
	var finalText strings.Builder
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var e agent.Event
		if err := ws.ReadJSON(&e); err != nil {
			t.Fatalf("read: %v (events so far: %v)", err, types)
		}
		types = append(types, e.Type)
		if e.Type == agent.EventText {
			finalText.WriteString(e.Text)
		}
		if e.Type == agent.EventToolResult {
			if e.ToolResult.IsError {
				t.Errorf("tool result is error: %s", e.ToolResult.Content)
			}
			if !strings.Contains(e.ToolResult.Content, "Kickoff") {
				t.Errorf("tool result = %q", e.ToolResult.Content)
			}
		}
		if e.Type == agent.EventDone {
			break
		}
	}

	want := []agent.EventType{agent.EventToolCall, agent.EventToolResult, agent.EventText, agent.EventDone}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events = %v, want %v", types, want)
		}
	}
	if finalText.String() != "You have one meeting: Kickoff." {
		t.Errorf("text = %q", finalText.String())
	}

	// The provider must have been offered this session's tools.
	if len(provider.Tools) == 0 || len(provider.Tools[0]) == 0 {
		t.Fatal("no tools offered to the model")
	}

	// And the session instructions, including the behavioral rules.
	if len(provider.Instructions) == 0 {
		t.Fatal("no instructions recorded")
	}
	if !strings.Contains(provider.Instructions[0], "confirm with the user before executing") {
		t.Errorf("instructions missing confirmation rule: %q", provider.Instructions[0])
	}
}

func TestSystemPrompt(t *testing.T) {
	project := &domain.Project{Name: "Apollo", Description: "Launch planning"}
	creds := domain.Credentials{JiraProjectKey: "AP", GitHubRepository: "acme/rocket"}
	prompt := systemPrompt(project, creds, []string{"jql_search", "retrieve_or_list_meetings"})

	for _, want := range []string{
		"Apollo",
		"Launch planning",
		"jql_search, retrieve_or_list_meetings",
		"confirm with the user before executing",
		"Return raw tool output when possible, then provide a concise human-readable summary",
		"explain the error and offer alternative approaches",
		"ask the user to clarify",
		"triple backticks",
		"The Jira project key is AP.",
		"The GitHub repository is acme/rocket.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func webhookPayload(botID, state string) map[string]any {
	return map[string]any{
		"bot_id": botID,
		"data":   map[string]any{"new_state": state},
	}
}

func TestWebhookUnknownBot(t *testing.T) {
	ts, _ := newTestServer(t, modeltest.NewScriptedProvider(), &meetings.Ingestor{})

	resp := postJSON(t, ts.URL+"/webhook/meeting-end", webhookPayload("nope", "ended"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestWebhookBadPayload(t *testing.T) {
	ts, _ := newTestServer(t, modeltest.NewScriptedProvider(), &meetings.Ingestor{})

	resp := postJSON(t, ts.URL+"/webhook/meeting-end", map[string]any{"bot_id": "b1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhookWithoutIngestor(t *testing.T) {
	ts, st := newTestServer(t, modeltest.NewScriptedProvider(), nil)
	user, project, _ := seedSession(t, st)

	err := st.CreateMeeting(context.Background(), &domain.Meeting{
		ID: "m1", Name: "Kickoff", UserID: user.ID, ProjectID: project.ID,
		BotID: "b1", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	resp := postJSON(t, ts.URL+"/webhook/meeting-end", webhookPayload("b1", "ended"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestWebhookMeetingEnd(t *testing.T) {
	transcripts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]meetings.Segment{
			{Speaker: "Ada", Words: []meetings.Word{{Text: "ship"}, {Text: "it"}}},
		})
	}))
	defer transcripts.Close()

	ingestProvider := modeltest.NewScriptedProvider(
		modeltest.Text("Decided to ship."),
		modeltest.Text(`[{"title": "Ship it", "assignee": "Ada"}]`),
	)

	_, st := newTestServer(t, modeltest.NewScriptedProvider(), nil)
	user, project, _ := seedSession(t, st)

	// Wire the ingestor against the same store after seeding.
	ingestor := &meetings.Ingestor{
		Transcripts: meetings.NewClient(transcripts.URL, "secret"),
		Index:       st,
		Embedder:    unitEmbedder{},
		Provider:    ingestProvider,
		Model:       "test-model",
		Meetings:    st,
	}
	srv := New(Config{
		Identity: st, Meetings: st,
		Provider: modeltest.NewScriptedProvider(), Model: "test-model",
		Convos: convo.NewStore(), ToolDeps: toolkit.Deps{Meetings: st, Index: st},
		Ingestor: ingestor,
	})
	hooked := httptest.NewServer(srv.Handler())
	defer hooked.Close()

	err := st.CreateMeeting(context.Background(), &domain.Meeting{
		ID: "m1", Name: "Kickoff", UserID: user.ID, ProjectID: project.ID,
		BotID: "b1", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	resp := postJSON(t, hooked.URL+"/webhook/meeting-end", webhookPayload("b1", "ended"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var ack map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decoding ack: %v", err)
	}
	if !ack["done"] {
		t.Errorf("ack = %v", ack)
	}

	// Ingestion runs in the background; wait for the outcome to land.
	deadline := time.Now().Add(5 * time.Second)
	for {
		m, err := st.GetMeetingByBot(context.Background(), "b1")
		if err != nil {
			t.Fatalf("GetMeetingByBot: %v", err)
		}
		if m.Summary != "" {
			if m.Summary != "Decided to ship." {
				t.Errorf("Summary = %q", m.Summary)
			}
			if len(m.Tasks) != 1 || m.Tasks[0].Title != "Ship it" {
				t.Errorf("Tasks = %+v", m.Tasks)
			}
			if m.BotState != "ended" {
				t.Errorf("BotState = %q", m.BotState)
			}
			if m.EndedAt == nil {
				t.Error("EndedAt not set")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ingestion did not complete")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWebhookMeetingEndRedelivery(t *testing.T) {
	transcripts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]meetings.Segment{
			{Speaker: "Ada", Words: []meetings.Word{{Text: "ship"}, {Text: "it"}}},
		})
	}))
	defer transcripts.Close()

	// One ingestion per delivery: two summary/tasks pairs.
	ingestProvider := modeltest.NewScriptedProvider(
		modeltest.Text("Decided to ship."),
		modeltest.Text(`[{"title": "Ship it", "assignee": "Ada"}]`),
		modeltest.Text("Decided to ship."),
		modeltest.Text(`[{"title": "Ship it", "assignee": "Ada"}]`),
	)

	_, st := newTestServer(t, modeltest.NewScriptedProvider(), nil)
	user, project, _ := seedSession(t, st)

	ingestor := &meetings.Ingestor{
		Transcripts: meetings.NewClient(transcripts.URL, "secret"),
		Index:       st,
		Embedder:    unitEmbedder{},
		Provider:    ingestProvider,
		Model:       "test-model",
		Meetings:    st,
	}
	srv := New(Config{
		Identity: st, Meetings: st,
		Provider: modeltest.NewScriptedProvider(), Model: "test-model",
		Convos: convo.NewStore(), ToolDeps: toolkit.Deps{Meetings: st, Index: st},
		Ingestor: ingestor,
	})
	hooked := httptest.NewServer(srv.Handler())
	defer hooked.Close()

	err := st.CreateMeeting(context.Background(), &domain.Meeting{
		ID: "m1", Name: "Kickoff", UserID: user.ID, ProjectID: project.ID,
		BotID: "b1", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	deliver := func(n int) {
		t.Helper()
		resp := postJSON(t, hooked.URL+"/webhook/meeting-end", webhookPayload("b1", "ended"))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delivery %d: status = %d, want 200", n, resp.StatusCode)
		}
		var ack map[string]bool
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			t.Fatalf("delivery %d: decoding ack: %v", n, err)
		}
		if !ack["done"] {
			t.Errorf("delivery %d: ack = %v", n, ack)
		}
	}

	waitForOutcome := func() *domain.Meeting {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for {
			m, err := st.GetMeetingByBot(context.Background(), "b1")
			if err != nil {
				t.Fatalf("GetMeetingByBot: %v", err)
			}
			if m.Summary != "" {
				return m
			}
			if time.Now().After(deadline) {
				t.Fatal("ingestion did not complete")
			}
			time.Sleep(20 * time.Millisecond)
		}
	}

	deliver(1)
	first := waitForOutcome()

	// Redelivering the same terminal event must be acknowledged again and
	// leave the recorded state and outcome intact.
	deliver(2)
	time.Sleep(200 * time.Millisecond)

	m, err := st.GetMeetingByBot(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetMeetingByBot: %v", err)
	}
	if m.BotState != "ended" {
		t.Errorf("BotState = %q, want ended", m.BotState)
	}
	if m.Summary != first.Summary {
		t.Errorf("Summary changed on redelivery: %q -> %q", first.Summary, m.Summary)
	}
	if len(m.Tasks) != 1 || m.Tasks[0].Title != "Ship it" {
		t.Errorf("Tasks = %+v", m.Tasks)
	}
	if m.EndedAt == nil {
		t.Error("EndedAt not set")
	}
}
