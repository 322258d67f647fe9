package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/store"
	"github.com/syncwise-ai/syncwise/pkg/vector"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedIdentity(t *testing.T, s *Store) (*domain.User, *domain.Project, *domain.ChatToken) {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{ID: uuid.New().String(), Email: "a@example.com", Name: "Ada"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	project := &domain.Project{ID: uuid.New().String(), Name: "Apollo", Description: "Launch planning", UserID: user.ID}
	if err := s.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := s.SetUserProject(ctx, user.ID, project.ID); err != nil {
		t.Fatalf("SetUserProject: %v", err)
	}
	user.ProjectID = project.ID

	token := &domain.ChatToken{ID: uuid.New().String(), UserID: user.ID, SessionToken: uuid.New().String()}
	if err := s.CreateChatToken(ctx, token); err != nil {
		t.Fatalf("CreateChatToken: %v", err)
	}
	return user, project, token
}

func TestIdentityLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, project, token := seedIdentity(t, s)

	got, err := s.GetChatToken(ctx, user.ID, token.SessionToken)
	if err != nil {
		t.Fatalf("GetChatToken: %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", got.UserID, user.ID)
	}

	if _, err := s.GetChatToken(ctx, user.ID, "wrong-token"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetChatToken with bad token: err = %v, want ErrNotFound", err)
	}

	u, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.ProjectID != project.ID {
		t.Errorf("ProjectID = %q, want %q", u.ProjectID, project.ID)
	}

	p, err := s.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p.Name != "Apollo" {
		t.Errorf("Name = %q, want Apollo", p.Name)
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetUser missing: err = %v, want ErrNotFound", err)
	}
}

func TestAPIKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, project, _ := seedIdentity(t, s)

	err := s.CreateAPIKey(ctx, &domain.APIKey{
		ID: uuid.New().String(), ProjectID: project.ID, Service: "jira", Key: "secret",
		AdditionalData: map[string]string{"domain": "https://acme.atlassian.net", "email": "ada@acme.dev"},
	})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	err = s.CreateAPIKey(ctx, &domain.APIKey{
		ID: uuid.New().String(), ProjectID: project.ID, Service: "slack", Key: "xoxp-1",
	})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	keys, err := s.ListAPIKeys(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListAPIKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("len = %d, want 2", len(keys))
	}
	for _, k := range keys {
		if k.Service == "jira" && k.AdditionalData["email"] != "ada@acme.dev" {
			t.Errorf("jira additional data not round-tripped: %v", k.AdditionalData)
		}
	}
}

func TestMeetingLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, project, _ := seedIdentity(t, s)

	m := &domain.Meeting{
		ID:        uuid.New().String(),
		Name:      "Kickoff",
		UserID:    user.ID,
		ProjectID: project.ID,
		MeetingID: "https://meet.example.com/abc",
		Attendees: []string{"Ada", "Grace"},
		BotID:     "b1",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	got, err := s.GetMeetingByBot(ctx, "b1")
	if err != nil {
		t.Fatalf("GetMeetingByBot: %v", err)
	}
	if got.Name != "Kickoff" || len(got.Attendees) != 2 {
		t.Errorf("meeting not round-tripped: %+v", got)
	}

	if _, err := s.GetMeetingByBot(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetMeetingByBot missing: err = %v, want ErrNotFound", err)
	}

	// Re-setting the same state is an idempotent overwrite.
	for i := 0; i < 2; i++ {
		if err := s.SetBotState(ctx, m.ID, "ended"); err != nil {
			t.Fatalf("SetBotState: %v", err)
		}
	}
	got, _ = s.GetMeetingByBot(ctx, "b1")
	if got.BotState != "ended" {
		t.Errorf("BotState = %q, want ended", got.BotState)
	}

	ended := time.Now().UTC().Truncate(time.Second)
	tasks := []domain.Task{{Title: "Ship the report", Assignee: "Grace"}}
	if err := s.SetMeetingOutcome(ctx, m.ID, "We planned the launch.", tasks, ended); err != nil {
		t.Fatalf("SetMeetingOutcome: %v", err)
	}

	meetings, err := s.ListMeetings(ctx, user.ID, project.ID)
	if err != nil {
		t.Fatalf("ListMeetings: %v", err)
	}
	if len(meetings) != 1 {
		t.Fatalf("len = %d, want 1", len(meetings))
	}
	if meetings[0].Summary != "We planned the launch." {
		t.Errorf("Summary = %q", meetings[0].Summary)
	}
	if len(meetings[0].Tasks) != 1 || meetings[0].Tasks[0].Title != "Ship the report" {
		t.Errorf("Tasks = %+v", meetings[0].Tasks)
	}
	if meetings[0].EndedAt == nil {
		t.Error("EndedAt not set")
	}
}

func TestVectorIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := []vector.Chunk{
		{ID: "c1", UserID: "u1", MeetingID: "m1", Content: "budget discussion", Embedding: []float32{1, 0, 0}},
		{ID: "c2", UserID: "u1", MeetingID: "m1", Content: "launch date", Embedding: []float32{0, 1, 0}},
		{ID: "c3", UserID: "u1", MeetingID: "m2", Content: "other meeting", Embedding: []float32{1, 0, 0}},
	}
	if err := s.Upsert(ctx, chunks); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0}, "m1", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (meeting filter)", len(got))
	}
	if got[0].ID != "c1" {
		t.Errorf("best match = %s, want c1", got[0].ID)
	}

	// Upsert replaces by ID.
	chunks[0].Content = "revised"
	if err := s.Upsert(ctx, chunks[:1]); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	got, _ = s.Search(ctx, []float32{1, 0, 0}, "m1", 1)
	if got[0].Content != "revised" {
		t.Errorf("Content = %q, want revised", got[0].Content)
	}

	// topK limit.
	got, _ = s.Search(ctx, []float32{1, 1, 0}, "m1", 1)
	if len(got) != 1 {
		t.Errorf("topK len = %d, want 1", len(got))
	}
}
