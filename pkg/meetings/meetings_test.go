package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/model/modeltest"
	"github.com/syncwise-ai/syncwise/pkg/store"
	"github.com/syncwise-ai/syncwise/pkg/vector"
)

func TestFormatTranscript(t *testing.T) {
	segments := []Segment{
		{Speaker: "Ada", Words: []Word{{Text: "the"}, {Text: "budget"}, {Text: "is"}, {Text: "approved"}}},
		{Speaker: "", Words: []Word{{Text: "great"}}},
		{Speaker: "Grace", Words: nil},
	}
	got := FormatTranscript(segments)
	want := "[Ada]: the budget is approved\n[unknown]: great\n"
	if got != want {
		t.Errorf("FormatTranscript = %q, want %q", got, want)
	}
}

func TestFormatTranscriptEmpty(t *testing.T) {
	if got := FormatTranscript(nil); got != "" {
		t.Errorf("FormatTranscript(nil) = %q", got)
	}
}

func TestClientGetTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/bot/b1/transcript/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode([]Segment{
			{Speaker: "Ada", Words: []Word{{Text: "hello"}}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	segments, err := client.GetTranscript(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if len(segments) != 1 || segments[0].Speaker != "Ada" {
		t.Errorf("segments = %+v", segments)
	}
}

func TestClientGetTranscriptError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such bot", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	if _, err := client.GetTranscript(context.Background(), "b1"); err == nil {
		t.Fatal("expected error for 404")
	} else if !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v", err)
	}
}

type staticFetcher struct {
	segments []Segment
	err      error
}

func (f staticFetcher) GetTranscript(ctx context.Context, botID string) ([]Segment, error) {
	return f.segments, f.err
}

type outcomeRecorder struct {
	meetingID string
	summary   string
	tasks     []domain.Task
	endedAt   time.Time
	calls     int
}

func (r *outcomeRecorder) ListMeetings(ctx context.Context, userID, projectID string) ([]domain.Meeting, error) {
	return nil, nil
}

func (r *outcomeRecorder) GetMeetingByBot(ctx context.Context, botID string) (*domain.Meeting, error) {
	return nil, store.ErrNotFound
}

func (r *outcomeRecorder) SetBotState(ctx context.Context, meetingID, state string) error {
	return nil
}

func (r *outcomeRecorder) SetMeetingOutcome(ctx context.Context, meetingID, summary string, tasks []domain.Task, endedAt time.Time) error {
	r.meetingID, r.summary, r.tasks, r.endedAt = meetingID, summary, tasks, endedAt
	r.calls++
	return nil
}

type memIndex struct {
	chunks []vector.Chunk
}

func (m *memIndex) Upsert(ctx context.Context, chunks []vector.Chunk) error {
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *memIndex) Search(ctx context.Context, embedding []float32, meetingID string, topK int) ([]vector.Chunk, error) {
	return nil, nil
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestIngest(t *testing.T) {
	provider := modeltest.NewScriptedProvider(
		modeltest.Text("We approved the budget."),
		modeltest.Text(`[{"title": "Send the budget report", "assignee": "Grace"}]`),
	)
	recorder := &outcomeRecorder{}
	index := &memIndex{}
	in := &Ingestor{
		Transcripts: staticFetcher{segments: []Segment{
			{Speaker: "Ada", Words: []Word{{Text: "the"}, {Text: "budget"}, {Text: "is"}, {Text: "approved"}}},
		}},
		Index:    index,
		Embedder: unitEmbedder{},
		Provider: provider,
		Model:    "test-model",
		Meetings: recorder,
	}

	meeting := &domain.Meeting{ID: "m1", UserID: "u1", BotID: "b1"}
	if err := in.Ingest(context.Background(), meeting); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if len(index.chunks) == 0 {
		t.Error("no chunks indexed")
	} else if index.chunks[0].MeetingID != "m1" {
		t.Errorf("chunk MeetingID = %q", index.chunks[0].MeetingID)
	}
	if recorder.summary != "We approved the budget." {
		t.Errorf("summary = %q", recorder.summary)
	}
	if len(recorder.tasks) != 1 || recorder.tasks[0].Assignee != "Grace" {
		t.Errorf("tasks = %+v", recorder.tasks)
	}
	if recorder.endedAt.IsZero() {
		t.Error("endedAt not set")
	}
}

func TestIngestEmptyTranscript(t *testing.T) {
	provider := modeltest.NewScriptedProvider()
	recorder := &outcomeRecorder{}
	in := &Ingestor{
		Transcripts: staticFetcher{},
		Provider:    provider,
		Meetings:    recorder,
	}
	if err := in.Ingest(context.Background(), &domain.Meeting{ID: "m1", BotID: "b1"}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if recorder.calls != 1 || recorder.summary != "" || recorder.tasks != nil {
		t.Errorf("outcome = %+v", recorder)
	}
	if len(provider.Calls) != 0 {
		t.Errorf("model called %d times for empty transcript", len(provider.Calls))
	}
	if recorder.endedAt.IsZero() {
		t.Error("endedAt not set")
	}
}

func TestIngestDegradesGracefully(t *testing.T) {
	// Summarization fails, task extraction returns bad JSON; the outcome is
	// still recorded with what survived.
	provider := modeltest.NewScriptedProvider(
		modeltest.Response{Err: errors.New("rate limited")},
		modeltest.Text("not json"),
	)
	recorder := &outcomeRecorder{}
	in := &Ingestor{
		Transcripts: staticFetcher{segments: []Segment{
			{Speaker: "Ada", Words: []Word{{Text: "hello"}}},
		}},
		Provider: provider,
		Meetings: recorder,
	}
	if err := in.Ingest(context.Background(), &domain.Meeting{ID: "m1", BotID: "b1"}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if recorder.calls != 1 {
		t.Fatalf("outcome recorded %d times, want 1", recorder.calls)
	}
	if recorder.summary != "" || recorder.tasks != nil {
		t.Errorf("outcome = %+v", recorder)
	}
}

func TestIngestFetchError(t *testing.T) {
	in := &Ingestor{
		Transcripts: staticFetcher{err: errors.New("provider down")},
		Meetings:    &outcomeRecorder{},
	}
	if err := in.Ingest(context.Background(), &domain.Meeting{ID: "m1", BotID: "b1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"[]":                       "[]",
		"```json\n[1]\n```":        "[1]",
		"```\n[1]\n```":            "[1]",
		"  [1, 2]  ":               "[1, 2]",
		"```json\n{\"a\": 1}\n```": `{"a": 1}`,
	}
	for in, want := range cases {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
