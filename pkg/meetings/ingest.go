package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/model"
	"github.com/syncwise-ai/syncwise/pkg/store"
	"github.com/syncwise-ai/syncwise/pkg/vector"
)

const summaryPrompt = "Summarize the following meeting transcript in a short paragraph. " +
	"Cover the decisions made and the main discussion points. Reply with the summary only."

const tasksPrompt = "Extract the action items from the following meeting transcript. " +
	`Reply with a JSON array only, each element {"title": "...", "assignee": "...", "due": "..."}. ` +
	"Leave assignee or due empty when the transcript does not say. " +
	"Reply with [] if there are no action items."

// Ingestor processes a finished meeting: it fetches the transcript, indexes
// it for retrieval, and asks the model for a summary and action items.
// Indexing, summarization and task extraction degrade independently; a
// failure in one stage is logged and does not abort the others.
type Ingestor struct {
	Transcripts TranscriptFetcher
	Index       vector.Index
	Embedder    vector.Embedder
	Splitter    *vector.Splitter
	Provider    model.Provider
	Model       string
	Meetings    store.MeetingStore
}

// Ingest runs the post-meeting pipeline for one meeting.
func (in *Ingestor) Ingest(ctx context.Context, meeting *domain.Meeting) error {
	log := slog.With("meeting_id", meeting.ID, "bot_id", meeting.BotID)

	segments, err := in.Transcripts.GetTranscript(ctx, meeting.BotID)
	if err != nil {
		return fmt.Errorf("fetching transcript: %w", err)
	}
	text := FormatTranscript(segments)
	endedAt := time.Now().UTC()

	if text == "" {
		log.Info("transcript empty, recording end time only")
		if err := in.Meetings.SetMeetingOutcome(ctx, meeting.ID, "", nil, endedAt); err != nil {
			return fmt.Errorf("recording meeting end: %w", err)
		}
		return nil
	}

	if err := in.indexTranscript(ctx, meeting, text); err != nil {
		log.Warn("transcript indexing failed", "error", err)
	}

	summary, err := in.complete(ctx, summaryPrompt, text)
	if err != nil {
		log.Warn("summarization failed", "error", err)
		summary = ""
	}

	tasks, err := in.extractTasks(ctx, text)
	if err != nil {
		log.Warn("action item extraction failed", "error", err)
		tasks = nil
	}

	if err := in.Meetings.SetMeetingOutcome(ctx, meeting.ID, summary, tasks, endedAt); err != nil {
		return fmt.Errorf("recording meeting outcome: %w", err)
	}
	log.Info("meeting ingested", "tasks", len(tasks), "summarized", summary != "")
	return nil
}

func (in *Ingestor) indexTranscript(ctx context.Context, meeting *domain.Meeting, text string) error {
	if in.Embedder == nil || in.Index == nil {
		return errors.New("indexing is not configured")
	}
	splitter := in.Splitter
	if splitter == nil {
		splitter = vector.NewSplitter()
	}
	pieces := splitter.Split(text)
	if len(pieces) == 0 {
		return nil
	}
	embeddings, err := in.Embedder.Embed(ctx, pieces)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	chunks := make([]vector.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = vector.Chunk{
			ID:        uuid.New().String(),
			UserID:    meeting.UserID,
			MeetingID: meeting.ID,
			Content:   p,
			Embedding: embeddings[i],
		}
	}
	if err := in.Index.Upsert(ctx, chunks); err != nil {
		return fmt.Errorf("upserting chunks: %w", err)
	}
	return nil
}

// complete runs a single no-tools model call and returns the full text.
func (in *Ingestor) complete(ctx context.Context, instructions, input string) (string, error) {
	stream, err := in.Provider.Stream(ctx, in.Model, instructions, []domain.Message{{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   input,
		Timestamp: time.Now().UTC(),
	}}, nil)
	if err != nil {
		return "", fmt.Errorf("starting model stream: %w", err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("receiving model response: %w", err)
		}
		b.WriteString(chunk.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

func (in *Ingestor) extractTasks(ctx context.Context, text string) ([]domain.Task, error) {
	raw, err := in.complete(ctx, tasksPrompt, text)
	if err != nil {
		return nil, err
	}
	var tasks []domain.Task
	if err := json.Unmarshal([]byte(stripFences(raw)), &tasks); err != nil {
		return nil, fmt.Errorf("decoding action items: %w", err)
	}
	return tasks, nil
}

// stripFences removes a surrounding markdown code fence, which models
// sometimes add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
