package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	naturaldate "github.com/tj/go-naturaldate"

	"github.com/syncwise-ai/syncwise/pkg/domain"
)

const searchTopK = 5

// meetingTool returns the meeting retrieval tool. It serves two shapes of
// request: with a meeting_id it searches that meeting's transcript for
// passages relevant to the query; without one it lists the user's meetings,
// narrowed by attendee name or a date phrase found in the query.
func meetingTool(creds domain.Credentials, deps Deps) Tool {
	return Tool{
		Name: "retrieve_or_list_meetings",
		Description: "Look up the user's recorded meetings. Pass meeting_id to search that " +
			"meeting's transcript for passages relevant to the query. Without meeting_id, " +
			"lists meetings, optionally narrowed by an attendee name or a date phrase in the query.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What the user wants to know, e.g. an attendee name, a date phrase, or a transcript question.",
				},
				"meeting_id": map[string]any{
					"type":        "string",
					"description": "ID of a specific meeting whose transcript should be searched.",
				},
			},
			"required": []any{"query"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			query := stringArg(args, "query")
			if meetingID := stringArg(args, "meeting_id"); meetingID != "" {
				return searchTranscript(ctx, deps, meetingID, query)
			}
			return listMeetings(ctx, deps, creds, query)
		},
	}
}

func searchTranscript(ctx context.Context, deps Deps, meetingID, query string) (string, error) {
	if deps.Embedder == nil || deps.Index == nil {
		return "", fmt.Errorf("transcript search is not configured")
	}
	embeddings, err := deps.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}
	chunks, err := deps.Index.Search(ctx, embeddings[0], meetingID, searchTopK)
	if err != nil {
		return "", fmt.Errorf("searching transcript: %w", err)
	}
	if len(chunks) == 0 {
		return "No transcript content found for this meeting.", nil
	}
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(c.Content)
	}
	return b.String(), nil
}

func listMeetings(ctx context.Context, deps Deps, creds domain.Credentials, query string) (string, error) {
	meetings, err := deps.Meetings.ListMeetings(ctx, creds.UserID, creds.ProjectID)
	if err != nil {
		return "", fmt.Errorf("listing meetings: %w", err)
	}
	if len(meetings) == 0 {
		return "You don't have any meetings scheduled.", nil
	}

	if byAttendee := filterByAttendee(meetings, query); byAttendee != nil {
		return formatMeetingList(byAttendee)
	}

	if day, ok := parseDay(query); ok {
		var byDay []domain.Meeting
		for _, m := range meetings {
			if sameDay(m.CreatedAt, day) || (m.EndedAt != nil && sameDay(*m.EndedAt, day)) {
				byDay = append(byDay, m)
			}
		}
		if len(byDay) == 0 {
			return "No meetings found.", nil
		}
		return formatMeetingList(byDay)
	}

	return formatMeetingList(meetings)
}

// filterByAttendee returns meetings whose attendee list mentions a name
// appearing in the query, or nil when the query names no attendee.
func filterByAttendee(meetings []domain.Meeting, query string) []domain.Meeting {
	q := strings.ToLower(query)
	if q == "" {
		return nil
	}
	var out []domain.Meeting
	for _, m := range meetings {
		for _, a := range m.Attendees {
			name := strings.ToLower(strings.TrimSpace(a))
			if name != "" && strings.Contains(q, name) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func parseDay(query string) (time.Time, bool) {
	if strings.TrimSpace(query) == "" {
		return time.Time{}, false
	}
	// Ambiguous phrases like "friday" resolve forward, matching how users
	// ask about scheduled meetings.
	t, err := naturaldate.Parse(query, time.Now().UTC(), naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

type meetingSummary struct {
	MeetingID string        `json:"meeting_id"`
	Name      string        `json:"name"`
	Created   string        `json:"created"`
	Ended     string        `json:"ended"`
	Attendees []string      `json:"attendees"`
	BotStatus string        `json:"bot_status"`
	Tasks     []domain.Task `json:"tasks,omitempty"`
}

func formatMeetingList(meetings []domain.Meeting) (string, error) {
	out := make([]meetingSummary, 0, len(meetings))
	for _, m := range meetings {
		ms := meetingSummary{
			MeetingID: m.ID,
			Name:      m.Name,
			Created:   m.CreatedAt.UTC().Format("2006-01-02 15:04"),
			Ended:     "N/A",
			Attendees: m.Attendees,
			BotStatus: m.BotState,
			Tasks:     m.Tasks,
		}
		if m.EndedAt != nil {
			ms.Ended = m.EndedAt.UTC().Format("2006-01-02 15:04")
		}
		out = append(out, ms)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding meeting list: %w", err)
	}
	return string(b), nil
}
