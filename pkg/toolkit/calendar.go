package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/syncwise-ai/syncwise/pkg/domain"
)

// storedCalendarToken is the persisted OAuth token shape. Older rows store
// the access token under "token" rather than "access_token".
type storedCalendarToken struct {
	AccessToken  string    `json:"access_token"`
	LegacyToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

func calendarTools(ctx context.Context, creds domain.Credentials, oauthCfg *oauth2.Config) ([]Tool, error) {
	if oauthCfg == nil {
		return nil, errors.New("google oauth client is not configured")
	}
	var stored storedCalendarToken
	if err := json.Unmarshal([]byte(creds.CalendarToken), &stored); err != nil {
		return nil, fmt.Errorf("decoding calendar token: %w", err)
	}
	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}
	if tok.AccessToken == "" {
		tok.AccessToken = stored.LegacyToken
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("calendar token has no usable credentials")
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}

	return []Tool{
		searchCalendarEvents(svc),
		createCalendarEvent(svc),
		updateCalendarEvent(svc),
		deleteCalendarEvent(svc),
		currentDatetime(),
	}, nil
}

type calendarEventSummary struct {
	EventID   string   `json:"event_id"`
	Summary   string   `json:"summary"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Attendees []string `json:"attendees,omitempty"`
	Link      string   `json:"link,omitempty"`
}

func searchCalendarEvents(svc *calendar.Service) Tool {
	return Tool{
		Name: "search_calendar_events",
		Description: "Search the user's primary calendar. time_min and time_max are RFC3339 " +
			"timestamps bounding the search window; query matches event text.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"time_min": map[string]any{"type": "string", "description": "RFC3339 lower bound, e.g. 2026-03-01T00:00:00Z."},
				"time_max": map[string]any{"type": "string", "description": "RFC3339 upper bound."},
				"query":    map[string]any{"type": "string", "description": "Free-text filter over event fields."},
			},
			"required": []any{"time_min", "time_max"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			call := svc.Events.List("primary").
				TimeMin(stringArg(args, "time_min")).
				TimeMax(stringArg(args, "time_max")).
				SingleEvents(true).
				OrderBy("startTime").
				MaxResults(25)
			if q := stringArg(args, "query"); q != "" {
				call = call.Q(q)
			}
			events, err := call.Context(ctx).Do()
			if err != nil {
				return "", fmt.Errorf("listing events: %w", err)
			}
			if len(events.Items) == 0 {
				return "No events found in that window.", nil
			}
			out := make([]calendarEventSummary, 0, len(events.Items))
			for _, e := range events.Items {
				out = append(out, summarizeEvent(e))
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("encoding events: %w", err)
			}
			return string(b), nil
		},
	}
}

func createCalendarEvent(svc *calendar.Service) Tool {
	return Tool{
		Name:        "create_calendar_event",
		Description: "Create an event on the user's primary calendar. start and end are RFC3339 timestamps.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary":     map[string]any{"type": "string", "description": "Event title."},
				"description": map[string]any{"type": "string"},
				"start":       map[string]any{"type": "string", "description": "RFC3339 start time."},
				"end":         map[string]any{"type": "string", "description": "RFC3339 end time."},
				"attendees": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Attendee email addresses.",
				},
			},
			"required": []any{"summary", "start", "end"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			event := &calendar.Event{
				Summary:     stringArg(args, "summary"),
				Description: stringArg(args, "description"),
				Start:       &calendar.EventDateTime{DateTime: stringArg(args, "start")},
				End:         &calendar.EventDateTime{DateTime: stringArg(args, "end")},
			}
			if raw, ok := args["attendees"].([]any); ok {
				for _, a := range raw {
					if email, ok := a.(string); ok && email != "" {
						event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
					}
				}
			}
			created, err := svc.Events.Insert("primary", event).Context(ctx).Do()
			if err != nil {
				return "", fmt.Errorf("creating event: %w", err)
			}
			b, err := json.Marshal(summarizeEvent(created))
			if err != nil {
				return "", fmt.Errorf("encoding event: %w", err)
			}
			return string(b), nil
		},
	}
}

func updateCalendarEvent(svc *calendar.Service) Tool {
	return Tool{
		Name:        "update_calendar_event",
		Description: "Update fields of an existing event on the user's primary calendar. Only the provided fields change.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"event_id":    map[string]any{"type": "string"},
				"summary":     map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
				"start":       map[string]any{"type": "string", "description": "RFC3339 start time."},
				"end":         map[string]any{"type": "string", "description": "RFC3339 end time."},
			},
			"required": []any{"event_id"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			patch := &calendar.Event{}
			if v := stringArg(args, "summary"); v != "" {
				patch.Summary = v
			}
			if v := stringArg(args, "description"); v != "" {
				patch.Description = v
			}
			if v := stringArg(args, "start"); v != "" {
				patch.Start = &calendar.EventDateTime{DateTime: v}
			}
			if v := stringArg(args, "end"); v != "" {
				patch.End = &calendar.EventDateTime{DateTime: v}
			}
			updated, err := svc.Events.Patch("primary", stringArg(args, "event_id"), patch).Context(ctx).Do()
			if err != nil {
				return "", fmt.Errorf("updating event: %w", err)
			}
			b, err := json.Marshal(summarizeEvent(updated))
			if err != nil {
				return "", fmt.Errorf("encoding event: %w", err)
			}
			return string(b), nil
		},
	}
}

func deleteCalendarEvent(svc *calendar.Service) Tool {
	return Tool{
		Name:        "delete_calendar_event",
		Description: "Delete an event from the user's primary calendar.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"event_id": map[string]any{"type": "string"},
			},
			"required": []any{"event_id"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			id := stringArg(args, "event_id")
			if err := svc.Events.Delete("primary", id).Context(ctx).Do(); err != nil {
				return "", fmt.Errorf("deleting event: %w", err)
			}
			return fmt.Sprintf("Event %s deleted.", id), nil
		},
	}
}

func currentDatetime() Tool {
	return Tool{
		Name:        "get_current_datetime",
		Description: "Get the current date and time in UTC. Use this before computing relative dates.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			return time.Now().UTC().Format(time.RFC3339), nil
		},
	}
}

func summarizeEvent(e *calendar.Event) calendarEventSummary {
	s := calendarEventSummary{
		EventID: e.Id,
		Summary: e.Summary,
		Link:    e.HtmlLink,
	}
	if e.Start != nil {
		s.Start = e.Start.DateTime
		if s.Start == "" {
			s.Start = e.Start.Date
		}
	}
	if e.End != nil {
		s.End = e.End.DateTime
		if s.End == "" {
			s.End = e.End.Date
		}
	}
	for _, a := range e.Attendees {
		s.Attendees = append(s.Attendees, a.Email)
	}
	return s
}
