// Package store defines the persistence interfaces consumed by the gateway,
// the tool registry and the meeting ingestion pipeline.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/syncwise-ai/syncwise/pkg/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// IdentityStore resolves inbound connections to users, projects and
// per-service credentials.
type IdentityStore interface {
	// GetChatToken returns the chat token for a (user, session token) pair.
	// Returns ErrNotFound if the pair is not valid.
	GetChatToken(ctx context.Context, userID, sessionToken string) (*domain.ChatToken, error)

	// GetUser retrieves a user by ID. Returns ErrNotFound if absent.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// GetProject retrieves a project by ID. Returns ErrNotFound if absent.
	GetProject(ctx context.Context, id string) (*domain.Project, error)

	// ListAPIKeys returns all stored service keys for a project.
	ListAPIKeys(ctx context.Context, projectID string) ([]domain.APIKey, error)
}

// MeetingStore manages meeting records and their bot/transcript lifecycle.
type MeetingStore interface {
	// ListMeetings returns a user's meetings within a project, ordered by
	// creation time ascending.
	ListMeetings(ctx context.Context, userID, projectID string) ([]domain.Meeting, error)

	// GetMeetingByBot returns the meeting associated with a transcript bot.
	// Returns ErrNotFound if no meeting references the bot.
	GetMeetingByBot(ctx context.Context, botID string) (*domain.Meeting, error)

	// SetBotState records the bot's latest reported state. Re-delivering the
	// same state is a no-op overwrite.
	SetBotState(ctx context.Context, meetingID, state string) error

	// SetMeetingOutcome records the post-meeting summary, extracted action
	// items and end time. Empty summary or nil tasks leave the prior value.
	SetMeetingOutcome(ctx context.Context, meetingID, summary string, tasks []domain.Task, endedAt time.Time) error
}
