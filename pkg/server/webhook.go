package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/syncwise-ai/syncwise/pkg/store"
)

// terminalBotStates are the bot states that mean the recording is finished
// and the transcript can be ingested.
var terminalBotStates = map[string]bool{
	"ended": true,
	"done":  true,
}

type meetingEndPayload struct {
	BotID string `json:"bot_id"`
	Data  struct {
		NewState string `json:"new_state"`
	} `json:"data"`
}

// handleMeetingEnd receives bot state changes from the recording provider.
// It acknowledges immediately; transcript ingestion runs in the background.
func (s *Server) handleMeetingEnd(w http.ResponseWriter, r *http.Request) {
	var payload meetingEndPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("decoding payload: %w", err))
		return
	}
	if payload.BotID == "" || payload.Data.NewState == "" {
		s.errorResponse(w, http.StatusBadRequest, errors.New("bot_id and data.new_state are required"))
		return
	}

	meeting, err := s.cfg.Meetings.GetMeetingByBot(r.Context(), payload.BotID)
	if errors.Is(err, store.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, fmt.Errorf("no meeting for bot %s", payload.BotID))
		return
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}

	if s.cfg.Ingestor == nil {
		s.errorResponse(w, http.StatusInternalServerError, errors.New("transcript provider is not configured"))
		return
	}

	// State updates are idempotent overwrites, so redelivered events are
	// harmless.
	if err := s.cfg.Meetings.SetBotState(r.Context(), meeting.ID, payload.Data.NewState); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}

	if terminalBotStates[payload.Data.NewState] {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := s.cfg.Ingestor.Ingest(ctx, meeting); err != nil {
				slog.Error("Meeting ingestion failed", "error", err, "meeting_id", meeting.ID)
			}
		}()
	}

	s.jsonResponse(w, http.StatusOK, map[string]bool{"done": true})
}
