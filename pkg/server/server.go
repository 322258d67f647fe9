// Package server exposes the assistant over HTTP: a websocket chat endpoint,
// the meeting-end webhook and a health check.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/syncwise-ai/syncwise/pkg/convo"
	"github.com/syncwise-ai/syncwise/pkg/meetings"
	"github.com/syncwise-ai/syncwise/pkg/model"
	"github.com/syncwise-ai/syncwise/pkg/store"
	"github.com/syncwise-ai/syncwise/pkg/toolkit"
)

// Config wires the server's collaborators.
type Config struct {
	Identity store.IdentityStore
	Meetings store.MeetingStore
	Provider model.Provider
	Model    string
	Convos   *convo.Store
	ToolDeps toolkit.Deps

	// Ingestor may be nil when the transcript provider is not configured;
	// the webhook then reports an error for finished meetings.
	Ingestor *meetings.Ingestor

	// MaxToolCycles is passed through to the agent loop. Zero uses the
	// loop's default.
	MaxToolCycles int
}

// Server is the HTTP front end.
type Server struct {
	cfg Config
	srv *http.Server
}

// New creates a new Server.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Handler returns the route table, for serving or for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("/ws/{user_id}/{thread_id}", s.handleChat)
	mux.HandleFunc("POST /webhook/meeting-end", s.handleMeetingEnd)
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	slog.Info("Starting server", "addr", addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "working"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	slog.Error("API error", "error", err)
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
