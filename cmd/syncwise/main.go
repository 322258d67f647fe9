package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/syncwise-ai/syncwise/pkg/config"
	"github.com/syncwise-ai/syncwise/pkg/convo"
	"github.com/syncwise-ai/syncwise/pkg/meetings"
	"github.com/syncwise-ai/syncwise/pkg/model"
	"github.com/syncwise-ai/syncwise/pkg/model/gemini"
	"github.com/syncwise-ai/syncwise/pkg/model/groq"
	"github.com/syncwise-ai/syncwise/pkg/server"
	"github.com/syncwise-ai/syncwise/pkg/store/sqlite"
	"github.com/syncwise-ai/syncwise/pkg/toolkit"
	"github.com/syncwise-ai/syncwise/pkg/vector"
)

func main() {
	// Setup logger.
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize store.
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		slog.Error("Failed to create data directory", "error", err)
		os.Exit(1)
	}
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Initialize model provider.
	var provider model.Provider
	switch cfg.ModelProvider {
	case "gemini":
		provider, err = gemini.New(ctx, cfg.GeminiAPIKey)
		if err != nil {
			slog.Error("Failed to initialize Gemini provider", "error", err)
			os.Exit(1)
		}
	case "groq":
		provider = groq.New(cfg.GroqAPIKey, "")
	}
	slog.Info("Model provider ready", "provider", provider.Name(), "model", cfg.ModelName)

	// Embeddings for transcript search.
	var embedder vector.Embedder
	if cfg.OpenAIAPIKey != "" {
		embedder = vector.NewOpenAIEmbedder(cfg.OpenAIAPIKey)
	} else {
		slog.Warn("OPENAI_API_KEY not set, transcript search disabled")
	}

	// Transcript ingestion.
	var ingestor *meetings.Ingestor
	if cfg.RecallAPIKey != "" {
		ingestor = &meetings.Ingestor{
			Transcripts: meetings.NewClient(cfg.RecallBaseURL, cfg.RecallAPIKey),
			Index:       st,
			Embedder:    embedder,
			Splitter:    vector.NewSplitter(),
			Provider:    provider,
			Model:       cfg.ModelName,
			Meetings:    st,
		}
	} else {
		slog.Warn("RECALL_API_KEY not set, meeting ingestion disabled")
	}

	var googleOAuth *oauth2.Config
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		googleOAuth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{calendar.CalendarScope},
		}
	} else {
		slog.Warn("Google OAuth client not configured, calendar tools disabled")
	}

	srv := server.New(server.Config{
		Identity: st,
		Meetings: st,
		Provider: provider,
		Model:    cfg.ModelName,
		Convos:   convo.NewStore(),
		ToolDeps: toolkit.Deps{
			Meetings:    st,
			Index:       st,
			Embedder:    embedder,
			GoogleOAuth: googleOAuth,
		},
		Ingestor:      ingestor,
		MaxToolCycles: cfg.MaxToolCycles,
	})
	if err := srv.Start(cfg.ListenAddr); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
