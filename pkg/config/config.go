// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultModel is used when MODEL_NAME is not set.
const DefaultModel = "meta-llama/llama-4-scout-17b-16e-instruct"

// Config is the process configuration.
type Config struct {
	ListenAddr   string
	DatabasePath string

	ModelProvider string // "groq" or "gemini"
	ModelName     string
	GroqAPIKey    string
	GeminiAPIKey  string

	OpenAIAPIKey string // embeddings

	RecallAPIKey  string
	RecallBaseURL string

	GoogleClientID     string
	GoogleClientSecret string

	MaxToolCycles int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		ListenAddr:         envOr("LISTEN_ADDR", ":8000"),
		DatabasePath:       envOr("DATABASE_PATH", "data/syncwise.db"),
		ModelProvider:      envOr("MODEL_PROVIDER", "groq"),
		ModelName:          envOr("MODEL_NAME", DefaultModel),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		RecallAPIKey:       os.Getenv("RECALL_API_KEY"),
		RecallBaseURL:      envOr("RECALL_BASE_URL", "https://us-east-1.recall.ai"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
	}

	if raw := os.Getenv("MAX_TOOL_CYCLES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("MAX_TOOL_CYCLES must be a positive integer, got %q", raw)
		}
		cfg.MaxToolCycles = n
	}

	switch cfg.ModelProvider {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, errors.New("GROQ_API_KEY is required when MODEL_PROVIDER=groq")
		}
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required when MODEL_PROVIDER=gemini")
		}
	default:
		return nil, fmt.Errorf("unknown MODEL_PROVIDER %q", cfg.ModelProvider)
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
