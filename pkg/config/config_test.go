package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("MODEL_NAME", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("MAX_TOOL_CYCLES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ModelProvider != "groq" {
		t.Errorf("ModelProvider = %q", cfg.ModelProvider)
	}
	if cfg.ModelName != DefaultModel {
		t.Errorf("ModelName = %q", cfg.ModelName)
	}
	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.MaxToolCycles != 0 {
		t.Errorf("MaxToolCycles = %d", cfg.MaxToolCycles)
	}
}

func TestLoadMissingProviderKey(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadUnknownProvider(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "llamacpp")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MODEL_PROVIDER") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadBadMaxToolCycles(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("MODEL_PROVIDER", "groq")
	t.Setenv("MAX_TOOL_CYCLES", "zero")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MAX_TOOL_CYCLES") {
		t.Errorf("err = %v", err)
	}
}
