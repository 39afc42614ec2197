package config

import (
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	setBase := func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost:5432/cases")
		t.Setenv("AI_PROVIDER", "openai")
		t.Setenv("AI_API_KEY", "sk-test")
	}

	t.Run("valid openai config", func(t *testing.T) {
		setBase(t)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.AIProvider != "openai" || cfg.QueueName != "ingest_queue" {
			t.Errorf("unexpected config: %+v", cfg)
		}
	})

	t.Run("missing database url", func(t *testing.T) {
		setBase(t)
		t.Setenv("DATABASE_URL", "")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for missing DATABASE_URL")
		}
	})

	t.Run("openai requires api key", func(t *testing.T) {
		setBase(t)
		t.Setenv("AI_API_KEY", "")
		_, err := Load()
		if err == nil {
			t.Fatal("expected error for openai provider without API key")
		}
		if !strings.Contains(err.Error(), "AI_API_KEY") {
			t.Errorf("error does not name the missing variable: %v", err)
		}
	})

	t.Run("ollama needs no api key", func(t *testing.T) {
		setBase(t)
		t.Setenv("AI_PROVIDER", "ollama")
		t.Setenv("AI_API_KEY", "")
		if _, err := Load(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		setBase(t)
		t.Setenv("AI_PROVIDER", "bedrock")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for unknown provider")
		}
	})
}
