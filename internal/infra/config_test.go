package infra

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BATCH_CONCURRENCY", "")
	t.Setenv("GENAI_TIMEOUT_SECONDS", "")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
	if cfg.BatchConcurrency != 3 || cfg.BatchConfirmThreshold != 50 || cfg.AgentMaxLoops != 8 {
		t.Fatalf("batch/agent defaults mismatch: %+v", cfg)
	}
	if cfg.GenAITimeout != 120*time.Second {
		t.Fatalf("GenAITimeout = %v, want 120s", cfg.GenAITimeout)
	}
	if !cfg.AgentUsePrimary {
		t.Fatal("AgentUsePrimary should default to true")
	}
	if err := cfg.RequireDatabase(); err == nil {
		t.Fatal("RequireDatabase should fail without DATABASE_URL")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("BATCH_CONCURRENCY", "5")
	t.Setenv("AGENT_USE_PRIMARY", "false")
	t.Setenv("GEMINI_IMAGE_MODEL", "custom-image")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.BatchConcurrency != 5 {
		t.Fatalf("BatchConcurrency = %d, want 5", cfg.BatchConcurrency)
	}
	if cfg.AgentUsePrimary {
		t.Fatal("AgentUsePrimary should be false")
	}
	if cfg.GeminiImageModel != "custom-image" {
		t.Fatalf("GeminiImageModel = %q", cfg.GeminiImageModel)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if err := cfg.RequireDatabase(); err != nil {
		t.Fatalf("RequireDatabase: %v", err)
	}
}

func TestLoadConfigRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("BATCH_CONCURRENCY", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows not detected")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatal("unrelated error reported as no rows")
	}
}
