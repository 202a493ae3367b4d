package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbxark/convoform/types"
)

var envKeys = []string{
	"OPENAI_API_KEY", "CONVOFORM_API_KEY", "CONVOFORM_BASE_URL", "CONVOFORM_MODEL",
	"CONVOFORM_ADDR", "CONVOFORM_REDIS_URL", "CONVOFORM_SESSION_TTL",
	"CONVOFORM_LOG_LEVEL", "CONVOFORM_LANG", "CONVOFORM_SKIP_VALIDATION",
	"CONVOFORM_END_MESSAGE",
}

func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr, got %s", cfg.Addr)
	}
	if cfg.Lang != "English" {
		t.Errorf("expected default lang, got %s", cfg.Lang)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("expected info level, got %v", cfg.SlogLevel())
	}
	skip := cfg.SkipSet()
	if !skip.SkipValidation(types.InputRating) || skip.SkipValidation(types.InputText) {
		t.Errorf("unexpected default skip set %v", cfg.SkipValidation)
	}
	if ttl, _ := cfg.TTL(); ttl != 0 {
		t.Errorf("expected no ttl, got %v", ttl)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `{"api_key":"from-file","model":"gpt-4o","log_level":"debug","session_ttl":"30m","skip_validation":["rating"]}`)
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("CONVOFORM_ADDR", ":9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("env should override the file, got %s", cfg.APIKey)
	}
	if cfg.Model != "gpt-4o" || cfg.Addr != ":9999" {
		t.Errorf("unexpected model/addr %s %s", cfg.Model, cfg.Addr)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.SlogLevel())
	}
	if ttl, _ := cfg.TTL(); ttl != 30*time.Minute {
		t.Errorf("expected 30m ttl, got %v", ttl)
	}
	if cfg.SkipSet().SkipValidation(types.InputDatePicker) {
		t.Error("file skip list should replace the default")
	}
}

func TestLoad_SkipValidationEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONVOFORM_SKIP_VALIDATION", " rating , datePicker,")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.SkipValidation) != 2 || cfg.SkipValidation[1] != "datePicker" {
		t.Errorf("unexpected skip list %q", cfg.SkipValidation)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "{")); err == nil {
		t.Error("expected error for malformed file")
	}
	if _, err := Load(writeFile(t, `{"session_ttl":"soon"}`)); err == nil {
		t.Error("expected error for invalid ttl")
	}
}

func TestLoad_EndMessageEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `{"end_message":"from file"}`)
	t.Setenv("CONVOFORM_END_MESSAGE", "Thanks, we will be in touch.")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EndMessage != "Thanks, we will be in touch." {
		t.Errorf("env should override the end message, got %q", cfg.EndMessage)
	}
}
