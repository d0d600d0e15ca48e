package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := &Config{
		LogLevel:      "debug",
		MaxConcurrent: 4,
		MaxToolRounds: 8,
	}
	original.Database.URL = "postgres://localhost/finclaw"
	original.HTTP.Addr = ":9090"
	original.HTTP.JWTSecret = "jwt-secret-789"
	original.LLM.Provider = "openai"
	original.LLM.BaseURL = "https://api.openai.com/v1"
	original.LLM.APIKey = "sk-test-round-trip"
	original.LLM.Model = "gpt-4o"
	original.LLM.EmbeddingModel = "text-embedding-3-small"
	original.LLM.EmbeddingDims = 768
	original.LLM.MaxTokens = 4000
	original.LLM.Temperature = 0.5
	original.LLM.MaxContextTokens = 128000
	original.LLM.OutputReserve = 4096
	original.Telegram.Token = "bot-token-456"
	original.Telegram.Owners = map[string]string{"12345": "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}
	original.Advisors = []AdvisorConfig{
		{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", Name: "Pat Doyle", Email: "pat@example.com"},
	}

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file does not exist after Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LogLevel != original.LogLevel {
		t.Errorf("LogLevel mismatch: %v != %v", loaded.LogLevel, original.LogLevel)
	}
	if loaded.MaxConcurrent != original.MaxConcurrent {
		t.Errorf("MaxConcurrent mismatch: %v != %v", loaded.MaxConcurrent, original.MaxConcurrent)
	}
	if loaded.Database.URL != original.Database.URL {
		t.Errorf("Database.URL mismatch: %v != %v", loaded.Database.URL, original.Database.URL)
	}
	if loaded.HTTP.Addr != original.HTTP.Addr {
		t.Errorf("HTTP.Addr mismatch: %v != %v", loaded.HTTP.Addr, original.HTTP.Addr)
	}
	if loaded.LLM.APIKey != original.LLM.APIKey {
		t.Errorf("LLM.APIKey mismatch: %v != %v", loaded.LLM.APIKey, original.LLM.APIKey)
	}
	if loaded.LLM.EmbeddingDims != original.LLM.EmbeddingDims {
		t.Errorf("LLM.EmbeddingDims mismatch: %v != %v", loaded.LLM.EmbeddingDims, original.LLM.EmbeddingDims)
	}
	if loaded.Telegram.Token != original.Telegram.Token {
		t.Errorf("Telegram.Token mismatch: %v != %v", loaded.Telegram.Token, original.Telegram.Token)
	}
	if loaded.Telegram.Owners["12345"] != original.Telegram.Owners["12345"] {
		t.Errorf("Telegram.Owners mismatch: %v != %v", loaded.Telegram.Owners, original.Telegram.Owners)
	}
	if len(loaded.Advisors) != 1 || loaded.Advisors[0].Name != "Pat Doyle" {
		t.Errorf("Advisors mismatch: %v", loaded.Advisors)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify no temp file left behind
	tmpPath := path + ".tmp"
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	// Verify the file is valid JSON
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestToMap(t *testing.T) {
	cfg := &Config{
		LogLevel: "debug",
	}
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-4o"
	cfg.LLM.MaxTokens = 2000

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}

	if m["log_level"] != "debug" {
		t.Errorf("expected log_level=debug, got %v", m["log_level"])
	}

	llm, ok := m["llm"].(map[string]any)
	if !ok {
		t.Fatalf("expected llm to be map, got %T", m["llm"])
	}
	if llm["provider"] != "openai" {
		t.Errorf("expected llm.provider=openai, got %v", llm["provider"])
	}
	if llm["model"] != "gpt-4o" {
		t.Errorf("expected llm.model=gpt-4o, got %v", llm["model"])
	}
	// JSON numbers are float64
	if llm["max_tokens"] != float64(2000) {
		t.Errorf("expected llm.max_tokens=2000, got %v", llm["max_tokens"])
	}
}

func TestListValues_NoMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.LLM.APIKey = "sk-secret-key-1234"
	cfg.Telegram.Token = "bot-token-abcd"
	cfg.HTTP.JWTSecret = "jwt-secret-wxyz"

	flat, err := ListValues(cfg, false)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	// Secrets should be unmasked
	if flat["llm.api_key"] != "sk-secret-key-1234" {
		t.Errorf("expected unmasked llm.api_key, got %v", flat["llm.api_key"])
	}
	if flat["telegram.token"] != "bot-token-abcd" {
		t.Errorf("expected unmasked telegram.token, got %v", flat["telegram.token"])
	}
	if flat["http.jwt_secret"] != "jwt-secret-wxyz" {
		t.Errorf("expected unmasked http.jwt_secret, got %v", flat["http.jwt_secret"])
	}
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestListValues_WithMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.LLM.APIKey = "sk-secret-key-1234"
	cfg.Telegram.Token = "bot-token-abcd"
	cfg.HTTP.JWTSecret = "jwt-secret-wxyz"

	flat, err := ListValues(cfg, true)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	// Secrets should be masked
	if flat["llm.api_key"] != "***1234" {
		t.Errorf("expected masked llm.api_key=***1234, got %v", flat["llm.api_key"])
	}
	if flat["telegram.token"] != "***abcd" {
		t.Errorf("expected masked telegram.token=***abcd, got %v", flat["telegram.token"])
	}
	if flat["http.jwt_secret"] != "***wxyz" {
		t.Errorf("expected masked http.jwt_secret=***wxyz, got %v", flat["http.jwt_secret"])
	}

	// Non-secrets should be unchanged
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestGetValue_ExistingKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{
		LogLevel:      "debug",
		MaxConcurrent: 8,
	}
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-4o"
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug, got %v", v)
	}

	v, err = GetValue(path, "llm.model")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "gpt-4o" {
		t.Errorf("expected llm.model=gpt-4o, got %v", v)
	}

	v, err = GetValue(path, "max_concurrent")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	// JSON numbers are float64
	if v != float64(8) {
		t.Errorf("expected max_concurrent=8, got %v (%T)", v, v)
	}
}

func TestGetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	_, err := GetValue(path, "nonexistent.key")
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	expected := "unknown config key: nonexistent.key"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestSetValue_String(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	cfg.LLM.Provider = "openai"
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "log_level", "debug"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug after set, got %v", v)
	}

	// Verify other values are preserved
	v, err = GetValue(path, "llm.provider")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "openai" {
		t.Errorf("expected llm.provider=openai (preserved), got %v", v)
	}
}

func TestSetValue_Numeric(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{MaxConcurrent: 2}
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "max_concurrent", "16"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "max_concurrent")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != float64(16) {
		t.Errorf("expected max_concurrent=16, got %v (%T)", v, v)
	}
}

func TestSetValue_Float(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.LLM.Temperature = 0.7
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "llm.temperature", "0.3"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "llm.temperature")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != 0.3 {
		t.Errorf("expected llm.temperature=0.3, got %v (%T)", v, v)
	}
}

func TestSetValue_NestedKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.LLM.Model = "gpt-4o-mini"
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "llm.model", "gpt-4o"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "llm.model")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "gpt-4o" {
		t.Errorf("expected llm.model=gpt-4o, got %v", v)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "config.json")
	err := SetValue(path, "log_level", "debug")
	if err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}

func TestGetValue_NonexistentFile(t *testing.T) {
	// File doesn't exist yet; Load creates it with defaults.
	path := tempConfigPath(t)

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue on new config failed: %v", err)
	}
	if v != "info" {
		t.Errorf("expected default log_level=info, got %v", v)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, &Config{})

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("DATABASE_URL", "postgres://env/finclaw")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("expected env API key, got %q", cfg.LLM.APIKey)
	}
	if cfg.Database.URL != "postgres://env/finclaw" {
		t.Errorf("expected env database URL, got %q", cfg.Database.URL)
	}
	if cfg.HTTP.JWTSecret != "env-secret" {
		t.Errorf("expected env JWT secret, got %q", cfg.HTTP.JWTSecret)
	}
}

func TestAdvisorLookup(t *testing.T) {
	cfg := &Config{
		Advisors: []AdvisorConfig{
			{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", Name: "Pat Doyle", Email: "pat@example.com"},
		},
	}

	a := cfg.Advisor("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	if a == nil || a.Name != "Pat Doyle" {
		t.Fatalf("expected advisor lookup to succeed, got %v", a)
	}
	if cfg.Advisor("unknown") != nil {
		t.Error("expected nil for unknown advisor")
	}
}
