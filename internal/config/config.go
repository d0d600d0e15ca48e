package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AdvisorConfig describes one advisor the assistant serves. ID is the
// owner UUID used throughout storage; Email is the from address for sent
// mail.
type AdvisorConfig struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Config struct {
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	MaxToolRounds int    `json:"max_tool_rounds"`
	Database      struct {
		URL string `json:"url"`
	} `json:"database"`
	HTTP struct {
		Addr      string `json:"addr"`
		JWTSecret string `json:"jwt_secret"`
	} `json:"http"`
	LLM struct {
		Provider         string  `json:"provider"`
		BaseURL          string  `json:"base_url"`
		APIKey           string  `json:"api_key"`
		Model            string  `json:"model"`
		EmbeddingModel   string  `json:"embedding_model"`
		EmbeddingDims    int     `json:"embedding_dims"`
		MaxTokens        int     `json:"max_tokens"`
		Temperature      float32 `json:"temperature"`
		MaxContextTokens int     `json:"max_context_tokens"`
		OutputReserve    int     `json:"output_reserve"`
	} `json:"llm"`
	Google struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"google"`
	Hubspot struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"hubspot"`
	Telegram struct {
		Token string `json:"token"`
		// Owners maps Telegram user IDs (decimal strings) to advisor IDs.
		Owners map[string]string `json:"owners"`
	} `json:"telegram"`
	Sync struct {
		Schedule         string `json:"schedule"`
		BackfillSchedule string `json:"backfill_schedule"`
	} `json:"sync"`
	Advisors []AdvisorConfig `json:"advisors"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		MaxConcurrent: 2,
	}
	cfg.LogLevel = "info"
	cfg.MaxToolRounds = 5
	cfg.HTTP.Addr = ":8080"
	cfg.LLM.Provider = "openai"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o"
	cfg.LLM.EmbeddingModel = "text-embedding-3-small"
	cfg.LLM.EmbeddingDims = 768
	cfg.LLM.MaxTokens = 2000
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxContextTokens = 128000
	cfg.LLM.OutputReserve = 4096
	cfg.Sync.Schedule = "*/5 * * * *"
	cfg.Sync.BackfillSchedule = "* * * * *"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.HTTP.JWTSecret = secret
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		cfg.Google.ClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		cfg.Google.ClientSecret = secret
	}
	if id := os.Getenv("HUBSPOT_CLIENT_ID"); id != "" {
		cfg.Hubspot.ClientID = id
	}
	if secret := os.Getenv("HUBSPOT_CLIENT_SECRET"); secret != "" {
		cfg.Hubspot.ClientSecret = secret
	}

	return cfg, nil
}

// Advisor returns the advisor config for an owner ID, or nil.
func (c *Config) Advisor(ownerID string) *AdvisorConfig {
	for i := range c.Advisors {
		if c.Advisors[i].ID == ownerID {
			return &c.Advisors[i]
		}
	}
	return nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
