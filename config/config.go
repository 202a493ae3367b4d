package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tbxark/convoform/types"
)

type Config struct {
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
	Model    string `json:"model"`
	Addr     string `json:"addr"`
	RedisURL string `json:"redis_url"`
	// SessionTTL is a Go duration string; empty keeps sessions forever.
	SessionTTL string `json:"session_ttl"`
	LogLevel   string `json:"log_level"`
	Lang       string `json:"lang"`
	EndMessage string `json:"end_message"`
	// SkipValidation lists input types whose replies are stored without asking
	// the model. Unset means the widget input types.
	SkipValidation []string `json:"skip_validation"`
}

func Default() Config {
	return Config{
		Model:    "gpt-4o-mini",
		Addr:     ":8080",
		LogLevel: "info",
		Lang:     "English",
	}
}

func defaultSkipValidation() []string {
	return []string{
		string(types.InputMultipleChoice),
		string(types.InputDropdownSelect),
		string(types.InputRating),
		string(types.InputDatePicker),
	}
}

// Load reads the JSON file at path over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	conf := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := sonic.Unmarshal(file, &conf); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	conf.applyEnv()
	if conf.SkipValidation == nil {
		conf.SkipValidation = defaultSkipValidation()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) applyEnv() {
	c.APIKey = envStr("OPENAI_API_KEY", c.APIKey)
	c.APIKey = envStr("CONVOFORM_API_KEY", c.APIKey)
	c.BaseURL = envStr("CONVOFORM_BASE_URL", c.BaseURL)
	c.Model = envStr("CONVOFORM_MODEL", c.Model)
	c.Addr = envStr("CONVOFORM_ADDR", c.Addr)
	c.RedisURL = envStr("CONVOFORM_REDIS_URL", c.RedisURL)
	c.SessionTTL = envStr("CONVOFORM_SESSION_TTL", c.SessionTTL)
	c.LogLevel = envStr("CONVOFORM_LOG_LEVEL", c.LogLevel)
	c.Lang = envStr("CONVOFORM_LANG", c.Lang)
	c.EndMessage = envStr("CONVOFORM_END_MESSAGE", c.EndMessage)
	if v := os.Getenv("CONVOFORM_SKIP_VALIDATION"); v != "" {
		c.SkipValidation = splitList(v)
	}
}

func (c *Config) Validate() error {
	if _, err := c.TTL(); err != nil {
		return err
	}
	return nil
}

func (c *Config) TTL() (time.Duration, error) {
	if c.SessionTTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid session_ttl %q: %w", c.SessionTTL, err)
	}
	return ttl, nil
}

// SkipSet returns the configured validation policy.
func (c *Config) SkipSet() types.SkipSet {
	inputTypes := make([]types.InputType, 0, len(c.SkipValidation))
	for _, v := range c.SkipValidation {
		inputTypes = append(inputTypes, types.InputType(v))
	}
	return types.NewSkipSet(inputTypes...)
}

// SlogLevel maps log_level to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
