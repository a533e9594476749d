package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Provider struct {
		Name  string `yaml:"name"` // "yahoo" or "alpaca"
		Proxy string `yaml:"proxy"`
	} `yaml:"provider"`
	Alpaca struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		DataURL   string `yaml:"data_url"`
	} `yaml:"alpaca"`
	Cache struct {
		HistoryTTL      string `yaml:"history_ttl"`
		DailyTTL        string `yaml:"daily_ttl"`
		FundamentalsTTL string `yaml:"fundamentals_ttl"`
	} `yaml:"cache"`
	// TTL carries the parsed cache durations, populated by Load.
	TTL struct {
		History      time.Duration
		Daily        time.Duration
		Fundamentals time.Duration
	} `yaml:"-"`
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"telegram"`
	OpenAI struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"openai"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing file is fine; defaults and the environment cover
// it. A .env file in the working directory is folded into the environment
// first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Provider.Proxy = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("WEBHOOK_PUBLIC_URL"); v != "" {
		cfg.Telegram.WebhookURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = "9095"
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "yahoo"
	}
	cfg.TTL.History, err = parseTTL(cfg.Cache.HistoryTTL, 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("cache.history_ttl: %w", err)
	}
	cfg.TTL.Daily, err = parseTTL(cfg.Cache.DailyTTL, 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("cache.daily_ttl: %w", err)
	}
	cfg.TTL.Fundamentals, err = parseTTL(cfg.Cache.FundamentalsTTL, 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("cache.fundamentals_ttl: %w", err)
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/energydash.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}

func parseTTL(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// Validate checks that the selected provider has what it needs.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "yahoo":
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return fmt.Errorf("alpaca provider requires alpaca.api_key and alpaca.api_secret")
		}
	default:
		return fmt.Errorf("unknown provider %q (use yahoo or alpaca)", c.Provider.Name)
	}
	if c.Telegram.BotToken != "" && c.Telegram.WebhookURL == "" {
		return fmt.Errorf("telegram.webhook_url is required when telegram.bot_token is set")
	}
	return nil
}
