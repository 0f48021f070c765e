// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token            string  `yaml:"token"`
	Mode             string  `yaml:"mode"` // polling | webhook (future)
	Username         string  `yaml:"username"`
	Workers          int     `yaml:"workers"` // update handler workers
	AdminIDs         []int64 `yaml:"admin_ids"`
	ModerationChatID int64   `yaml:"moderation_chat_id"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	DraftTTL time.Duration `yaml:"draft_ttl"`
}

type WebConfig struct {
	Port      int           `yaml:"port"`
	APIKey    string        `yaml:"api_key"`    // exchanged for a session token
	JWTSecret string        `yaml:"jwt_secret"` // HS256 secret for admin tokens
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type CatalogConfig struct {
	CardsPerPage  int           `yaml:"cards_per_page"`
	SearchLimit   int           `yaml:"search_limit"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Web      WebConfig      `yaml:"web"`
	Catalog  CatalogConfig  `yaml:"catalog"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.DraftTTL <= 0 {
		cfg.Redis.DraftTTL = time.Hour
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8081
	}
	if cfg.Web.TokenTTL <= 0 {
		cfg.Web.TokenTTL = 30 * time.Minute
	}
	if cfg.Catalog.CardsPerPage <= 0 {
		cfg.Catalog.CardsPerPage = 5
	}
	if cfg.Catalog.SearchLimit <= 0 {
		cfg.Catalog.SearchLimit = 5
	}
	if cfg.Catalog.SweepInterval <= 0 {
		cfg.Catalog.SweepInterval = time.Hour
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if len(cfg.Bot.AdminIDs) == 0 {
		return nil, errors.New("bot.admin_ids is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
