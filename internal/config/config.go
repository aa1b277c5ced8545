package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "json" or "text"
	} `yaml:"log"`
	Forum struct {
		BaseURL      string `yaml:"base_url" validate:"required,url"`
		APIKey       string `yaml:"api_key" validate:"required"`
		MemberID     int64  `yaml:"member_id" validate:"required"`
		MemberName   string `yaml:"member_name"`
		UserAgent    string `yaml:"user_agent"`
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"forum"`
	LLM struct {
		URL          string  `yaml:"url" validate:"required,url"`
		APIKey       string  `yaml:"api_key" validate:"required"`
		Model        string  `yaml:"model" validate:"required"`
		Temperature  float64 `yaml:"temperature"`
		SystemPrompt string  `yaml:"system_prompt"`
	} `yaml:"llm"`
	Retry struct {
		MaxAttempts int    `yaml:"max_attempts" validate:"gte=1"`
		Delay       string `yaml:"delay"`
	} `yaml:"retry"`
	Quiz struct {
		TopicID         int64  `yaml:"topic_id"`
		TriggerPhrase   string `yaml:"trigger_phrase" validate:"required"`
		DefaultCategory string `yaml:"default_category" validate:"required"`
		Scoring         string `yaml:"scoring" validate:"oneof=fixed hint_weighted"`
		Points          int    `yaml:"points" validate:"gte=1"`
		HintCount       int    `yaml:"hint_count" validate:"gte=1"`
	} `yaml:"quiz"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Leaderboard struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"leaderboard"`
}

// Default returns the configuration used when neither the file nor the
// environment sets a value.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Forum.BaseURL = "https://forum.wrestling.pl/api"
	cfg.Forum.UserAgent = "forum-quiz-bot/1.0"
	cfg.Forum.PollInterval = "10s"
	cfg.LLM.URL = "https://api.x.ai/v1/chat/completions"
	cfg.LLM.Model = "grok-2-latest"
	cfg.LLM.SystemPrompt = "You are Grok, a chatbot inspired by the Hitchhikers Guide to the Galaxy."
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.Delay = "2s"
	cfg.Quiz.TriggerPhrase = "start quiz"
	cfg.Quiz.DefaultCategory = "wrestling"
	cfg.Quiz.Scoring = "fixed"
	cfg.Quiz.Points = 1
	cfg.Quiz.HintCount = 3
	cfg.Redis.TTL = "24h"
	cfg.Leaderboard.CacheTTL = "30s"
	return cfg
}

// Load builds the configuration once at process start: defaults, then the YAML
// file at path (optional), then .env and process environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return cfg, err
		}
	}

	// .env is optional; real environment variables always win over it.
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that secrets and endpoints required to talk to the forum
// and the language model are present.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setString(&cfg.Forum.BaseURL, "FORUM_API_URL")
	setString(&cfg.Forum.APIKey, "FORUM_API_KEY")
	setString(&cfg.Forum.MemberName, "USER_MENTION_NAME")
	setString(&cfg.Forum.PollInterval, "FORUM_POLL_INTERVAL")
	if err := setInt64(&cfg.Forum.MemberID, "USER_MENTION_ID"); err != nil {
		return err
	}

	setString(&cfg.LLM.URL, "XAI_API_URL")
	setString(&cfg.LLM.APIKey, "XAI_API_KEY")
	setString(&cfg.LLM.Model, "XAI_MODEL")

	if err := setInt64(&cfg.Quiz.TopicID, "QUIZ_TOPIC_ID"); err != nil {
		return err
	}

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")

	setString(&cfg.Postgres.URL, "POSTGRES_URL")
	if cfg.Postgres.URL == "" && os.Getenv("DB_HOST") != "" {
		cfg.Postgres.URL = postgresURLFromEnv()
	}
	return nil
}

func postgresURLFromEnv() string {
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD")),
		Host:     os.Getenv("DB_HOST") + ":" + port,
		Path:     "/" + os.Getenv("DB_NAME"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
