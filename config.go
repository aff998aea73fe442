package main

import (
	"fmt"
	"time"

	"github.com/codingconcepts/env"

	"github.com/Zachkp/portfolio-ai/internal/prompt"
)

// Config is read from the environment once at startup (.env is loaded by
// godotenv/autoload before main runs).
type Config struct {
	Port         string `env:"PORT" default:"8080"`
	DatabasePath string `env:"DATABASE_PATH" default:"portfolio.db"`

	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	GeminiModel   string        `env:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GeminiBaseURL string        `env:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiTimeout time.Duration `env:"GEMINI_TIMEOUT" default:"30s"`
	SystemPrompt  string        `env:"AI_SYSTEM_PROMPT"`

	AdminUsername    string        `env:"ADMIN_USERNAME" default:"admin"`
	AdminPassword    string        `env:"ADMIN_PASSWORD"`
	VisitorRetention time.Duration `env:"VISITOR_RETENTION" default:"8760h"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("setting variables from environment: %w", err)
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = prompt.DefaultSystem
	}
	return cfg, nil
}
