// Package config loads service configuration from an optional YAML file and
// the environment. Environment variables override YAML values; secrets come
// from the environment only.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"advocai/internal/judge"
	"advocai/internal/llm"
	"advocai/internal/pubmed"
	"advocai/internal/storage"
)

// Config is the full configuration for the API server, the worker, and the CLI.
type Config struct {
	Env  string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Port string `yaml:"port" env:"PORT" env-default:"8000"`

	// APIToken protects the admin endpoints. Secret, env-only.
	APIToken string `yaml:"-" env:"API_TOKEN"`

	// DatabaseURL is the Postgres DSN for the checkpoint store. When empty
	// the session manager runs on the JSON file store alone.
	DatabaseURL string `yaml:"-" env:"DATABASE_URL"`

	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`

	// SessionsDir is the root of the JSON fallback store and of per-case
	// output directories.
	SessionsDir string `yaml:"sessions_dir" env:"SESSIONS_DIR" env-default:"sessions"`
	// StatutesPath is the knowledge file fed to the Regulatory stage.
	StatutesPath string `yaml:"statutes_path" env:"STATUTES_PATH" env-default:"data/knowledge/statutes.md"`

	Storage storage.Config `yaml:"storage"`
	LLM     llm.Config     `yaml:"llm"`
	PubMed  pubmed.Config  `yaml:"pubmed"`
	Judge   judge.Config   `yaml:"judge"`
}

// Load reads config.yaml when present, then applies environment overrides.
func Load() (*Config, error) {
	var cfg Config

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	if cfg.LLM.FastModel == "" {
		cfg.LLM.FastModel = cfg.LLM.Model
	}
	return &cfg, nil
}
