package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL            string        `yaml:"api_url"`
	UserID            string        `yaml:"user_id"`
	Token             string        `yaml:"token"`
	Timeout           time.Duration `yaml:"timeout"`
	DedupeInterval    time.Duration `yaml:"dedupe_interval"`
	RevalidateWorkers int           `yaml:"revalidate_workers"`
	Server            ServerConfig  `yaml:"server"`
}

// ServerConfig configures the local dev server.
type ServerConfig struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	// Tokens maps bearer tokens to user ids; empty disables auth.
	Tokens map[string]string `yaml:"tokens"`
}

func Default() Config {
	return Config{
		APIURL:            "http://localhost:8000",
		Timeout:           10 * time.Second,
		DedupeInterval:    5 * time.Second,
		RevalidateWorkers: 2,
		Server: ServerConfig{
			Port: "8000",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/taskdeck/config.yaml or its $HOME fallback.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskdeck", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "taskdeck", "config.yaml")
}

// Load layers defaults, the YAML file at path and the environment, in that
// order. A missing file is not an error unless path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.APIURL = getEnv("TASKDECK_API_URL", cfg.APIURL)
	cfg.UserID = getEnv("TASKDECK_USER_ID", cfg.UserID)
	cfg.Token = getEnv("TASKDECK_TOKEN", cfg.Token)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.DatabaseURL = getEnv("DATABASE_URL", cfg.Server.DatabaseURL)

	if v := os.Getenv("TASKDECK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKDECK_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("TASKDECK_DEDUPE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKDECK_DEDUPE_INTERVAL: %w", err)
		}
		cfg.DedupeInterval = d
	}
	if v := os.Getenv("TASKDECK_REVALIDATE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKDECK_REVALIDATE_WORKERS: %w", err)
		}
		cfg.RevalidateWorkers = n
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
