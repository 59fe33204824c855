package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string       `yaml:"addr"`
	DBPath      string       `yaml:"db_path"`
	TokenSecret string       `yaml:"token_secret"`
	AdminNames  []string     `yaml:"admin_names"`
	Notify      NotifyConfig `yaml:"notify"`
}

type NotifyConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads the YAML config file at path when it exists, then applies
// environment overrides. A missing file is fine; defaults cover everything
// except the token secret.
func Load(path string) (Config, error) {
	cfg := Config{
		Addr:   ":8080",
		DBPath: "taskhub.db",
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Addr = getEnv("TASKHUB_ADDR", cfg.Addr)
	cfg.DBPath = getEnv("TASKHUB_DB", cfg.DBPath)
	cfg.TokenSecret = getEnv("TASKHUB_TOKEN_SECRET", cfg.TokenSecret)
	cfg.Notify.URL = getEnv("TASKHUB_NOTIFY_URL", cfg.Notify.URL)
	cfg.Notify.APIKey = getEnv("TASKHUB_NOTIFY_API_KEY", cfg.Notify.APIKey)
	if v := os.Getenv("TASKHUB_ADMIN_NAMES"); v != "" {
		cfg.AdminNames = nil
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.AdminNames = append(cfg.AdminNames, name)
			}
		}
	}

	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("token secret is required (set TASKHUB_TOKEN_SECRET)")
	}

	return cfg, nil
}
