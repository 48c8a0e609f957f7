package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	State   StateConfig   `yaml:"state"`
	Logging LoggingConfig `yaml:"logging"`
	Webhook WebhookConfig `yaml:"webhook"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StateConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WebhookConfig holds the shared secrets for providers that cannot carry a
// per-account token, plus the account that owns their events. Loaded once
// at startup and injected; never mutated afterwards.
type WebhookConfig struct {
	GitHubSecret   string `yaml:"github_secret"`
	GitLabSecret   string `yaml:"gitlab_secret"`
	JenkinsSecret  string `yaml:"jenkins_secret"`
	DefaultAccount string `yaml:"default_account"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		State: StateConfig{
			Path: "/var/lib/pulse/state.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
