// Package config loads boardroom configuration from an optional YAML file
// overlaid with BOARDROOM_-prefixed environment variables.
package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Engine    EngineConfig    `koanf:"engine"`
	Session   SessionConfig   `koanf:"session"`
	Audit     AuditConfig     `koanf:"audit"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type EngineConfig struct {
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	Demo        bool          `koanf:"demo"`
}

type SessionConfig struct {
	MaxRounds    int  `koanf:"max_rounds"`
	AutoConclude bool `koanf:"auto_conclude"`
}

type AuditConfig struct {
	// Path is the sqlite database file. Empty selects the in-memory store.
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// Load reads path (when non-empty) and then the environment. Environment
// variables win: BOARDROOM_ENGINE__API_KEY maps to engine.api_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("BOARDROOM_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "BOARDROOM_"))
		return strings.Replace(key, "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	defaults := map[string]interface{}{
		"server.port":            8080,
		"engine.base_url":        "https://api.openai.com/v1",
		"engine.model":           "gpt-4o",
		"engine.timeout":         30 * time.Second,
		"engine.temperature":     0.7,
		"engine.max_tokens":      1024,
		"session.max_rounds":     2,
		"session.auto_conclude":  true,
		"telemetry.service_name": "boardroom",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Engine.APIKey = substituteEnvVars(cfg.Engine.APIKey)
	cfg.Engine.BaseURL = substituteEnvVars(cfg.Engine.BaseURL)

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnvVars expands ${VAR} references in config values, so a YAML
// file can say api_key: ${OPENAI_API_KEY} without holding the secret.
func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
