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

// DefaultPath is the config file read when no path is given.
const DefaultPath = "config.yaml"

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Storage     StorageConfig     `koanf:"storage"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Generation  GenerationConfig  `koanf:"generation"`
	History     HistoryConfig     `koanf:"history"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Providers   []ProviderConfig  `koanf:"providers"`
}

type ServerConfig struct {
	Port           int    `koanf:"port"`
	RequestTimeout string `koanf:"request_timeout"` // Duration string like "120s"
}

type StorageConfig struct {
	Type     string         `koanf:"type"` // memory, file, sqlite, postgres, s3
	Slot     string         `koanf:"slot"` // Snapshot slot name
	File     FileConfig     `koanf:"file"`
	Database DatabaseConfig `koanf:"database"`
	S3       S3Config       `koanf:"s3"`
}

type FileConfig struct {
	Dir string `koanf:"dir"` // Directory holding one JSON file per slot
}

// DatabaseConfig is the generic database configuration for sqlite and postgres.
type DatabaseConfig struct {
	Driver string `koanf:"driver"` // sqlite, postgres
	DSN    string `koanf:"dsn"`
}

type S3Config struct {
	Endpoint  string `koanf:"endpoint"`
	Region    string `koanf:"region"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type PersistenceConfig struct {
	// SealingKey is a base64 AES key. When empty, sensitive credentials are
	// kept in memory only and omitted from snapshots.
	SealingKey string `koanf:"sealing_key"`
}

type GenerationConfig struct {
	Timeout         string `koanf:"timeout"` // Per adapter call, duration string like "60s"
	Policy          string `koanf:"policy"`  // supersede or reject
	MaxPromptTokens int    `koanf:"max_prompt_tokens"`

	// InlineArtifacts fetches provider-hosted images into data URIs so
	// history survives link expiry.
	InlineArtifacts bool  `koanf:"inline_artifacts"`
	MaxInlineBytes  int64 `koanf:"max_inline_bytes"`
}

type HistoryConfig struct {
	Capacity int `koanf:"capacity"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// ProviderConfig seeds a provider configuration on first start.
type ProviderConfig struct {
	ID          string            `koanf:"id"`
	Provider    string            `koanf:"provider"`
	Name        string            `koanf:"name"`
	Credentials map[string]string `koanf:"credentials"` // Values support ${ENV_VAR} substitution
	Model       string            `koanf:"model"`
	AspectRatio string            `koanf:"aspect_ratio"`
	Quality     string            `koanf:"quality"`
	Active      bool              `koanf:"active"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml from the working directory, then STUDIO_ env vars.
func Load() (*Config, error) {
	return LoadFile(DefaultPath)
}

// LoadFile reads the given YAML file (optional), then STUDIO_ env vars.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	// Try to load from the config file first
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider("STUDIO_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "STUDIO_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	defaults := map[string]any{
		"server.port":                  8080,
		"server.request_timeout":       "120s",
		"storage.type":                 "file",
		"storage.slot":                 "polyglot-studio/snapshot",
		"storage.file.dir":             "./data",
		"generation.timeout":           "60s",
		"generation.policy":            "supersede",
		"generation.max_prompt_tokens": 1000,
		"generation.inline_artifacts":  true,
		"generation.max_inline_bytes":  20 * 1024 * 1024,
		"history.capacity":             12,
		"telemetry.service_name":       "polyglot-image-studio",
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

	// Substitute environment variables in provider credentials
	for i := range cfg.Providers {
		for key, val := range cfg.Providers[i].Credentials {
			cfg.Providers[i].Credentials[key] = substituteEnvVars(val)
		}
	}
	cfg.Persistence.SealingKey = substituteEnvVars(cfg.Persistence.SealingKey)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// GenerationTimeout parses Generation.Timeout, falling back to 60s.
func (c *Config) GenerationTimeout() time.Duration {
	return parseDuration(c.Generation.Timeout, 60*time.Second)
}

// RequestTimeout parses Server.RequestTimeout, falling back to 120s.
func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.Server.RequestTimeout, 120*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
