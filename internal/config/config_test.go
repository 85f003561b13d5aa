package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.yaml")

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("STUDIO_SERVER__PORT", "")
		os.Unsetenv("STUDIO_SERVER__PORT")

		cfg, err := LoadFile(missing)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}

		if cfg.Server.Port != 8080 {
			t.Errorf("port = %v, want 8080", cfg.Server.Port)
		}
		if cfg.History.Capacity != 12 {
			t.Errorf("history capacity = %v, want 12", cfg.History.Capacity)
		}
		if cfg.Generation.Policy != "supersede" {
			t.Errorf("policy = %q, want supersede", cfg.Generation.Policy)
		}
		if cfg.GenerationTimeout() != 60*time.Second {
			t.Errorf("GenerationTimeout() = %v, want 60s", cfg.GenerationTimeout())
		}
		if !cfg.Generation.InlineArtifacts || cfg.Generation.MaxInlineBytes != 20*1024*1024 {
			t.Errorf("inline = %v/%d, want true/20MiB", cfg.Generation.InlineArtifacts, cfg.Generation.MaxInlineBytes)
		}
	})

	t.Run("env var port override", func(t *testing.T) {
		t.Setenv("STUDIO_SERVER__PORT", "9000")

		cfg, err := LoadFile(missing)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}

		if cfg.Server.Port != 9000 {
			t.Errorf("port = %v, want 9000", cfg.Server.Port)
		}
	})
}

func TestLoadFile_YAML(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
storage:
  type: sqlite
  database:
    driver: sqlite
    dsn: ":memory:"
generation:
  timeout: 30s
  policy: reject
history:
  capacity: 4
providers:
  - id: main
    provider: openai
    active: true
    model: dall-e-3
    credentials:
      apiKey: ${TEST_OPENAI_KEY}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Storage.Type != "sqlite" || cfg.Storage.Database.DSN != ":memory:" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.GenerationTimeout() != 30*time.Second {
		t.Errorf("GenerationTimeout() = %v, want 30s", cfg.GenerationTimeout())
	}
	if cfg.Generation.Policy != "reject" || cfg.History.Capacity != 4 {
		t.Errorf("generation/history = %+v / %+v", cfg.Generation, cfg.History)
	}
	if len(cfg.Providers) != 1 {
		t.Fatalf("providers = %d, want 1", len(cfg.Providers))
	}
	if got := cfg.Providers[0].Credentials["apiKey"]; got != "sk-from-env" {
		t.Errorf("apiKey = %q, want substituted value", got)
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	if got := parseDuration("bogus", time.Second); got != time.Second {
		t.Errorf("parseDuration(bogus) = %v, want fallback", got)
	}
	if got := parseDuration("-5s", time.Second); got != time.Second {
		t.Errorf("parseDuration(-5s) = %v, want fallback", got)
	}
}
