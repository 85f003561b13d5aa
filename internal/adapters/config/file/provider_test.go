package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tjfontaine/polyglot-image-studio/internal/config"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

var _ ports.ConfigProvider = (*Provider)(nil)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestNewProvider_EmptyPath(t *testing.T) {
	if _, err := NewProvider("", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestProvider_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.yaml")
	writeConfig(t, path, "generation:\n  timeout: 15s\n  policy: reject\n")

	p, err := NewProvider(path, nil)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	cfg, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GenerationTimeout() != 15*time.Second {
		t.Errorf("GenerationTimeout() = %v, want 15s", cfg.GenerationTimeout())
	}
	if cfg.Generation.Policy != "reject" {
		t.Errorf("Policy = %q, want reject", cfg.Generation.Policy)
	}
	if p.Current() != cfg {
		t.Error("Current() should return the loaded config")
	}
}

func TestProvider_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.yaml")
	writeConfig(t, path, "generation:\n  timeout: 15s\n")

	p, err := NewProvider(path, nil)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *config.Config, 4)
	if err := p.Watch(ctx, func(cfg *config.Config) { changes <- cfg }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	writeConfig(t, path, "generation:\n  timeout: 45s\n")

	select {
	case cfg := <-changes:
		if cfg.GenerationTimeout() != 45*time.Second {
			t.Errorf("GenerationTimeout() = %v, want 45s", cfg.GenerationTimeout())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestProvider_WatchIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studio.yaml")
	writeConfig(t, path, "generation:\n  timeout: 15s\n")

	p, _ := NewProvider(path, nil)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *config.Config, 4)
	if err := p.Watch(ctx, func(cfg *config.Config) { changes <- cfg }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	writeConfig(t, filepath.Join(dir, "other.yaml"), "x: 1\n")

	select {
	case <-changes:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}
