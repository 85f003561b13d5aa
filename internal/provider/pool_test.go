package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/registry"
)

func countingRegistry(t *testing.T, created *atomic.Int32) *registry.Registry {
	t.Helper()
	return registry.MustNew(registry.ProviderFactory{
		Descriptor: domain.ProviderDescriptor{
			ID:               "stub",
			CredentialSchema: []domain.CredentialField{{Key: "apiKey", Required: true, Sensitive: true}},
		},
		Create: func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
			created.Add(1)
			return ports.ProviderAdapterFunc(func(ctx context.Context, in ports.GenerateInput) ([]domain.Artifact, error) {
				return nil, nil
			}), nil
		},
	})
}

func TestPool_Adapter(t *testing.T) {
	var created atomic.Int32
	pool, err := NewPool(countingRegistry(t, &created), 2)
	if err != nil {
		t.Fatal(err)
	}

	cfg := domain.ProviderConfig{ID: "c1", ProviderID: "stub", Credentials: map[string]string{"apiKey": "k1"}}

	if _, err := pool.Adapter(cfg); err != nil {
		t.Fatalf("Adapter() error = %v", err)
	}
	if _, err := pool.Adapter(cfg); err != nil {
		t.Fatalf("Adapter() error = %v", err)
	}
	if created.Load() != 1 {
		t.Errorf("created = %d, want 1 (cache hit)", created.Load())
	}

	cfg.Credentials = map[string]string{"apiKey": "k2"}
	if _, err := pool.Adapter(cfg); err != nil {
		t.Fatalf("Adapter() error = %v", err)
	}
	if created.Load() != 2 {
		t.Errorf("created = %d, want 2 after credential change", created.Load())
	}

	pool.Purge()
	if pool.Len() != 0 {
		t.Errorf("Len() = %d after Purge", pool.Len())
	}
}

func TestPool_ConcurrentMissBuildsOnce(t *testing.T) {
	var created atomic.Int32
	pool, _ := NewPool(countingRegistry(t, &created), 0)
	cfg := domain.ProviderConfig{ID: "c1", ProviderID: "stub", Credentials: map[string]string{"apiKey": "k"}}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Adapter(cfg)
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("created = %d, want 1", created.Load())
	}
}

func TestPool_InvalidConfigNotCached(t *testing.T) {
	var created atomic.Int32
	pool, _ := NewPool(countingRegistry(t, &created), 0)

	_, err := pool.Adapter(domain.ProviderConfig{ID: "c1", ProviderID: "stub"})
	if !domain.IsConfiguration(err) {
		t.Errorf("Adapter() error = %v, want configuration error", err)
	}
	if pool.Len() != 0 {
		t.Errorf("Len() = %d, want 0", pool.Len())
	}
}
