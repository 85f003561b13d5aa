// Package provider caches constructed adapters so repeated submissions
// against the same config reuse one client.
package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/registry"
)

// DefaultPoolSize bounds the number of cached adapters.
const DefaultPoolSize = 32

// Pool resolves configs to adapters through the registry, caching them by
// a fingerprint of provider id and credentials. Editing a config's
// credentials therefore yields a fresh adapter.
type Pool struct {
	registry *registry.Registry
	cache    *lru.Cache[string, ports.ProviderAdapter]

	// mu serializes construction so concurrent misses build once.
	mu sync.Mutex
}

// NewPool creates a pool of at most size adapters.
func NewPool(reg *registry.Registry, size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	cache, err := lru.New[string, ports.ProviderAdapter](size)
	if err != nil {
		return nil, err
	}
	return &Pool{registry: reg, cache: cache}, nil
}

// Adapter returns the adapter for cfg, constructing it on a miss.
func (p *Pool) Adapter(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
	key := fingerprint(cfg)
	if a, ok := p.cache.Get(key); ok {
		return a, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.cache.Get(key); ok {
		return a, nil
	}
	a, err := p.registry.Create(cfg)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, a)
	return a, nil
}

// Len returns the number of cached adapters.
func (p *Pool) Len() int {
	return p.cache.Len()
}

// Purge drops every cached adapter.
func (p *Pool) Purge() {
	p.cache.Purge()
}

func fingerprint(cfg domain.ProviderConfig) string {
	keys := make([]string, 0, len(cfg.Credentials))
	for k := range cfg.Credentials {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(cfg.ID))
	h.Write([]byte{0})
	h.Write([]byte(cfg.ProviderID))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(cfg.Credentials[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}
