// Package registry holds the static catalog of generation providers.
//
// # Adding a New Provider
//
// Each provider package exposes a descriptor and a factory, and the
// registration package lists it in the built-in catalog:
//
//	registry.ProviderFactory{
//	    Descriptor:     pollinations.Descriptor(),
//	    Create:         pollinations.CreateFromConfig,
//	    ValidateConfig: pollinations.ValidateConfig,
//	}
//
// A Registry is built once at startup and never changes afterwards, so it is
// safe for concurrent use without locking.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// ProviderFactory defines a provider and how to build adapters for it.
type ProviderFactory struct {
	// Descriptor is the provider's catalog entry. Descriptor.ID is the key
	// configs reference.
	Descriptor domain.ProviderDescriptor

	// Create instantiates an adapter bound to a config's credentials.
	Create func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error)

	// ValidateConfig performs provider-specific configuration validation
	// beyond required-key presence.
	// Optional: if nil, no additional validation is performed.
	ValidateConfig func(cfg domain.ProviderConfig) error
}

// Registry is an immutable, id-keyed catalog of provider factories.
type Registry struct {
	factories map[string]ProviderFactory
	ids       []string
}

// New builds a registry. Empty or duplicate ids and factories without a
// Create function are rejected.
func New(factories ...ProviderFactory) (*Registry, error) {
	r := &Registry{
		factories: make(map[string]ProviderFactory, len(factories)),
		ids:       make([]string, 0, len(factories)),
	}

	for _, f := range factories {
		id := f.Descriptor.ID
		if id == "" {
			return nil, fmt.Errorf("provider factory id cannot be empty")
		}
		if f.Create == nil {
			return nil, fmt.Errorf("provider factory %q must have a Create function", id)
		}
		if _, exists := r.factories[id]; exists {
			return nil, fmt.Errorf("provider factory %q already registered", id)
		}

		f.Descriptor = f.Descriptor.Clone()
		r.factories[id] = f
		r.ids = append(r.ids, id)
	}

	sort.Strings(r.ids)
	return r, nil
}

// MustNew is New that panics on error, for static catalogs.
func MustNew(factories ...ProviderFactory) *Registry {
	r, err := New(factories...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the descriptor for id. Unknown ids yield a configuration
// error with code provider_not_found.
func (r *Registry) Lookup(id string) (domain.ProviderDescriptor, error) {
	f, ok := r.factories[id]
	if !ok {
		return domain.ProviderDescriptor{}, domain.ErrProviderNotFound(id)
	}
	return f.Descriptor.Clone(), nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.factories[id]
	return ok
}

// List returns every descriptor sorted by id.
func (r *Registry) List() []domain.ProviderDescriptor {
	out := make([]domain.ProviderDescriptor, len(r.ids))
	for i, id := range r.ids {
		out[i] = r.factories[id].Descriptor.Clone()
	}
	return out
}

// IDs returns the registered provider ids, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Validate lists the required credential keys cfg is missing, in schema
// order. The error is non-nil only when the provider is unknown.
func (r *Registry) Validate(cfg domain.ProviderConfig) (domain.ValidationResult, error) {
	f, ok := r.factories[cfg.ProviderID]
	if !ok {
		return domain.ValidationResult{}, domain.ErrProviderNotFound(cfg.ProviderID)
	}

	res := domain.ValidationResult{ProviderID: cfg.ProviderID, Missing: []string{}}
	for _, field := range f.Descriptor.CredentialSchema {
		if field.Required && strings.TrimSpace(cfg.Credentials[field.Key]) == "" {
			res.Missing = append(res.Missing, field.Key)
		}
	}
	return res, nil
}

// Create builds an adapter for cfg after validating it.
func (r *Registry) Create(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
	res, err := r.Validate(cfg)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	f := r.factories[cfg.ProviderID]
	if f.ValidateConfig != nil {
		if err := f.ValidateConfig(cfg); err != nil {
			return nil, domain.ErrConfiguration(fmt.Sprintf("invalid configuration for provider %s", cfg.ProviderID)).
				WithCode(domain.ErrorCodeInvalidParameter).
				WithCause(err)
		}
	}

	return f.Create(cfg)
}
