// Package registration assembles the built-in provider catalog. The catalog
// is built explicitly rather than through init side effects, so cmd/studio
// and tests decide exactly which providers exist.
package registration

import (
	"net/http"
	"time"

	"github.com/tjfontaine/polyglot-image-studio/internal/provider/dashscope"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/gemini"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/openai"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/pollinations"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/procedural"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/registry"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/sdwebui"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/stability"
)

// Options tune how built-in adapters are constructed.
type Options struct {
	// HTTPClient is shared by every HTTP adapter. Nil uses http.DefaultClient.
	HTTPClient *http.Client

	// DashScopePollInterval overrides the task polling interval.
	DashScopePollInterval time.Duration
}

// ProviderFactories returns the built-in provider factories.
func ProviderFactories(opts Options) []registry.ProviderFactory {
	factories := []registry.ProviderFactory{
		{
			Descriptor:     openai.Descriptor(),
			Create:         openai.Factory(opts.HTTPClient),
			ValidateConfig: openai.ValidateConfig,
		},
		{
			Descriptor: dashscope.Descriptor(),
			Create:     dashscope.Factory(opts.HTTPClient, opts.DashScopePollInterval),
		},
		{
			Descriptor: gemini.Descriptor(),
			Create:     gemini.Factory(opts.HTTPClient),
		},
		{
			Descriptor: stability.Descriptor(),
			Create:     stability.Factory(opts.HTTPClient, ""),
		},
		{
			Descriptor:     pollinations.Descriptor(),
			Create:         pollinations.Factory(opts.HTTPClient, ""),
			ValidateConfig: pollinations.ValidateConfig,
		},
		{
			Descriptor:     sdwebui.Descriptor(),
			Create:         sdwebui.Factory(opts.HTTPClient),
			ValidateConfig: sdwebui.ValidateConfig,
		},
	}

	for _, p := range procedural.Patterns {
		factories = append(factories, registry.ProviderFactory{
			Descriptor:     procedural.Descriptor(p),
			Create:         procedural.Factory(p),
			ValidateConfig: procedural.ValidateConfig,
		})
	}
	return factories
}

// NewRegistry builds the registry of built-in providers.
func NewRegistry(opts Options) (*registry.Registry, error) {
	return registry.New(ProviderFactories(opts)...)
}
