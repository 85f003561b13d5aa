package stability

import (
	"net/http"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// ProviderID is the provider id used in configuration.
const ProviderID = "stability"

// DefaultModel is the engine used when none is configured.
const DefaultModel = "stable-diffusion-xl-1024-v1-0"

// Descriptor returns the catalog entry for Stability AI.
func Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:          ProviderID,
		DisplayName: "Stability AI",
		Description: "Official Stable Diffusion API",
		Kind:        domain.ProviderKindCloud,
		Region:      "global",
		CredentialSchema: []domain.CredentialField{
			{Key: "apiKey", Label: "API key", Kind: domain.FieldKindPassword, Required: true, Sensitive: true},
		},
		DefaultParameters: domain.Parameters{
			AspectRatio: domain.AspectSquare,
			Quality:     domain.QualityStandard,
			Model:       DefaultModel,
			Steps:       30,
			CfgScale:    7,
		},
		DefaultModels: []string{DefaultModel, "stable-diffusion-v1-6"},
		Capabilities:  domain.Capabilities{SupportsBatch: true, MaxBatch: 10},
	}
}

// Factory returns a create function using httpClient and baseURL. Empty
// values use the public API.
func Factory(httpClient *http.Client, baseURL string) func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
	return func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
		opts := []ProviderOption{WithBaseURL(baseURL)}
		if httpClient != nil {
			opts = append(opts, WithHTTPClient(httpClient))
		}
		return New(cfg.Credentials["apiKey"], opts...), nil
	}
}
