package gemini

import (
	"context"
	"net/http"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// ProviderID is the provider id used in configuration.
const ProviderID = "gemini"

// DefaultModel is the Imagen model used when none is configured.
const DefaultModel = "imagen-3.0-generate-002"

// Descriptor returns the catalog entry for Gemini.
func Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:          ProviderID,
		DisplayName: "Google Gemini",
		Description: "Imagen image generation through the Gemini API",
		Kind:        domain.ProviderKindCloud,
		Region:      "global",
		CredentialSchema: []domain.CredentialField{
			{Key: "apiKey", Label: "API key", Kind: domain.FieldKindPassword, Required: true, Sensitive: true},
		},
		DefaultParameters: domain.Parameters{
			AspectRatio: domain.AspectSquare,
			Quality:     domain.QualityStandard,
			Model:       DefaultModel,
		},
		DefaultModels: []string{DefaultModel, "imagen-4.0-generate-001"},
		Capabilities:  domain.Capabilities{SupportsBatch: true, MaxBatch: 4},
	}
}

// Factory returns a create function using httpClient (nil for default).
func Factory(httpClient *http.Client) func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
	return func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
		return New(context.Background(), cfg.Credentials["apiKey"], httpClient)
	}
}
