package openai

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// ProviderID is the provider id used in configuration.
const ProviderID = "openai"

// DefaultModel is used when neither the request nor the config names one.
const DefaultModel = "dall-e-3"

// Descriptor returns the catalog entry for OpenAI.
func Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:          ProviderID,
		DisplayName: "OpenAI DALL-E",
		Description: "OpenAI DALL-E image generation",
		Kind:        domain.ProviderKindCloud,
		Region:      "global",
		CredentialSchema: []domain.CredentialField{
			{Key: "apiKey", Label: "API key", Kind: domain.FieldKindPassword, Required: true, Sensitive: true},
			{Key: "baseUrl", Label: "API endpoint (optional)", Kind: domain.FieldKindURL},
		},
		DefaultParameters: domain.Parameters{
			AspectRatio: domain.AspectSquare,
			Quality:     domain.QualityStandard,
			Model:       DefaultModel,
		},
		DefaultModels: []string{"dall-e-3", "dall-e-2"},
		// dall-e-3 accepts n=1 only, so multi-image requests fan out.
		Capabilities: domain.Capabilities{SupportsBatch: false},
	}
}

// Factory returns a create function that builds adapters with httpClient.
// A nil client uses http.DefaultClient.
func Factory(httpClient *http.Client) func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
	return func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
		opts := []ClientOption{WithBaseURL(cfg.Credentials["baseUrl"])}
		if httpClient != nil {
			opts = append(opts, WithHTTPClient(httpClient))
		}
		return New(cfg.Credentials["apiKey"], opts...), nil
	}
}

// ValidateConfig checks the optional base URL.
func ValidateConfig(cfg domain.ProviderConfig) error {
	raw := cfg.Credentials["baseUrl"]
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("baseUrl %q is not an absolute URL", raw)
	}
	return nil
}
