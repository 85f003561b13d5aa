package pollinations

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// ProviderID is the provider id used in configuration.
const ProviderID = "pollinations"

// Descriptor returns the catalog entry for Pollinations.
func Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:          ProviderID,
		DisplayName: "Pollinations.AI",
		Description: "Free image generation, no API key required",
		Kind:        domain.ProviderKindFree,
		Region:      "global",
		CredentialSchema: []domain.CredentialField{
			{Key: "width", Label: "Width (default 1024)", Kind: domain.FieldKindText},
			{Key: "height", Label: "Height (default 1024)", Kind: domain.FieldKindText},
		},
		DefaultParameters: domain.Parameters{
			AspectRatio: domain.AspectSquare,
			Quality:     domain.QualityStandard,
			Model:       "flux",
		},
		DefaultModels: []string{"flux", "turbo"},
		Capabilities:  domain.Capabilities{SupportsBatch: false},
	}
}

// Factory returns a create function using httpClient and baseURL. Empty
// values fall back to the public service.
func Factory(httpClient *http.Client, baseURL string) func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
	return func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
		opts := []ProviderOption{WithBaseURL(baseURL)}
		if httpClient != nil {
			opts = append(opts, WithHTTPClient(httpClient))
		}
		w, h, err := fixedSize(cfg)
		if err != nil {
			return nil, err
		}
		if w > 0 && h > 0 {
			opts = append(opts, WithSize(w, h))
		}
		return New(opts...), nil
	}
}

// ValidateConfig checks the optional width/height overrides.
func ValidateConfig(cfg domain.ProviderConfig) error {
	_, _, err := fixedSize(cfg)
	return err
}

func fixedSize(cfg domain.ProviderConfig) (int, int, error) {
	parse := func(key string) (int, error) {
		raw := cfg.Credentials[key]
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 64 || v > 2048 {
			return 0, fmt.Errorf("%s must be an integer between 64 and 2048, got %q", key, raw)
		}
		return v, nil
	}

	w, err := parse("width")
	if err != nil {
		return 0, 0, err
	}
	h, err := parse("height")
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}
