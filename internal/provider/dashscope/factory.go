package dashscope

import (
	"net/http"
	"time"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// ProviderID is the provider id used in configuration.
const ProviderID = "dashscope"

// DefaultModel is the wanx model used when none is configured.
const DefaultModel = "wanx-v1"

// Descriptor returns the catalog entry for DashScope.
func Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:          ProviderID,
		DisplayName: "Alibaba Tongyi Wanxiang",
		Description: "Tongyi Wanxiang image synthesis on Alibaba Cloud DashScope",
		Kind:        domain.ProviderKindCloud,
		Region:      "CN",
		CredentialSchema: []domain.CredentialField{
			{Key: "apiKey", Label: "API key", Kind: domain.FieldKindPassword, Required: true, Sensitive: true},
			{Key: "endpoint", Label: "API endpoint (optional)", Kind: domain.FieldKindURL},
		},
		DefaultParameters: domain.Parameters{
			AspectRatio: domain.AspectSquare,
			Quality:     domain.QualityStandard,
			Model:       DefaultModel,
		},
		DefaultModels: []string{DefaultModel},
		Capabilities:  domain.Capabilities{SupportsBatch: true, MaxBatch: 4},
	}
}

// Factory returns a create function using httpClient and pollInterval.
// Zero values fall back to the defaults.
func Factory(httpClient *http.Client, pollInterval time.Duration) func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
	return func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
		opts := []ProviderOption{
			WithEndpoint(cfg.Credentials["endpoint"]),
			WithPollInterval(pollInterval),
		}
		if httpClient != nil {
			opts = append(opts, WithHTTPClient(httpClient))
		}
		return New(cfg.Credentials["apiKey"], opts...), nil
	}
}
