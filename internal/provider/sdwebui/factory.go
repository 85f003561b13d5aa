package sdwebui

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// ProviderID is the provider id used in configuration.
const ProviderID = "sdwebui"

// Descriptor returns the catalog entry for Stable Diffusion WebUI.
func Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:          ProviderID,
		DisplayName: "Stable Diffusion WebUI",
		Description: "Self-hosted AUTOMATIC1111 WebUI, start it with --api",
		Kind:        domain.ProviderKindLocal,
		Region:      "local",
		CredentialSchema: []domain.CredentialField{
			{Key: "serverUrl", Label: "Server address", Kind: domain.FieldKindURL, Required: true},
			{Key: "sdModel", Label: "SD model", Kind: domain.FieldKindText},
			{Key: "sampler", Label: "Sampler", Kind: domain.FieldKindText},
			{Key: "steps", Label: "Sampling steps", Kind: domain.FieldKindText},
			{Key: "cfgScale", Label: "CFG scale", Kind: domain.FieldKindText},
		},
		DefaultParameters: domain.Parameters{
			AspectRatio: domain.AspectSquare,
			Quality:     domain.QualityStandard,
			Steps:       defaultSteps,
			CfgScale:    defaultCfgScale,
		},
		Capabilities: domain.Capabilities{SupportsBatch: true, MaxBatch: domain.MaxCount},
	}
}

// Factory returns a create function using httpClient (nil for default).
func Factory(httpClient *http.Client) func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
	return func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
		s, err := settingsFrom(cfg)
		if err != nil {
			return nil, err
		}
		return New(s, httpClient), nil
	}
}

// ValidateConfig checks the server URL and numeric settings.
func ValidateConfig(cfg domain.ProviderConfig) error {
	_, err := settingsFrom(cfg)
	return err
}

func settingsFrom(cfg domain.ProviderConfig) (Settings, error) {
	c := cfg.Credentials
	s := Settings{ServerURL: c["serverUrl"], Model: c["sdModel"], Sampler: c["sampler"]}

	u, err := url.Parse(s.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Settings{}, fmt.Errorf("serverUrl %q must be an http(s) URL", s.ServerURL)
	}
	if raw := c["steps"]; raw != "" {
		if s.Steps, err = strconv.Atoi(raw); err != nil || s.Steps < 1 || s.Steps > 150 {
			return Settings{}, fmt.Errorf("steps must be an integer between 1 and 150, got %q", raw)
		}
	}
	if raw := c["cfgScale"]; raw != "" {
		if s.CfgScale, err = strconv.ParseFloat(raw, 64); err != nil || s.CfgScale <= 0 || s.CfgScale > 30 {
			return Settings{}, fmt.Errorf("cfgScale must be a number between 0 and 30, got %q", raw)
		}
	}
	return s, nil
}
