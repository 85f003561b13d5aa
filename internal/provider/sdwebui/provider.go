// Package sdwebui implements the adapter for a self-hosted Stable Diffusion
// WebUI (AUTOMATIC1111) started with --api.
package sdwebui

import (
	"context"
	"net/http"
	"strings"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/transport"
)

const (
	defaultSteps    = 20
	defaultCfgScale = 7
	defaultSampler  = "Euler a"
)

// Settings are the server-side defaults from a config.
type Settings struct {
	ServerURL string
	Model     string
	Sampler   string
	Steps     int
	CfgScale  float64
}

// Provider implements ports.ProviderAdapter against /sdapi/v1/txt2img.
type Provider struct {
	settings   Settings
	httpClient *http.Client
}

// New creates a provider. A nil httpClient uses http.DefaultClient.
func New(settings Settings, httpClient *http.Client) *Provider {
	settings.ServerURL = strings.TrimSuffix(settings.ServerURL, "/")
	if settings.Sampler == "" {
		settings.Sampler = defaultSampler
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Provider{settings: settings, httpClient: httpClient}
}

type txt2imgRequest struct {
	Prompt           string         `json:"prompt"`
	NegativePrompt   string         `json:"negative_prompt,omitempty"`
	Steps            int            `json:"steps"`
	CfgScale         float64        `json:"cfg_scale"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	BatchSize        int            `json:"batch_size"`
	Seed             int64          `json:"seed"`
	SamplerName      string         `json:"sampler_name,omitempty"`
	OverrideSettings map[string]any `json:"override_settings,omitempty"`
	SendImages       bool           `json:"send_images"`
	SaveImages       bool           `json:"save_images"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info,omitempty"`
}

// Generate renders in.Count images as one WebUI batch.
func (p *Provider) Generate(ctx context.Context, in ports.GenerateInput) ([]domain.Artifact, error) {
	w, h := in.Parameters.AspectRatio.Dimensions(sizeFor(in.Parameters.Quality))

	body := txt2imgRequest{
		Prompt:         in.Prompt,
		NegativePrompt: in.Parameters.NegativePrompt,
		Steps:          firstPositive(in.Parameters.Steps, p.settings.Steps, defaultSteps),
		CfgScale:       firstPositiveFloat(in.Parameters.CfgScale, p.settings.CfgScale, defaultCfgScale),
		Width:          w,
		Height:         h,
		BatchSize:      max(in.Count, 1),
		Seed:           -1,
		SamplerName:    p.settings.Sampler,
		SendImages:     true,
	}
	if in.Parameters.Seed != nil {
		body.Seed = *in.Parameters.Seed
	}
	model := in.Parameters.Model
	if model == "" {
		model = p.settings.Model
	}
	if model != "" {
		body.OverrideSettings = map[string]any{"sd_model_checkpoint": model}
	}

	req, err := transport.NewJSONRequest(ctx, http.MethodPost, p.settings.ServerURL+"/sdapi/v1/txt2img", body)
	if err != nil {
		return nil, err
	}

	var resp txt2imgResponse
	if err := transport.DoJSON(p.httpClient, req, &resp); err != nil {
		return nil, err
	}

	artifacts := make([]domain.Artifact, 0, len(resp.Images))
	for _, b64 := range resp.Images {
		if b64 != "" {
			artifacts = append(artifacts, domain.Artifact{URI: "data:image/png;base64," + b64, MIMEType: "image/png"})
		}
	}
	if len(artifacts) == 0 {
		return nil, domain.ErrProvider("webui returned no images").WithCode(domain.ErrorCodeMissingArtifact)
	}
	return artifacts, nil
}

func sizeFor(q domain.Quality) int {
	switch q {
	case domain.QualityUltra:
		return 1024
	case domain.QualityHigh:
		return 768
	default:
		return 512
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
