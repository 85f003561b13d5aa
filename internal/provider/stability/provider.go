// Package stability implements the Stability AI text-to-image adapter.
package stability

import (
	"context"
	"net/http"
	"strings"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/transport"
)

const defaultBaseURL = "https://api.stability.ai"

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// Provider implements ports.ProviderAdapter for Stability engines.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Stability provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type textToImageRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    float64      `json:"cfg_scale,omitempty"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps,omitempty"`
	Seed        int64        `json:"seed,omitempty"`
	StylePreset string       `json:"style_preset,omitempty"`
}

type textToImageResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		Seed         int64  `json:"seed"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

// Generate requests in.Count samples from one engine call. Samples the
// content filter blanked are dropped.
func (p *Provider) Generate(ctx context.Context, in ports.GenerateInput) ([]domain.Artifact, error) {
	engine := in.Parameters.Model
	if engine == "" {
		engine = DefaultModel
	}

	w, h := in.Parameters.AspectRatio.Dimensions(1024)
	body := textToImageRequest{
		TextPrompts: []textPrompt{{Text: in.Prompt, Weight: 1}},
		CfgScale:    in.Parameters.CfgScale,
		Width:       round64(w),
		Height:      round64(h),
		Samples:     max(in.Count, 1),
		Steps:       in.Parameters.Steps,
		StylePreset: in.Parameters.Style,
	}
	if in.Parameters.NegativePrompt != "" {
		body.TextPrompts = append(body.TextPrompts, textPrompt{Text: in.Parameters.NegativePrompt, Weight: -1})
	}
	if in.Parameters.Seed != nil {
		body.Seed = *in.Parameters.Seed
	}

	req, err := transport.NewJSONRequest(ctx, http.MethodPost, p.baseURL+"/v1/generation/"+engine+"/text-to-image", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	var resp textToImageResponse
	if err := transport.DoJSON(p.httpClient, req, &resp); err != nil {
		return nil, err
	}

	artifacts := make([]domain.Artifact, 0, len(resp.Artifacts))
	for _, a := range resp.Artifacts {
		if a.Base64 == "" || a.FinishReason == "CONTENT_FILTERED" {
			continue
		}
		artifacts = append(artifacts, domain.Artifact{URI: "data:image/png;base64," + a.Base64, MIMEType: "image/png"})
	}
	if len(artifacts) == 0 {
		return nil, domain.ErrProvider("stability returned no usable samples").WithCode(domain.ErrorCodeMissingArtifact)
	}
	return artifacts, nil
}

// round64 snaps a dimension down to a multiple of 64, which SDXL requires.
func round64(v int) int {
	return max(v/64*64, 64)
}
