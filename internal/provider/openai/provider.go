// Package openai implements the OpenAI DALL-E image adapter.
package openai

import (
	"context"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/transport"
)

// Provider implements ports.ProviderAdapter against the Images API.
type Provider struct {
	client *Client
}

// New creates a new OpenAI provider.
func New(apiKey string, opts ...ClientOption) *Provider {
	return &Provider{client: NewClient(apiKey, opts...)}
}

// Generate requests in.Count images and returns one artifact per image.
func (p *Provider) Generate(ctx context.Context, in ports.GenerateInput) ([]domain.Artifact, error) {
	model := in.Parameters.Model
	if model == "" {
		model = DefaultModel
	}

	n := in.Count
	if n < 1 {
		n = 1
	}

	req := &ImageRequest{
		Model:          model,
		Prompt:         in.Prompt,
		N:              n,
		Size:           sizeFor(model, in.Parameters.AspectRatio),
		ResponseFormat: "url",
	}
	if model == "dall-e-3" {
		req.Quality = qualityFor(in.Parameters.Quality)
		if in.Parameters.Style == "vivid" || in.Parameters.Style == "natural" {
			req.Style = in.Parameters.Style
		}
	}

	resp, err := p.client.CreateImage(ctx, req)
	if err != nil {
		return nil, transport.Classify(err)
	}

	artifacts := make([]domain.Artifact, 0, len(resp.Data))
	for _, d := range resp.Data {
		switch {
		case d.URL != "":
			artifacts = append(artifacts, domain.Artifact{URI: d.URL, MIMEType: "image/png"})
		case d.B64JSON != "":
			artifacts = append(artifacts, domain.Artifact{URI: "data:image/png;base64," + d.B64JSON, MIMEType: "image/png"})
		}
	}
	if len(artifacts) == 0 {
		return nil, domain.ErrProvider("openai returned no image").WithCode(domain.ErrorCodeMissingArtifact)
	}
	return artifacts, nil
}

func sizeFor(model string, ratio domain.AspectRatio) string {
	if model == "dall-e-2" {
		return "1024x1024"
	}
	switch ratio {
	case domain.AspectLandscape, domain.AspectStandard:
		return "1792x1024"
	case domain.AspectPortrait, domain.AspectTall:
		return "1024x1792"
	default:
		return "1024x1024"
	}
}

func qualityFor(q domain.Quality) string {
	if q == domain.QualityHigh || q == domain.QualityUltra {
		return "hd"
	}
	return "standard"
}
