// Package gemini implements the Google Imagen adapter on top of the official
// genai client.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	genai "google.golang.org/genai"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/transport"
)

// imageGenerator is the slice of genai.Models the adapter needs.
type imageGenerator interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Provider implements ports.ProviderAdapter for Imagen models.
type Provider struct {
	models imageGenerator
}

// New creates a provider bound to apiKey. httpClient may be nil.
func New(ctx context.Context, apiKey string, httpClient *http.Client) (*Provider, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Provider{models: cli.Models}, nil
}

// Generate asks Imagen for in.Count images in one call.
func (p *Provider) Generate(ctx context.Context, in ports.GenerateInput) ([]domain.Artifact, error) {
	model := in.Parameters.Model
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.GenerateImagesConfig{
		NumberOfImages: int32(max(in.Count, 1)),
		NegativePrompt: in.Parameters.NegativePrompt,
		OutputMIMEType: "image/png",
	}
	if in.Parameters.AspectRatio.Valid() {
		cfg.AspectRatio = string(in.Parameters.AspectRatio)
	}
	if in.Parameters.Seed != nil {
		seed := int32(*in.Parameters.Seed)
		cfg.Seed = &seed
	}

	resp, err := p.models.GenerateImages(ctx, model, in.Prompt, cfg)
	if err != nil {
		return nil, transport.Classify(err)
	}

	artifacts := make([]domain.Artifact, 0, len(resp.GeneratedImages))
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil {
			continue
		}
		mime := gi.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		switch {
		case len(gi.Image.ImageBytes) > 0:
			artifacts = append(artifacts, domain.Artifact{
				URI:      "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(gi.Image.ImageBytes),
				MIMEType: mime,
			})
		case gi.Image.GCSURI != "":
			artifacts = append(artifacts, domain.Artifact{URI: gi.Image.GCSURI, MIMEType: mime})
		}
	}
	if len(artifacts) == 0 {
		return nil, domain.ErrProvider("imagen returned no image, the prompt may have been filtered").
			WithCode(domain.ErrorCodeMissingArtifact)
	}
	return artifacts, nil
}
