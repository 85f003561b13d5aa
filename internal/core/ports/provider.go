// Package ports defines the core interfaces the studio depends on.
package ports

import (
	"context"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
)

// GenerateInput is what one adapter call receives.
type GenerateInput struct {
	Prompt      string
	Parameters  domain.Parameters
	Credentials map[string]string

	// Count is the number of artifacts requested natively. It is 1 for every
	// fan-out leg against providers without batch support.
	Count int
}

// ProviderAdapter is the capability each generation back end implements.
// Implementations: openai, dashscope, pollinations, gemini, procedural.
//
// Adapters return artifacts carrying at least a URI; the orchestrator stamps
// provenance (ids, correlation, prompt snapshot). Transport failures should
// be returned as domain network errors and malformed responses as provider
// errors; anything else is classified as a network error.
type ProviderAdapter interface {
	Generate(ctx context.Context, in GenerateInput) ([]domain.Artifact, error)
}

// ProviderAdapterFunc adapts a function to ProviderAdapter.
type ProviderAdapterFunc func(ctx context.Context, in GenerateInput) ([]domain.Artifact, error)

// Generate calls f.
func (f ProviderAdapterFunc) Generate(ctx context.Context, in GenerateInput) ([]domain.Artifact, error) {
	return f(ctx, in)
}

// ArtifactInliner rewrites an artifact's URI into a self-contained form.
// On error the returned artifact keeps its original URI.
type ArtifactInliner interface {
	Inline(ctx context.Context, a domain.Artifact) (domain.Artifact, error)
}
