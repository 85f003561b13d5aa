// Package procedural renders images locally without any network call. It
// backs the offline providers in the catalog.
package procedural

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"image"
	"image/png"
	"math/rand/v2"
	"strconv"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

const (
	defaultComplexity = 5
	defaultColors     = 5
)

// Provider renders one pattern.
type Provider struct {
	pattern    Pattern
	complexity int
	colors     int
}

// New creates a renderer for pattern. Zero complexity or colors use defaults.
func New(pattern Pattern, complexity, colors int) (*Provider, error) {
	if _, ok := renderers[pattern]; !ok {
		return nil, fmt.Errorf("unknown pattern %q", pattern)
	}
	if complexity <= 0 {
		complexity = defaultComplexity
	}
	if colors <= 1 {
		colors = defaultColors
	}
	return &Provider{pattern: pattern, complexity: complexity, colors: colors}, nil
}

// Generate renders in.Count PNG images. With a seed the output is
// deterministic; otherwise the prompt picks the starting seed.
func (p *Provider) Generate(ctx context.Context, in ports.GenerateInput) ([]domain.Artifact, error) {
	n := max(in.Count, 1)
	base := seedFor(in)
	w, h := in.Parameters.AspectRatio.Dimensions(sizeFor(in.Parameters.Quality))

	artifacts := make([]domain.Artifact, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.ErrNetwork("render interrupted").WithCause(err)
		}

		rng := rand.New(rand.NewPCG(uint64(base), uint64(i)))
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		renderers[p.pattern](img, rng, newPalette(rng, p.colors), p.complexity)

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, domain.ErrProvider("failed to encode image").WithCause(err)
		}
		artifacts = append(artifacts, domain.Artifact{
			URI:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
			MIMEType: "image/png",
		})
	}
	return artifacts, nil
}

func seedFor(in ports.GenerateInput) int64 {
	if in.Parameters.Seed != nil {
		return *in.Parameters.Seed
	}
	h := fnv.New64a()
	h.Write([]byte(in.Prompt))
	return int64(h.Sum64() >> 1)
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

func intSetting(cfg domain.ProviderConfig, key string) (int, error) {
	raw := cfg.Credentials[key]
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > 16 {
		return 0, fmt.Errorf("%s must be an integer between 1 and 16, got %q", key, raw)
	}
	return v, nil
}
