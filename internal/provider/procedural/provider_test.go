package procedural

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

func TestProvider_Generate(t *testing.T) {
	for _, pattern := range Patterns {
		t.Run(string(pattern), func(t *testing.T) {
			p, err := New(pattern, 2, 4)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			arts, err := p.Generate(context.Background(), ports.GenerateInput{
				Prompt:     "sunset over mountains",
				Count:      2,
				Parameters: domain.Parameters{AspectRatio: domain.AspectLandscape},
			})
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if len(arts) != 2 {
				t.Fatalf("Generate() returned %d artifacts, want 2", len(arts))
			}

			img := decode(t, arts[0].URI)
			if b := img.Bounds(); b.Dx() != 512 || b.Dy() != 288 {
				t.Errorf("bounds = %v, want 512x288", b)
			}
			if arts[0].URI == arts[1].URI {
				t.Error("images in one batch should differ")
			}
		})
	}
}

func TestProvider_Deterministic(t *testing.T) {
	p, _ := New(PatternMosaic, 0, 0)
	in := ports.GenerateInput{Prompt: "x", Count: 1, Parameters: domain.Parameters{Seed: domain.Int64(99)}}

	a, _ := p.Generate(context.Background(), in)
	b, _ := p.Generate(context.Background(), in)
	if a[0].URI != b[0].URI {
		t.Error("same seed should render the same image")
	}
}

func TestProvider_Canceled(t *testing.T) {
	p, _ := New(PatternNoise, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Generate(ctx, ports.GenerateInput{Prompt: "x", Count: 1}); !domain.IsNetwork(err) {
		t.Errorf("Generate() error = %v, want network error", err)
	}
}

func TestNew_UnknownPattern(t *testing.T) {
	if _, err := New("spiral", 0, 0); err == nil {
		t.Error("New() should reject unknown patterns")
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(domain.ProviderConfig{Credentials: map[string]string{"complexity": "40"}}); err == nil {
		t.Error("complexity 40 should be rejected")
	}
	if err := ValidateConfig(domain.ProviderConfig{Credentials: map[string]string{"colors": "3"}}); err != nil {
		t.Errorf("ValidateConfig() error = %v", err)
	}
}

func decode(t *testing.T, uri string) image.Image {
	t.Helper()
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("URI = %.40q, want png data uri", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(uri[len(prefix):])
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}
