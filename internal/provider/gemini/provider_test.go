package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	genai "google.golang.org/genai"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

type fakeModels struct {
	gotModel  string
	gotConfig *genai.GenerateImagesConfig
	resp      *genai.GenerateImagesResponse
	err       error
}

func (f *fakeModels) GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.gotModel = model
	f.gotConfig = config
	return f.resp, f.err
}

func TestProvider_Generate(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{
			{Image: &genai.Image{ImageBytes: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}},
			{Image: &genai.Image{GCSURI: "gs://bucket/out-2.png"}},
			{RAIFilteredReason: "filtered"},
		},
	}}
	p := &Provider{models: fake}

	arts, err := p.Generate(context.Background(), ports.GenerateInput{
		Prompt: "sunset over mountains",
		Count:  3,
		Parameters: domain.Parameters{
			AspectRatio: domain.AspectPortrait,
			Seed:        domain.Int64(7),
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("Generate() returned %d artifacts, want 2", len(arts))
	}
	if !strings.HasPrefix(arts[0].URI, "data:image/png;base64,") || arts[1].URI != "gs://bucket/out-2.png" {
		t.Errorf("artifacts = %+v", arts)
	}
	if fake.gotModel != DefaultModel {
		t.Errorf("model = %q", fake.gotModel)
	}
	if fake.gotConfig.NumberOfImages != 3 || fake.gotConfig.AspectRatio != "9:16" || *fake.gotConfig.Seed != 7 {
		t.Errorf("config = %+v", fake.gotConfig)
	}
}

func TestProvider_AllFiltered(t *testing.T) {
	p := &Provider{models: &fakeModels{resp: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{RAIFilteredReason: "filtered"}},
	}}}

	_, err := p.Generate(context.Background(), ports.GenerateInput{Prompt: "x", Count: 1})
	if !domain.IsProvider(err) {
		t.Errorf("Generate() error = %v, want provider error", err)
	}
}

func TestProvider_TransportError(t *testing.T) {
	p := &Provider{models: &fakeModels{err: errors.New("connection reset by peer")}}

	_, err := p.Generate(context.Background(), ports.GenerateInput{Prompt: "x", Count: 1})
	if !domain.IsNetwork(err) {
		t.Errorf("Generate() error = %v, want network error", err)
	}
}
