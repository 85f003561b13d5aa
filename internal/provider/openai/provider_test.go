package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/testutil"
)

func TestProvider_Generate(t *testing.T) {
	// Skip if no API key and not in replay mode
	if os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("VCR_MODE") == "record" {
		t.Skip("Skipping test: OPENAI_API_KEY not set")
	}

	recorder, cleanup := testutil.NewVCRRecorder(t, "openai_images")
	defer cleanup()

	client := testutil.VCRHTTPClient(recorder)

	// Use a dummy key for replay mode if not set
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = "test-key"
	}

	p := New(apiKey, WithHTTPClient(client))

	arts, err := p.Generate(context.Background(), ports.GenerateInput{
		Prompt: "sunset over mountains",
		Count:  1,
		Parameters: domain.Parameters{
			AspectRatio: domain.AspectLandscape,
			Quality:     domain.QualityHigh,
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(arts) != 1 {
		t.Fatalf("Generate() returned %d artifacts, want 1", len(arts))
	}
	if !strings.HasPrefix(arts[0].URI, "https://") {
		t.Errorf("URI = %q, want https url", arts[0].URI)
	}
}

func TestProvider_GenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType domain.ErrorType
	}{
		{
			name: "empty data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"created":1,"data":[{"url":""}]}`))
			},
			wantType: domain.ErrorTypeProvider,
		},
		{
			name: "content policy rejection",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"message":"rejected","type":"invalid_request_error"}}`))
			},
			wantType: domain.ErrorTypeProvider,
		},
		{
			name: "upstream outage",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantType: domain.ErrorTypeNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := New("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
			_, err := p.Generate(context.Background(), ports.GenerateInput{Prompt: "x", Count: 1})
			if got := domain.TypeOf(err); got != tt.wantType {
				t.Errorf("Generate() error = %v, want type %s", err, tt.wantType)
			}
		})
	}
}

func TestProvider_B64Response(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"created":1,"data":[{"b64_json":"iVBORw0KGgo="}]}`))
	}))
	defer srv.Close()

	adapter, err := Factory(srv.Client())(domain.ProviderConfig{
		ProviderID:  ProviderID,
		Credentials: map[string]string{"apiKey": "sk-test", "baseUrl": srv.URL},
	})
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}

	arts, err := adapter.Generate(context.Background(), ports.GenerateInput{Prompt: "x", Count: 1})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(arts[0].URI, "data:image/png;base64,") {
		t.Errorf("URI = %q, want data uri", arts[0].URI)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		baseURL string
		wantErr bool
	}{
		{"", false},
		{"https://proxy.example/v1", false},
		{"not a url", true},
	}

	for _, tt := range tests {
		err := ValidateConfig(domain.ProviderConfig{Credentials: map[string]string{"baseUrl": tt.baseURL}})
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateConfig(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
		}
	}
}

func TestSizeFor(t *testing.T) {
	tests := []struct {
		model string
		ratio domain.AspectRatio
		want  string
	}{
		{"dall-e-3", domain.AspectSquare, "1024x1024"},
		{"dall-e-3", domain.AspectLandscape, "1792x1024"},
		{"dall-e-3", domain.AspectTall, "1024x1792"},
		{"dall-e-2", domain.AspectLandscape, "1024x1024"},
	}
	for _, tt := range tests {
		if got := sizeFor(tt.model, tt.ratio); got != tt.want {
			t.Errorf("sizeFor(%s, %s) = %s, want %s", tt.model, tt.ratio, got, tt.want)
		}
	}
}
