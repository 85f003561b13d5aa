package sdwebui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

func TestProvider_Generate(t *testing.T) {
	var got txt2imgRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/txt2img" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(txt2imgResponse{Images: []string{"aGVsbG8=", "d29ybGQ="}})
	}))
	defer srv.Close()

	adapter, err := Factory(srv.Client())(domain.ProviderConfig{
		ProviderID:  ProviderID,
		Credentials: map[string]string{"serverUrl": srv.URL + "/", "steps": "30", "sdModel": "sdxl.safetensors"},
	})
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}

	arts, err := adapter.Generate(context.Background(), ports.GenerateInput{
		Prompt:     "sunset over mountains",
		Count:      2,
		Parameters: domain.Parameters{AspectRatio: domain.AspectStandard, NegativePrompt: "blurry"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("Generate() returned %d artifacts, want 2", len(arts))
	}

	if got.BatchSize != 2 || got.Steps != 30 || got.CfgScale != defaultCfgScale || got.Seed != -1 {
		t.Errorf("request = %+v", got)
	}
	if got.Width != 512 || got.Height != 384 || got.NegativePrompt != "blurry" {
		t.Errorf("request size/negative = %+v", got)
	}
	if got.OverrideSettings["sd_model_checkpoint"] != "sdxl.safetensors" {
		t.Errorf("override_settings = %v", got.OverrideSettings)
	}
}

func TestProvider_NoImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"images":[]}`))
	}))
	defer srv.Close()

	p := New(Settings{ServerURL: srv.URL}, srv.Client())
	if _, err := p.Generate(context.Background(), ports.GenerateInput{Prompt: "x", Count: 1}); !domain.IsProvider(err) {
		t.Errorf("Generate() error = %v, want provider error", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		creds   map[string]string
		wantErr bool
	}{
		{"ok", map[string]string{"serverUrl": "http://127.0.0.1:7860"}, false},
		{"not http", map[string]string{"serverUrl": "ftp://box"}, true},
		{"bad steps", map[string]string{"serverUrl": "http://127.0.0.1:7860", "steps": "0"}, true},
		{"bad cfg", map[string]string{"serverUrl": "http://127.0.0.1:7860", "cfgScale": "lots"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(domain.ProviderConfig{Credentials: tt.creds})
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
