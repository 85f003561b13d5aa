package artifact

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// newLocalInliner allows loopback so tests can use httptest servers.
func newLocalInliner(opts ...Option) *Inliner {
	return NewInliner(append([]Option{WithHTTPClient(http.DefaultClient)}, opts...)...)
}

func TestInline_HTTPUrl(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader)
	}))
	defer ts.Close()

	a, err := newLocalInliner().Inline(context.Background(), domain.Artifact{ID: "a1", URI: ts.URL + "/out.png"})
	if err != nil {
		t.Fatalf("Inline returned error: %v", err)
	}

	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(a.URI, prefix) {
		t.Fatalf("URI = %.40s, want data URI", a.URI)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(a.URI, prefix))
	if err != nil {
		t.Fatalf("Failed to decode base64: %v", err)
	}
	if string(decoded) != string(pngHeader) {
		t.Error("decoded payload mismatch")
	}
	if a.MIMEType != "image/png" || a.ID != "a1" {
		t.Errorf("artifact = %+v", a)
	}
}

func TestInline_DataURIPassThrough(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("test"))
	uri := "data:image/jpg;base64," + encoded

	a, err := NewInliner().Inline(context.Background(), domain.Artifact{URI: uri})
	if err != nil {
		t.Fatalf("Inline returned error: %v", err)
	}
	if a.URI != uri {
		t.Error("data URI should be passed through")
	}
	if a.MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want image/jpeg", a.MIMEType)
	}
}

func TestInline_OtherSchemesUntouched(t *testing.T) {
	a, err := NewInliner().Inline(context.Background(), domain.Artifact{URI: "gs://bucket/out.png"})
	if err != nil {
		t.Fatalf("Inline returned error: %v", err)
	}
	if a.URI != "gs://bucket/out.png" {
		t.Errorf("URI = %q", a.URI)
	}
}

func TestInline_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.png":
			w.WriteHeader(http.StatusNotFound)
		case "/doc.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("not an image"))
		default:
			w.Header().Set("Content-Type", "image/png")
			w.Write(make([]byte, 4096))
		}
	}))
	defer ts.Close()

	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"http error", ts.URL + "/missing.png", "status 404"},
		{"unsupported media type", ts.URL + "/doc.pdf", "unsupported media type"},
		{"too large", ts.URL + "/large.png", "too large"},
		{"data uri without base64", "data:image/png,raw", "must be base64"},
		{"data uri without comma", "data:image/png;base64", "missing comma"},
	}

	inliner := newLocalInliner(WithMaxSize(1024))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := domain.Artifact{URI: tt.uri}
			out, err := inliner.Inline(context.Background(), in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
			if out.URI != in.URI {
				t.Error("failed inline must keep the original URI")
			}
		})
	}
}

func TestInline_DefaultClientRefusesLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader)
	}))
	defer ts.Close()

	if _, err := NewInliner().Inline(context.Background(), domain.Artifact{URI: ts.URL + "/x.png"}); err == nil {
		t.Error("default inliner should refuse loopback addresses")
	}
}

func TestInferMediaType(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"http://example.com/image.jpg", "image/jpeg"},
		{"http://example.com/image.JPEG", "image/jpeg"},
		{"http://example.com/image.png?Expires=1700000000&Signature=abc", "image/png"},
		{"http://example.com/image.gif", "image/gif"},
		{"http://example.com/image.webp", "image/webp"},
		{"http://example.com/image", "image/png"},
	}

	for _, tt := range tests {
		if got := inferMediaType(tt.url); got != tt.expected {
			t.Errorf("inferMediaType(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}
