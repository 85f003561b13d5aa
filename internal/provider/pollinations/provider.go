// Package pollinations implements the free Pollinations.AI adapter. The
// service renders on GET of a prompt URL, so the artifact URI is the request
// URL itself once the service has answered with an image.
package pollinations

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/transport"
)

const (
	defaultBaseURL = "https://pollinations.ai/p/"
	defaultModel   = "flux"
	baseSize       = 1024
)

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL overrides the prompt endpoint.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimSuffix(baseURL, "/") + "/"
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// WithSize fixes the output size instead of deriving it from the aspect ratio.
func WithSize(width, height int) ProviderOption {
	return func(p *Provider) {
		p.width, p.height = width, height
	}
}

// Provider implements ports.ProviderAdapter for Pollinations.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	width      int
	height     int
}

// New creates a new Pollinations provider.
func New(opts ...ProviderOption) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate renders one image per requested count. Pollinations has no
// batch API, so count > 1 issues sequential calls with distinct seeds.
func (p *Provider) Generate(ctx context.Context, in ports.GenerateInput) ([]domain.Artifact, error) {
	n := max(in.Count, 1)

	artifacts := make([]domain.Artifact, 0, n)
	for i := 0; i < n; i++ {
		seed := rand.Int64N(100000)
		if in.Parameters.Seed != nil {
			seed = *in.Parameters.Seed + int64(i)
		}

		uri := p.imageURL(in.Prompt, in.Parameters, seed)
		mime, err := p.probe(ctx, uri)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, domain.Artifact{URI: uri, MIMEType: mime})
	}
	return artifacts, nil
}

func (p *Provider) imageURL(prompt string, params domain.Parameters, seed int64) string {
	w, h := p.width, p.height
	if w == 0 || h == 0 {
		w, h = params.AspectRatio.Dimensions(baseSize)
	}

	model := params.Model
	if model == "" || model == "default" {
		model = defaultModel
	}

	q := url.Values{}
	q.Set("width", strconv.Itoa(w))
	q.Set("height", strconv.Itoa(h))
	q.Set("seed", strconv.FormatInt(seed, 10))
	q.Set("model", model)
	q.Set("nologo", "true")
	q.Set("enhance", "true")
	if params.NegativePrompt != "" {
		q.Set("negative", params.NegativePrompt)
	}

	return p.baseURL + url.PathEscape(prompt) + "?" + q.Encode()
}

// probe fetches uri and checks that the service answered with an image.
func (p *Provider) probe(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", transport.UserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", transport.Classify(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<20))

	if resp.StatusCode != http.StatusOK {
		return "", transport.Classify(&transport.StatusError{StatusCode: resp.StatusCode})
	}

	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		return "", domain.ErrProvider(fmt.Sprintf("pollinations answered with %q instead of an image", mime)).
			WithCode(domain.ErrorCodeMissingArtifact)
	}
	return mime, nil
}
