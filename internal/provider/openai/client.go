package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/tjfontaine/polyglot-image-studio/internal/provider/transport"
)

const defaultBaseURL = "https://api.openai.com/v1"

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is a minimal HTTP client for the OpenAI Images API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new OpenAI Images API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateImage sends an image generation request.
func (c *Client) CreateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	httpReq, err := transport.NewJSONRequest(ctx, http.MethodPost, c.baseURL+"/images/generations", req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var resp ImageResponse
	if err := transport.DoJSON(c.httpClient, httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
