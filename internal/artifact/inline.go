// Package artifact rewrites provider-hosted artifact URLs into
// self-contained data URIs, so history entries keep rendering after the
// provider's temporary links expire.
package artifact

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/pkg/safehttp"
)

// DefaultMaxSize caps a fetched image.
const DefaultMaxSize = 20 * 1024 * 1024

// Inliner fetches remote artifacts and converts them to base64 data URIs.
type Inliner struct {
	client  *http.Client
	maxSize int64 // Maximum allowed image size in bytes
}

// Option configures the inliner.
type Option func(*Inliner)

// WithHTTPClient sets the client used to fetch remote images. The default
// refuses private and loopback addresses.
func WithHTTPClient(client *http.Client) Option {
	return func(i *Inliner) {
		if client != nil {
			i.client = client
		}
	}
}

// WithMaxSize sets the maximum allowed image size.
func WithMaxSize(maxSize int64) Option {
	return func(i *Inliner) {
		if maxSize > 0 {
			i.maxSize = maxSize
		}
	}
}

// NewInliner creates a new inliner.
func NewInliner(opts ...Option) *Inliner {
	i := &Inliner{
		client:  safehttp.NewClient(30 * time.Second),
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inline returns a with its URI replaced by a data URI. Data URIs are
// validated and passed through with a normalized media type; URIs with a
// scheme other than http or https (gs:// for example) are returned as is.
func (i *Inliner) Inline(ctx context.Context, a domain.Artifact) (domain.Artifact, error) {
	switch {
	case strings.HasPrefix(a.URI, "data:"):
		mediaType, _, err := parseDataURI(a.URI)
		if err != nil {
			return a, err
		}
		a.MIMEType = mediaType
		return a, nil
	case strings.HasPrefix(a.URI, "http://"), strings.HasPrefix(a.URI, "https://"):
	default:
		return a, nil
	}

	mediaType, data, err := i.fetch(ctx, a.URI)
	if err != nil {
		return a, err
	}
	a.URI = "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
	a.MIMEType = mediaType
	return a, nil
}

func (i *Inliner) fetch(ctx context.Context, url string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	if resp.ContentLength > i.maxSize {
		return "", nil, fmt.Errorf("image too large: %d bytes (max %d)", resp.ContentLength, i.maxSize)
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = inferMediaType(url)
	}
	if !isSupportedMediaType(mediaType) {
		return "", nil, fmt.Errorf("unsupported media type: %s", mediaType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, i.maxSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > i.maxSize {
		return "", nil, fmt.Errorf("image too large: exceeds %d bytes", i.maxSize)
	}

	return normalizeMediaType(mediaType), data, nil
}

// parseDataURI splits data:<media>;base64,<payload>.
func parseDataURI(uri string) (mediaType, payload string, err error) {
	content, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", "", fmt.Errorf("not a data URI")
	}

	meta, payload, ok := strings.Cut(content, ",")
	if !ok {
		return "", "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	parts := strings.Split(meta, ";")
	mediaType = parts[0]
	if !isSupportedMediaType(mediaType) {
		return "", "", fmt.Errorf("unsupported media type: %s", mediaType)
	}

	isBase64 := false
	for _, part := range parts[1:] {
		if part == "base64" {
			isBase64 = true
			break
		}
	}
	if !isBase64 {
		return "", "", fmt.Errorf("data URI must be base64 encoded")
	}

	return normalizeMediaType(mediaType), payload, nil
}

// inferMediaType guesses the media type from a URL's extension, ignoring
// any query string.
func inferMediaType(url string) string {
	path, _, _ := strings.Cut(strings.ToLower(url), "?")

	switch {
	case strings.HasSuffix(path, ".jpg") || strings.HasSuffix(path, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".gif"):
		return "image/gif"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}

func isSupportedMediaType(mediaType string) bool {
	switch normalizeMediaType(mediaType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeMediaType(mediaType string) string {
	mainType, _, _ := strings.Cut(mediaType, ";")
	mainType = strings.TrimSpace(strings.ToLower(mainType))

	if mainType == "image/jpg" {
		return "image/jpeg"
	}
	return mainType
}
