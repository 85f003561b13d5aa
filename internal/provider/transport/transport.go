// Package transport holds the HTTP plumbing shared by the generation adapters
// and the classification of their failures into studio error types.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
)

// UserAgent is sent on every upstream request.
const UserAgent = "polyglot-image-studio/1.0"

// maxBody caps how much of a response body is read.
const maxBody = 32 << 20

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// NewJSONRequest builds a request with a JSON body (nil body sends none).
func NewJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", UserAgent)
	return req, nil
}

// Do sends req and returns the response body. Transport failures and
// non-2xx responses are returned already classified.
func Do(client *http.Client, req *http.Request) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, Classify(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, Classify(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, Classify(&StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)})
	}
	return body, nil
}

// DoJSON sends req and decodes a 2xx JSON response into out. A body that does
// not decode is a provider error.
func DoJSON(client *http.Client, req *http.Request, out any) error {
	body, err := Do(client, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.ErrProvider("malformed response body").WithCause(err)
	}
	return nil
}

// Classify maps an adapter failure onto the studio taxonomy. Errors that are
// already studio errors pass through unchanged.
//
//   - deadline exceeded: network, code timeout
//   - cancellation, dial/read failures: network
//   - 429 and 5xx: network (transient upstream)
//   - other non-2xx: provider
//   - anything else: network
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrNetwork("request timed out").WithCode(domain.ErrorCodeTimeout).WithCause(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.ErrNetwork("request timed out").WithCode(domain.ErrorCodeTimeout).WithCause(err)
	}

	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500 {
			return domain.ErrNetwork(fmt.Sprintf("upstream returned %d", se.StatusCode)).WithCause(err)
		}
		return domain.ErrProvider(fmt.Sprintf("upstream rejected request with %d", se.StatusCode)).WithCause(err)
	}

	return domain.ErrNetwork("transport failure").WithCause(err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
