// Package dashscope implements the Alibaba Tongyi Wanxiang adapter. Image
// synthesis on DashScope is asynchronous: a task is submitted and then polled
// until it reaches a terminal status.
package dashscope

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/transport"
)

const (
	defaultEndpoint     = "https://dashscope.aliyuncs.com"
	synthesisPath       = "/api/v1/services/aigc/text2image/image-synthesis"
	tasksPath           = "/api/v1/tasks/"
	defaultPollInterval = 2 * time.Second
)

// Task statuses reported by DashScope.
const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusCanceled  = "CANCELED"
	StatusUnknown   = "UNKNOWN"
)

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) ProviderOption {
	return func(p *Provider) {
		if endpoint == "" {
			return
		}
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		p.endpoint = strings.TrimSuffix(endpoint, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// WithPollInterval sets how often task status is polled.
func WithPollInterval(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// Provider implements ports.ProviderAdapter for wanx models.
type Provider struct {
	apiKey       string
	endpoint     string
	httpClient   *http.Client
	pollInterval time.Duration
}

// New creates a new DashScope provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:       apiKey,
		endpoint:     defaultEndpoint,
		httpClient:   http.DefaultClient,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type synthesisRequest struct {
	Model      string         `json:"model"`
	Input      synthesisInput `json:"input"`
	Parameters synthesisParam `json:"parameters"`
}

type synthesisInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type synthesisParam struct {
	Style string `json:"style,omitempty"`
	Size  string `json:"size"`
	N     int    `json:"n"`
	Seed  *int64 `json:"seed,omitempty"`
}

type taskResponse struct {
	RequestID string     `json:"request_id"`
	Output    taskOutput `json:"output"`
	Code      string     `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
}

type taskOutput struct {
	TaskID     string       `json:"task_id"`
	TaskStatus string       `json:"task_status"`
	Results    []taskResult `json:"results,omitempty"`
	Code       string       `json:"code,omitempty"`
	Message    string       `json:"message,omitempty"`
}

type taskResult struct {
	URL     string `json:"url,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Generate submits a synthesis task for in.Count images and waits for it.
func (p *Provider) Generate(ctx context.Context, in ports.GenerateInput) ([]domain.Artifact, error) {
	n := in.Count
	if n < 1 {
		n = 1
	}

	model := in.Parameters.Model
	if model == "" {
		model = DefaultModel
	}
	style := in.Parameters.Style
	if style == "" {
		style = "<auto>"
	}

	body := synthesisRequest{
		Model: model,
		Input: synthesisInput{Prompt: in.Prompt, NegativePrompt: in.Parameters.NegativePrompt},
		Parameters: synthesisParam{
			Style: style,
			Size:  sizeFor(in.Parameters.AspectRatio),
			N:     n,
			Seed:  in.Parameters.Seed,
		},
	}

	req, err := transport.NewJSONRequest(ctx, http.MethodPost, p.endpoint+synthesisPath, body)
	if err != nil {
		return nil, err
	}
	p.authorize(req)
	req.Header.Set("X-DashScope-Async", "enable")

	var submitted taskResponse
	if err := transport.DoJSON(p.httpClient, req, &submitted); err != nil {
		return nil, err
	}
	if submitted.Output.TaskID == "" {
		return nil, domain.ErrProvider(fmt.Sprintf("dashscope did not return a task id: %s", submitted.Message)).
			WithCode(domain.ErrorCodeMissingArtifact)
	}

	out, err := p.await(ctx, submitted.Output.TaskID)
	if err != nil {
		return nil, err
	}

	artifacts := make([]domain.Artifact, 0, len(out.Results))
	for _, r := range out.Results {
		if r.URL != "" {
			artifacts = append(artifacts, domain.Artifact{URI: r.URL, MIMEType: "image/png"})
		}
	}
	if len(artifacts) == 0 {
		return nil, domain.ErrProvider("dashscope task succeeded without images").WithCode(domain.ErrorCodeMissingArtifact)
	}
	return artifacts, nil
}

// await polls the task until it succeeds, fails, or ctx ends.
func (p *Provider) await(ctx context.Context, taskID string) (*taskOutput, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, transport.Classify(ctx.Err())
		case <-ticker.C:
		}

		req, err := transport.NewJSONRequest(ctx, http.MethodGet, p.endpoint+tasksPath+taskID, nil)
		if err != nil {
			return nil, err
		}
		p.authorize(req)

		var status taskResponse
		if err := transport.DoJSON(p.httpClient, req, &status); err != nil {
			return nil, err
		}

		switch status.Output.TaskStatus {
		case StatusSucceeded:
			return &status.Output, nil
		case StatusFailed, StatusCanceled, StatusUnknown:
			return nil, domain.ErrProvider(fmt.Sprintf("dashscope task %s %s: %s %s",
				taskID, strings.ToLower(status.Output.TaskStatus), status.Output.Code, status.Output.Message))
		}
	}
}

func (p *Provider) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
}

func sizeFor(ratio domain.AspectRatio) string {
	switch ratio {
	case domain.AspectLandscape:
		return "1280*720"
	case domain.AspectPortrait:
		return "720*1280"
	default:
		return "1024*1024"
	}
}
