// Package orchestrator turns a user submission into provider calls, collects
// their results and merges them into the session.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/registry"
	"github.com/tjfontaine/polyglot-image-studio/internal/providerconfig"
	"github.com/tjfontaine/polyglot-image-studio/internal/session"
	"github.com/tjfontaine/polyglot-image-studio/internal/tokens"
)

// DefaultTimeout bounds one adapter call.
const DefaultTimeout = 60 * time.Second

const tracerName = "github.com/tjfontaine/polyglot-image-studio/internal/orchestrator"

// Policy decides what happens when a submission arrives while another is
// in flight.
type Policy string

const (
	// PolicySupersede replaces the running submission; its results are discarded.
	PolicySupersede Policy = "supersede"
	// PolicyReject refuses the new submission with a conflict error.
	PolicyReject Policy = "reject"
)

// ParsePolicy parses a configured policy name. Empty means supersede.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySupersede:
		return PolicySupersede, nil
	case PolicyReject:
		return PolicyReject, nil
	}
	return "", fmt.Errorf("unknown generation policy %q", s)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithPolicy sets the concurrent submission policy.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) {
		if p != "" {
			o.policy = p
		}
	}
}

// WithBudget enforces a prompt token budget.
func WithBudget(b *tokens.Budget) Option {
	return func(o *Orchestrator) {
		o.budget = b
	}
}

// WithPublisher sets where generation events are fanned out.
func WithPublisher(p ports.EventPublisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithInliner rewrites every returned artifact through i before it is
// collected. A failed rewrite keeps the provider's URI.
func WithInliner(i ports.ArtifactInliner) Option {
	return func(o *Orchestrator) {
		o.inliner = i
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator runs submissions against the active provider config.
type Orchestrator struct {
	registry  *registry.Registry
	configs   *providerconfig.Store
	session   *session.Store
	pool      *provider.Pool
	budget    *tokens.Budget
	publisher ports.EventPublisher
	inliner   ports.ArtifactInliner
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu      sync.Mutex
	timeout time.Duration
	policy  Policy
	cancels map[string]context.CancelFunc
}

// New wires an orchestrator. Every store is required.
func New(reg *registry.Registry, configs *providerconfig.Store, sess *session.Store, pool *provider.Pool, opts ...Option) *Orchestrator {
	if reg == nil || configs == nil || sess == nil || pool == nil {
		panic("orchestrator: registry, config store, session store and pool are required")
	}
	o := &Orchestrator{
		registry:  reg,
		configs:   configs,
		session:   sess,
		pool:      pool,
		publisher: ports.NopPublisher{},
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		timeout:   DefaultTimeout,
		policy:    PolicySupersede,
		cancels:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetTimeout changes the per-call timeout for later submissions.
func (o *Orchestrator) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	o.mu.Lock()
	o.timeout = d
	o.mu.Unlock()
}

// SetPolicy changes the concurrent submission policy.
func (o *Orchestrator) SetPolicy(p Policy) {
	if p == "" {
		return
	}
	o.mu.Lock()
	o.policy = p
	o.mu.Unlock()
}

// Policy returns the current policy.
func (o *Orchestrator) Policy() Policy {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.policy
}

// Timeout returns the current per-call timeout.
func (o *Orchestrator) Timeout() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.timeout
}

// Submit validates req, claims the session and starts the generation in the
// background. Precondition failures are returned before anything runs. The
// generation outlives ctx; it ends when its calls finish, time out, or a
// newer submission supersedes it.
func (o *Orchestrator) Submit(ctx context.Context, req domain.GenerationRequest) (*Submission, error) {
	p, err := o.prepare(req)
	if err != nil {
		o.logger.Debug("submission rejected", slog.String("error", err.Error()))
		return nil, err
	}

	o.mu.Lock()
	allow := p.req.Supersede || o.policy == PolicySupersede
	timeout := o.timeout
	o.mu.Unlock()

	prev, err := o.session.Begin(p.req.CorrelationID, allow)
	if err != nil {
		o.logger.Info("submission refused, generation in flight",
			slog.String("correlation_id", p.req.CorrelationID),
		)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	o.mu.Lock()
	if prevCancel, ok := o.cancels[prev]; ok && prev != "" {
		prevCancel()
		delete(o.cancels, prev)
	}
	o.cancels[p.req.CorrelationID] = cancel
	o.mu.Unlock()

	if prev != "" {
		o.logger.Info("superseding in-flight generation",
			slog.String("correlation_id", p.req.CorrelationID),
			slog.String("superseded_id", prev),
		)
	}

	sub := newSubmission(p.req.CorrelationID, p.desc.ID, p.req.Count)
	go o.run(runCtx, sub, p, timeout)
	return sub, nil
}

// Generate submits req and waits for its result. Failure outcomes also
// return the result's error.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Result, error) {
	sub, err := o.Submit(ctx, req)
	if err != nil {
		return domain.Result{}, err
	}
	res, err := sub.Wait(ctx)
	if err != nil {
		return res, err
	}
	if res.Outcome == domain.OutcomeFailure {
		return res, res.Err
	}
	return res, nil
}

// Cancel hard-cancels the submission with correlationID, if it is running.
// Its result is then resolved as a failure or superseded.
func (o *Orchestrator) Cancel(correlationID string) bool {
	o.mu.Lock()
	cancel, ok := o.cancels[correlationID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// prepared is a submission that passed every precondition.
type prepared struct {
	req     domain.GenerationRequest
	cfg     domain.ProviderConfig
	desc    domain.ProviderDescriptor
	params  domain.Parameters
	adapter ports.ProviderAdapter
}

func (o *Orchestrator) prepare(req domain.GenerationRequest) (prepared, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return prepared{}, domain.ErrConfiguration("prompt must not be empty").
			WithCode(domain.ErrorCodeInvalidPrompt).
			WithParam("prompt")
	}
	if req.Count < domain.MinCount || req.Count > domain.MaxCount {
		return prepared{}, domain.ErrConfiguration(
			fmt.Sprintf("count must be between %d and %d, got %d", domain.MinCount, domain.MaxCount, req.Count)).
			WithCode(domain.ErrorCodeInvalidCount).
			WithParam("count")
	}
	if err := o.budget.Check(prompt); err != nil {
		return prepared{}, err
	}

	cfg, ok := o.configs.Active()
	if !ok {
		return prepared{}, domain.ErrConfiguration("no active provider configuration").
			WithCode(domain.ErrorCodeNoActiveConfig)
	}
	desc, err := o.registry.Lookup(cfg.ProviderID)
	if err != nil {
		return prepared{}, err
	}
	res, err := o.registry.Validate(cfg)
	if err != nil {
		return prepared{}, err
	}
	if err := res.Err(); err != nil {
		return prepared{}, err
	}

	// request > session (active module) > config > provider defaults
	params := req.Parameters.
		Merge(o.session.ActiveParameters()).
		Merge(cfg.Settings.Merge(desc.DefaultParameters))
	if err := params.Validate(); err != nil {
		return prepared{}, err
	}

	adapter, err := o.pool.Adapter(cfg)
	if err != nil {
		return prepared{}, err
	}

	req.Prompt = prompt
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = o.now().UTC()
	}
	return prepared{req: req, cfg: cfg, desc: desc, params: params, adapter: adapter}, nil
}
