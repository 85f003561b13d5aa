package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/transport"
)

// legResult is what a leg goroutine sends back. Legs never touch stores.
type legResult struct {
	leg       int
	artifacts []domain.Artifact
	failures  []error
}

// plan splits count into per-call sizes. Providers without batch support get
// one call per artifact; batch providers get calls of at most MaxBatch.
func plan(count int, caps domain.Capabilities) []int {
	if !caps.SupportsBatch {
		legs := make([]int, count)
		for i := range legs {
			legs[i] = 1
		}
		return legs
	}
	size := count
	if caps.MaxBatch > 0 && caps.MaxBatch < count {
		size = caps.MaxBatch
	}
	var legs []int
	for left := count; left > 0; left -= size {
		legs = append(legs, min(size, left))
	}
	return legs
}

func (o *Orchestrator) run(ctx context.Context, sub *Submission, p prepared, timeout time.Duration) {
	id := p.req.CorrelationID
	defer o.release(id)

	ctx, span := o.tracer.Start(ctx, "generation",
		trace.WithAttributes(
			attribute.String("studio.correlation_id", id),
			attribute.String("studio.provider_id", p.desc.ID),
			attribute.Int("studio.count", p.req.Count),
		),
	)
	defer span.End()

	logger := o.logger.With(
		slog.String("correlation_id", id),
		slog.String("provider_id", p.desc.ID),
	)

	o.emit(ctx, sub, domain.GenerationEvent{Type: domain.EventStarted, CorrelationID: id})

	legs := plan(p.req.Count, p.desc.Capabilities)
	logger.Info("generation started",
		slog.Int("count", p.req.Count),
		slog.Int("legs", len(legs)),
	)

	results := make(chan legResult, len(legs))
	for i, n := range legs {
		go func(leg, n int) {
			results <- o.callLeg(ctx, p, leg, n, timeout)
		}(i+1, n)
	}

	var (
		artifacts []domain.Artifact
		failures  []domain.LegFailure
	)
	for range legs {
		lr := <-results
		for _, a := range lr.artifacts {
			a = o.stamp(a, p)
			artifacts = append(artifacts, a)
			o.emit(ctx, sub, domain.GenerationEvent{Type: domain.EventArtifact, CorrelationID: id, Leg: lr.leg, Artifact: &a})
		}
		for _, err := range lr.failures {
			failures = append(failures, domain.LegFailure{Leg: lr.leg, Err: err})
			logger.Warn("generation leg failed", slog.Int("leg", lr.leg), slog.String("error", err.Error()))
			o.emit(ctx, sub, domain.GenerationEvent{Type: domain.EventLegFailed, CorrelationID: id, Leg: lr.leg, Err: err})
		}
	}

	res := o.resolve(p, artifacts, failures)

	span.SetAttributes(
		attribute.String("studio.outcome", string(res.Outcome)),
		attribute.Int("studio.artifacts", len(res.Artifacts)),
		attribute.Int("studio.failures", len(res.Failures)),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}

	switch res.Outcome {
	case domain.OutcomeSuperseded:
		logger.Info("generation superseded, results discarded", slog.Int("artifacts", len(artifacts)))
		o.emit(ctx, sub, domain.GenerationEvent{Type: domain.EventSuperseded, CorrelationID: id, Result: &res})
	case domain.OutcomeFailure:
		logger.Error("generation failed", slog.String("error", res.Err.Error()))
		o.emit(ctx, sub, domain.GenerationEvent{Type: domain.EventCompleted, CorrelationID: id, Err: res.Err, Result: &res})
	default:
		logger.Info("generation completed",
			slog.String("outcome", string(res.Outcome)),
			slog.Int("artifacts", len(res.Artifacts)),
			slog.Int("warnings", res.Warnings()),
		)
		o.emit(ctx, sub, domain.GenerationEvent{Type: domain.EventCompleted, CorrelationID: id, Result: &res})
	}

	sub.resolve(res)
}

// resolve applies the collected results to the session. Merge and in-flight
// clear happen only while this submission is still current.
func (o *Orchestrator) resolve(p prepared, artifacts []domain.Artifact, failures []domain.LegFailure) domain.Result {
	res := domain.Result{
		CorrelationID: p.req.CorrelationID,
		ProviderID:    p.desc.ID,
		Artifacts:     artifacts,
		Failures:      failures,
	}

	if len(artifacts) > 0 {
		if !o.session.Complete(p.req.CorrelationID, artifacts) {
			res.Outcome = domain.OutcomeSuperseded
			return res
		}
		o.configs.MarkUsed(p.cfg.ID, o.now())
		if len(failures) > 0 {
			res.Outcome = domain.OutcomePartial
		} else {
			res.Outcome = domain.OutcomeSuccess
		}
		return res
	}

	if !o.session.Abandon(p.req.CorrelationID) {
		res.Outcome = domain.OutcomeSuperseded
		return res
	}
	res.Outcome = domain.OutcomeFailure
	res.Err = totalFailure(failures)
	return res
}

// totalFailure is a network error when any leg failed on the network, and a
// provider error when every leg failed on a provider error.
func totalFailure(failures []domain.LegFailure) error {
	var (
		network error
		msgs    []string
	)
	for _, f := range failures {
		msgs = append(msgs, fmt.Sprintf("leg %d: %v", f.Leg, f.Err))
		if network == nil && !domain.IsProvider(f.Err) {
			network = f.Err
		}
	}
	msg := "all generation calls failed: " + strings.Join(msgs, "; ")
	if network != nil || len(failures) == 0 {
		return domain.ErrNetwork(msg).WithCause(network)
	}
	return domain.ErrProvider(msg).WithCause(failures[0].Err)
}

func (o *Orchestrator) callLeg(ctx context.Context, p prepared, leg, n int, timeout time.Duration) legResult {
	ctx, span := o.tracer.Start(ctx, "generation.leg",
		trace.WithAttributes(
			attribute.Int("studio.leg", leg),
			attribute.Int("studio.count", n),
		),
	)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	arts, err := p.adapter.Generate(callCtx, ports.GenerateInput{
		Prompt:      p.req.Prompt,
		Parameters:  p.params.Clone(),
		Credentials: p.cfg.Clone().Credentials,
		Count:       n,
	})
	if err != nil {
		err = transport.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		failures := make([]error, n)
		for i := range failures {
			failures[i] = err
		}
		return legResult{leg: leg, failures: failures}
	}

	lr := legResult{leg: leg}
	for _, a := range arts {
		if len(lr.artifacts) == n {
			break
		}
		if strings.TrimSpace(a.URI) == "" {
			continue
		}
		lr.artifacts = append(lr.artifacts, o.inline(callCtx, a))
	}
	for i := len(lr.artifacts); i < n; i++ {
		code := domain.ErrorCodeMissingArtifact
		if n > 1 {
			code = domain.ErrorCodeBatchShortfall
		}
		lr.failures = append(lr.failures,
			domain.ErrProvider(fmt.Sprintf("provider returned %d of %d artifacts", len(lr.artifacts), n)).WithCode(code))
	}
	return lr
}

func (o *Orchestrator) inline(ctx context.Context, a domain.Artifact) domain.Artifact {
	if o.inliner == nil {
		return a
	}
	out, err := o.inliner.Inline(ctx, a)
	if err != nil {
		o.logger.Warn("keeping provider artifact URI", slog.String("error", err.Error()))
		return a
	}
	return out
}

func (o *Orchestrator) stamp(a domain.Artifact, p prepared) domain.Artifact {
	a.ID = uuid.NewString()
	a.CorrelationID = p.req.CorrelationID
	a.ProviderID = p.desc.ID
	a.PromptSnapshot = p.req.Prompt
	a.Parameters = p.params.Clone()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = o.now().UTC()
	}
	return a
}

func (o *Orchestrator) emit(ctx context.Context, sub *Submission, ev domain.GenerationEvent) {
	ev.At = o.now().UTC()
	sub.emit(ev)
	o.publisher.Publish(ctx, ev)
}

func (o *Orchestrator) release(correlationID string) {
	o.mu.Lock()
	if cancel, ok := o.cancels[correlationID]; ok {
		cancel()
		delete(o.cancels, correlationID)
	}
	o.mu.Unlock()
}
