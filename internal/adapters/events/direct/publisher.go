// Package direct provides event publishers that deliver synchronously on
// the caller's goroutine, with no separate event bus.
package direct

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// Publisher implements ports.EventPublisher by handing every event to each
// downstream publisher in order. Downstreams must not block.
type Publisher struct {
	targets []ports.EventPublisher
}

// NewPublisher creates a direct publisher. Nil targets are skipped.
func NewPublisher(targets ...ports.EventPublisher) *Publisher {
	p := &Publisher{}
	for _, t := range targets {
		if t != nil {
			p.targets = append(p.targets, t)
		}
	}
	return p
}

// Publish implements ports.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event domain.GenerationEvent) {
	for _, t := range p.targets {
		t.Publish(ctx, event)
	}
}

// Len returns the number of downstream publishers.
func (p *Publisher) Len() int {
	return len(p.targets)
}

// LogPublisher records generation lifecycle events with slog. Artifact
// events are logged at Debug, everything else at Info or Warn.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger uses slog.Default().
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish implements ports.EventPublisher.
func (p *LogPublisher) Publish(ctx context.Context, event domain.GenerationEvent) {
	attrs := []any{
		slog.String("event", string(event.Type)),
		slog.String("correlation_id", event.CorrelationID),
	}

	switch event.Type {
	case domain.EventArtifact:
		if event.Artifact != nil {
			attrs = append(attrs, slog.String("artifact_id", event.Artifact.ID))
		}
		p.logger.DebugContext(ctx, "generation event", attrs...)
	case domain.EventLegFailed:
		attrs = append(attrs, slog.Int("leg", event.Leg))
		if event.Err != nil {
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		p.logger.WarnContext(ctx, "generation event", attrs...)
	case domain.EventCompleted:
		if r := event.Result; r != nil {
			attrs = append(attrs,
				slog.String("outcome", string(r.Outcome)),
				slog.String("provider_id", r.ProviderID),
				slog.Int("artifacts", len(r.Artifacts)),
				slog.Int("warnings", r.Warnings()))
			if r.Err != nil {
				attrs = append(attrs, slog.String("error", r.Err.Error()))
			}
		}
		p.logger.InfoContext(ctx, "generation event", attrs...)
	default:
		p.logger.InfoContext(ctx, "generation event", attrs...)
	}
}
