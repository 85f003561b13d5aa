package ports

import (
	"context"

	"github.com/tjfontaine/polyglot-image-studio/internal/config"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
)

// ConfigProvider loads and watches configuration.
// Implementations: file-based with hot reload (default).
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}

// EventPublisher fans generation events out to observers.
// Implementations: in-process hub (default), no-op.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.GenerationEvent)
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, domain.GenerationEvent) {}
