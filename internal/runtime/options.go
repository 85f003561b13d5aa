package runtime

import (
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-image-studio/internal/adapters/config/file"
	"github.com/tjfontaine/polyglot-image-studio/internal/config"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/storage"
)

// Option is a functional option for configuring a Studio.
type Option func(*Studio) error

// WithFileConfig uses file-based configuration with hot-reload (default).
// The path should point to a config.yaml file that will be watched for changes.
func WithFileConfig(path string) Option {
	return func(s *Studio) error {
		provider, err := file.NewProvider(path, s.logger)
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		s.config = provider
		return nil
	}
}

// WithConfigProvider sets a custom config provider.
// For advanced use cases where you need full control over config loading.
func WithConfigProvider(provider ports.ConfigProvider) Option {
	return func(s *Studio) error {
		s.config = provider
		return nil
	}
}

// WithStorage opens the snapshot store described by cfg instead of the
// one named in the loaded configuration.
func WithStorage(cfg config.StorageConfig) Option {
	return func(s *Studio) error {
		store, err := storage.Open(cfg)
		if err != nil {
			return fmt.Errorf("open snapshot storage: %w", err)
		}
		s.store = store
		return nil
	}
}

// WithSnapshotStore sets a custom snapshot store. The studio closes it on
// Shutdown.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(s *Studio) error {
		s.store = store
		return nil
	}
}

// WithEventPublisher adds a publisher that receives every generation
// event alongside the built-in WebSocket hub.
func WithEventPublisher(publisher ports.EventPublisher) Option {
	return func(s *Studio) error {
		if publisher == nil {
			return fmt.Errorf("event publisher cannot be nil")
		}
		s.publishers = append(s.publishers, publisher)
		return nil
	}
}

// WithHTTPClient sets the client shared by every HTTP provider adapter.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Studio) error {
		s.httpClient = client
		return nil
	}
}

// WithTracerProvider sets the tracer provider for generation spans.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Studio) error {
		s.tracer = tp
		return nil
	}
}

// WithLogger sets a custom logger. Apply it before WithFileConfig so the
// config watcher logs through it too.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Studio) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}
