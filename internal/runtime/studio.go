// Package runtime provides the Studio struct and lifecycle management
// for the image studio.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-image-studio/internal/adapters/events/direct"
	"github.com/tjfontaine/polyglot-image-studio/internal/artifact"
	"github.com/tjfontaine/polyglot-image-studio/internal/config"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/events"
	"github.com/tjfontaine/polyglot-image-studio/internal/orchestrator"
	"github.com/tjfontaine/polyglot-image-studio/internal/persistence"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/registry"
	"github.com/tjfontaine/polyglot-image-studio/internal/providerconfig"
	"github.com/tjfontaine/polyglot-image-studio/internal/registration"
	"github.com/tjfontaine/polyglot-image-studio/internal/server"
	"github.com/tjfontaine/polyglot-image-studio/internal/session"
	"github.com/tjfontaine/polyglot-image-studio/internal/storage"
	"github.com/tjfontaine/polyglot-image-studio/internal/tokens"
)

// poolSize bounds the number of cached provider adapters.
const poolSize = 32

// Studio is the main entry point for running the image studio.
// It manages configuration, providers, persistence, and the HTTP server
// lifecycle. Studio can be embedded in larger applications or run standalone.
type Studio struct {
	// Dependencies (injected via options)
	config     ports.ConfigProvider
	store      ports.SnapshotStore
	publishers []ports.EventPublisher
	httpClient *http.Client
	tracer     trace.TracerProvider
	logger     *slog.Logger

	// Built by Start
	registry     *registry.Registry
	configs      *providerconfig.Store
	session      *session.Store
	orchestrator *orchestrator.Orchestrator
	bridge       *persistence.Bridge
	hub          *events.Hub
	server       *server.Server
	serveErr     chan error

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	started bool
}

// New creates a new Studio with the given options. A config provider is
// required; the snapshot store defaults to the one named in the config.
func New(opts ...Option) (*Studio, error) {
	s := &Studio{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if s.config == nil {
		return nil, fmt.Errorf("config provider required (use WithFileConfig or WithConfigProvider)")
	}
	if s.tracer == nil {
		s.tracer = otel.GetTracerProvider()
	}

	return s, nil
}

// Start loads configuration, restores the last snapshot, and starts the
// HTTP server in the background.
func (s *Studio) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("studio already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	cfg, err := s.config.Load(s.ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := s.build(cfg); err != nil {
		return err
	}

	s.serveErr = make(chan error, 1)
	go func() {
		if err := s.server.Start(); err != nil {
			s.logger.Error("server error", slog.String("error", err.Error()))
			s.serveErr <- err
		}
	}()

	go s.watchConfig()

	s.started = true
	s.logger.Info("studio started",
		slog.Int("port", cfg.Server.Port),
		slog.Int("providers", len(s.registry.IDs())),
		slog.Int("provider_configs", len(s.configs.List())),
		slog.String("policy", string(s.orchestrator.Policy())))

	return nil
}

// build wires every component from cfg.
func (s *Studio) build(cfg *config.Config) error {
	reg, err := registration.NewRegistry(registration.Options{HTTPClient: s.httpClient})
	if err != nil {
		return fmt.Errorf("build provider registry: %w", err)
	}
	s.registry = reg

	if s.store == nil {
		store, err := storage.Open(cfg.Storage)
		if err != nil {
			return fmt.Errorf("open snapshot storage: %w", err)
		}
		s.store = store
	}

	var sealer *persistence.Sealer
	if cfg.Persistence.SealingKey != "" {
		sealer, err = persistence.NewSealer(cfg.Persistence.SealingKey)
		if err != nil {
			return fmt.Errorf("persistence sealing key: %w", err)
		}
	} else {
		s.logger.Warn("no sealing key configured, sensitive credentials will not be persisted")
	}

	s.session = session.NewStore(
		session.WithCapacity(cfg.History.Capacity),
		session.WithLogger(s.logger),
	)
	s.configs = providerconfig.NewStore(reg, providerconfig.WithLogger(s.logger))

	s.bridge = persistence.NewBridge(s.store, persistence.NewCodec(reg, sealer, s.logger),
		persistence.WithLogger(s.logger),
		persistence.WithSlot(cfg.Storage.Slot),
	)
	s.bridge.Hydrate(s.ctx, s.session, s.configs)
	s.bridge.Attach(s.session, s.configs)

	// Seeds apply only when no configs were restored.
	if len(s.configs.List()) == 0 {
		seedConfigs(s.configs, cfg.Providers, s.logger)
	}

	policy, err := orchestrator.ParsePolicy(cfg.Generation.Policy)
	if err != nil {
		return fmt.Errorf("generation policy: %w", err)
	}

	pool, err := provider.NewPool(reg, poolSize)
	if err != nil {
		return fmt.Errorf("create adapter pool: %w", err)
	}

	s.hub = events.NewHub(s.logger)
	publisher := direct.NewPublisher(append([]ports.EventPublisher{
		s.hub,
		direct.NewLogPublisher(s.logger),
	}, s.publishers...)...)

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(s.logger),
		orchestrator.WithTimeout(cfg.GenerationTimeout()),
		orchestrator.WithPolicy(policy),
		orchestrator.WithBudget(tokens.NewBudget(cfg.Generation.MaxPromptTokens, nil)),
		orchestrator.WithPublisher(publisher),
		orchestrator.WithTracerProvider(s.tracer),
	}
	if cfg.Generation.InlineArtifacts {
		orchOpts = append(orchOpts, orchestrator.WithInliner(
			artifact.NewInliner(artifact.WithMaxSize(cfg.Generation.MaxInlineBytes))))
	}
	s.orchestrator = orchestrator.New(reg, s.configs, s.session, pool, orchOpts...)

	h := server.NewHandler(reg, s.configs, s.session, s.orchestrator, s.hub, s.logger)
	s.server = server.New(cfg.Server.Port, cfg.RequestTimeout(), s.logger, h)
	return nil
}

// Shutdown gracefully stops the studio.
func (s *Studio) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("shutting down studio")

	if s.cancel != nil {
		s.cancel()
	}

	var errs []error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if s.hub != nil {
		s.hub.Close()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("failed to close storage", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if s.config != nil {
		if err := s.config.Close(); err != nil {
			s.logger.Error("failed to close config", slog.String("error", err.Error()))
		}
	}

	s.started = false
	s.logger.Info("studio shutdown complete")
	return errors.Join(errs...)
}

// Handler returns the HTTP handler, or nil before Start.
func (s *Studio) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.server == nil {
		return nil
	}
	return s.server.Router
}

// Orchestrator returns the generation orchestrator, or nil before Start.
func (s *Studio) Orchestrator() *orchestrator.Orchestrator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orchestrator
}

// Session returns the session store, or nil before Start.
func (s *Studio) Session() *session.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Configs returns the provider configuration store, or nil before Start.
func (s *Studio) Configs() *providerconfig.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs
}

// PersistenceDegraded reports whether snapshot storage has failed and the
// studio is running in memory only.
func (s *Studio) PersistenceDegraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bridge != nil && s.bridge.Degraded()
}

// Err returns a channel that receives the server's error if it stops
// unexpectedly.
func (s *Studio) Err() <-chan error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serveErr
}

// watchConfig watches for config changes and reloads.
func (s *Studio) watchConfig() {
	onChange := func(newCfg *config.Config) {
		s.logger.Info("config changed, reloading")
		if err := s.reload(newCfg); err != nil {
			s.logger.Error("failed to reload", slog.String("error", err.Error()))
		}
	}

	if err := s.config.Watch(s.ctx, onChange); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("config watch failed", slog.String("error", err.Error()))
		}
	}
}

// reload applies the settings that can change without a restart: the
// per-call timeout and the submission policy.
func (s *Studio) reload(cfg *config.Config) error {
	s.mu.RLock()
	orch := s.orchestrator
	s.mu.RUnlock()
	if orch == nil {
		return errors.New("studio not started")
	}

	policy, err := orchestrator.ParsePolicy(cfg.Generation.Policy)
	if err != nil {
		return fmt.Errorf("generation policy: %w", err)
	}
	orch.SetTimeout(cfg.GenerationTimeout())
	orch.SetPolicy(policy)

	s.logger.Info("reload complete",
		slog.String("timeout", orch.Timeout().String()),
		slog.String("policy", string(policy)))
	return nil
}
