// Package providerconfig holds the user's provider configurations and
// enforces that at most one of them is active.
package providerconfig

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/registry"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is the in-memory set of provider configs. All methods are safe for
// concurrent use; every returned value is a copy.
type Store struct {
	registry *registry.Registry
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	configs   map[string]domain.ProviderConfig
	order     []string
	listeners []func()
}

// NewStore creates an empty store validating against reg.
func NewStore(reg *registry.Registry, opts ...Option) *Store {
	if reg == nil {
		panic("providerconfig: nil registry")
	}
	s := &Store{
		registry: reg,
		logger:   slog.Default(),
		now:      time.Now,
		configs:  make(map[string]domain.ProviderConfig),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every mutation. Listeners run outside
// the store lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Upsert inserts or replaces cfg by id. An empty id gets a fresh uuid and a
// zero CreatedAt is stamped. When cfg is active every other config is
// deactivated in the same critical section.
func (s *Store) Upsert(cfg domain.ProviderConfig) (domain.ProviderConfig, error) {
	if !s.registry.Has(cfg.ProviderID) {
		return domain.ProviderConfig{}, domain.ErrProviderNotFound(cfg.ProviderID)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return domain.ProviderConfig{}, err
	}

	cfg = cfg.Clone()
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	s.mu.Lock()
	prev, exists := s.configs[cfg.ID]
	if cfg.CreatedAt.IsZero() {
		if exists {
			cfg.CreatedAt = prev.CreatedAt
		} else {
			cfg.CreatedAt = s.now().UTC()
		}
	}
	if cfg.LastUsedAt == nil && exists && prev.LastUsedAt != nil {
		t := *prev.LastUsedAt
		cfg.LastUsedAt = &t
	}
	if cfg.IsActive {
		s.deactivateAllLocked()
	}
	if !exists {
		s.order = append(s.order, cfg.ID)
	}
	s.configs[cfg.ID] = cfg
	out := cfg.Clone()
	s.mu.Unlock()

	desc, _ := s.registry.Lookup(cfg.ProviderID)
	s.logger.Debug("provider config upserted",
		slog.String("config_id", cfg.ID),
		slog.String("provider_id", cfg.ProviderID),
		slog.Bool("active", cfg.IsActive),
		slog.Any("credentials", out.Redacted(desc).Credentials),
	)
	s.notify()
	return out, nil
}

// Active returns the active config, if any.
func (s *Store) Active() (domain.ProviderConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if c := s.configs[id]; c.IsActive {
			return c.Clone(), true
		}
	}
	return domain.ProviderConfig{}, false
}

// Get returns the config with id.
func (s *Store) Get(id string) (domain.ProviderConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[id]
	if !ok {
		return domain.ProviderConfig{}, false
	}
	return c.Clone(), true
}

// List returns every config in creation order.
func (s *Store) List() []domain.ProviderConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ProviderConfig, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.configs[id].Clone())
	}
	return out
}

// Remove deletes the config with id. Removing a missing id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	_, ok := s.configs[id]
	if ok {
		delete(s.configs, id)
		s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	}
	s.mu.Unlock()

	if ok {
		s.logger.Debug("provider config removed", slog.String("config_id", id))
		s.notify()
	}
}

// SetActive makes id the only active config.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	c, ok := s.configs[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound("provider config", id)
	}
	s.deactivateAllLocked()
	c.IsActive = true
	s.configs[id] = c
	s.mu.Unlock()

	s.logger.Info("active provider changed",
		slog.String("config_id", id),
		slog.String("provider_id", c.ProviderID),
	)
	s.notify()
	return nil
}

// MarkUsed records that id served a generation at at.
func (s *Store) MarkUsed(id string, at time.Time) {
	s.mu.Lock()
	c, ok := s.configs[id]
	if ok {
		t := at.UTC()
		c.LastUsedAt = &t
		s.configs[id] = c
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}
}

// Validate lists the required credentials cfg is missing. The error is
// non-nil only when cfg references an unknown provider.
func (s *Store) Validate(cfg domain.ProviderConfig) (domain.ValidationResult, error) {
	return s.registry.Validate(cfg)
}

// Replace swaps the whole set, used when hydrating from a snapshot.
// Configs for unknown providers are dropped and only the first active
// config stays active.
func (s *Store) Replace(configs []domain.ProviderConfig) {
	next := make(map[string]domain.ProviderConfig, len(configs))
	order := make([]string, 0, len(configs))
	seenActive := false

	for _, c := range configs {
		if c.ID == "" || !s.registry.Has(c.ProviderID) {
			s.logger.Warn("dropping provider config",
				slog.String("config_id", c.ID),
				slog.String("provider_id", c.ProviderID),
			)
			continue
		}
		if _, dup := next[c.ID]; dup {
			continue
		}
		c = c.Clone()
		if c.IsActive {
			if seenActive {
				c.IsActive = false
			}
			seenActive = true
		}
		next[c.ID] = c
		order = append(order, c.ID)
	}

	s.mu.Lock()
	s.configs = next
	s.order = order
	s.mu.Unlock()

	s.notify()
}

func (s *Store) deactivateAllLocked() {
	for id, c := range s.configs {
		if c.IsActive {
			c.IsActive = false
			s.configs[id] = c
		}
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
