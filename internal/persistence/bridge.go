// Package persistence snapshots the session and provider configs to a slot
// store and restores them on start.
package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/providerconfig"
	"github.com/tjfontaine/polyglot-image-studio/internal/session"
)

// DefaultSlot is the slot the studio snapshot lives under.
const DefaultSlot = "polyglot-studio/snapshot"

const saveTimeout = 5 * time.Second

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithSlot overrides DefaultSlot.
func WithSlot(slot string) Option {
	return func(b *Bridge) {
		if slot != "" {
			b.slot = slot
		}
	}
}

// Bridge is the best-effort link between the stores and durable storage.
// Once a write fails the bridge stops writing for the rest of the process
// and the studio keeps running from memory.
type Bridge struct {
	store  ports.SnapshotStore
	codec  *Codec
	slot   string
	logger *slog.Logger

	mu        sync.Mutex
	degraded  bool
	hydrating bool
	session   *session.Store
	configs   *providerconfig.Store
}

// NewBridge creates a bridge over store.
func NewBridge(store ports.SnapshotStore, codec *Codec, opts ...Option) *Bridge {
	b := &Bridge{
		store:  store,
		codec:  codec,
		slot:   DefaultSlot,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Degraded reports whether the bridge has fallen back to memory only.
func (b *Bridge) Degraded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.degraded
}

// Save writes snap. Failures are logged, never returned.
func (b *Bridge) Save(ctx context.Context, snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveLocked(ctx, snap)
}

func (b *Bridge) saveLocked(ctx context.Context, snap Snapshot) {
	if b.degraded {
		return
	}
	data, err := b.codec.Encode(snap)
	if err == nil {
		err = b.store.Put(ctx, b.slot, data)
	}
	if err != nil {
		b.degrade("save", err)
	}
}

// Load reads the stored snapshot. It reports false when there is none or
// the stored document is unreadable.
func (b *Bridge) Load(ctx context.Context) (Snapshot, bool) {
	data, err := b.store.Get(ctx, b.slot)
	if errors.Is(err, ports.ErrSlotNotFound) {
		return Snapshot{}, false
	}
	if err != nil {
		b.logger.Warn("snapshot unavailable", slog.String("slot", b.slot), slog.String("error", err.Error()))
		return Snapshot{}, false
	}
	snap, err := b.codec.Decode(data)
	if err != nil {
		b.logger.Warn("ignoring invalid snapshot", slog.String("slot", b.slot), slog.String("error", err.Error()))
		return Snapshot{}, false
	}
	return snap, true
}

// Erase deletes the stored snapshot.
func (b *Bridge) Erase(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.degraded {
		return
	}
	if err := b.store.Delete(ctx, b.slot); err != nil {
		b.degrade("erase", err)
		return
	}
	b.logger.Info("snapshot erased", slog.String("slot", b.slot))
}

// Attach snapshots on every mutation of sess or configs. A cleared
// session erases the stored snapshot instead.
func (b *Bridge) Attach(sess *session.Store, configs *providerconfig.Store) {
	b.mu.Lock()
	b.session = sess
	b.configs = configs
	b.mu.Unlock()

	sess.OnChange(func(c session.Change) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if c == session.Cleared {
			b.Erase(ctx)
			return
		}
		b.saveCurrent(ctx)
	})
	configs.OnChange(func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		b.saveCurrent(ctx)
	})
}

// Hydrate loads the stored snapshot into sess and configs without writing
// it back. It reports whether a snapshot was applied.
func (b *Bridge) Hydrate(ctx context.Context, sess *session.Store, configs *providerconfig.Store) bool {
	snap, ok := b.Load(ctx)
	if !ok {
		return false
	}

	b.mu.Lock()
	b.hydrating = true
	b.mu.Unlock()

	configs.Replace(snap.ProviderConfigs)
	sess.Restore(snap.SessionState)

	b.mu.Lock()
	b.hydrating = false
	b.mu.Unlock()

	b.logger.Info("snapshot restored",
		slog.String("slot", b.slot),
		slog.Int("history", len(snap.SessionState.History)),
		slog.Int("provider_configs", len(snap.ProviderConfigs)),
	)
	return true
}

func (b *Bridge) saveCurrent(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hydrating || b.session == nil || b.configs == nil {
		return
	}
	b.saveLocked(ctx, Snapshot{
		SessionState:    b.session.Snapshot(),
		ProviderConfigs: b.configs.List(),
	})
}

func (b *Bridge) degrade(op string, err error) {
	b.degraded = true
	b.logger.Error("snapshot storage failed, continuing in memory only",
		slog.String("op", op),
		slog.String("slot", b.slot),
		slog.String("error", err.Error()),
	)
}
